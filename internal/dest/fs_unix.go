//go:build unix

package dest

import "golang.org/x/sys/unix"

func writable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}

func inodeOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Ino), nil
}
