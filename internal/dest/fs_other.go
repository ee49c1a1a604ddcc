//go:build !unix

package dest

import "os"

func writable(dir string) error {
	f, err := os.CreateTemp(dir, ".clipsave-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func inodeOf(path string) (uint64, error) {
	_, err := os.Stat(path)
	return 0, err
}
