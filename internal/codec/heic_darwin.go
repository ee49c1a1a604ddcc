//go:build darwin

package codec

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"go.klb.dev/clipsave/internal/saveerr"
)

// sipsEncoder shells out to sips(1), which writes HEIC on macOS 10.13+.
type sipsEncoder struct {
	bin string
}

func platformHEIC() HEICEncoder {
	if rel, err := unix.Sysctl("kern.osrelease"); err != nil || !kernelWritesHEIC(rel) {
		return nil
	}
	bin, err := exec.LookPath("sips")
	if err != nil {
		return nil
	}
	return sipsEncoder{bin: bin}
}

func (e sipsEncoder) EncodeHEIC(img image.Image, quality int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "clipsave-heic-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.heic")

	f, err := os.Create(in)
	if err != nil {
		return nil, err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	cmd := exec.Command(e.bin,
		"-s", "format", "heic",
		"-s", "formatOptions", strconv.Itoa(quality),
		in, "--out", out,
	)
	if msg, err := cmd.CombinedOutput(); err != nil {
		if sipsLacksFormat(msg) {
			return nil, fmt.Errorf("%w: sips: %s", saveerr.ErrFormatUnavailable, msg)
		}
		return nil, fmt.Errorf("sips: %w: %s", err, msg)
	}
	return os.ReadFile(out)
}
