package codec

import (
	"bytes"
	"strconv"
	"strings"
)

// heicKernel is the first Darwin kernel major (macOS 10.13) whose sips
// writes HEIC.
const heicKernel = 17

// kernelWritesHEIC reports whether a Darwin kernel release such as
// "23.4.0" is new enough to encode HEIC.
func kernelWritesHEIC(release string) bool {
	major, _, _ := strings.Cut(strings.TrimSpace(release), ".")
	n, err := strconv.Atoi(major)
	return err == nil && n >= heicKernel
}

// sipsLacksFormat reports whether sips output says it has no writer for
// the requested format.
func sipsLacksFormat(out []byte) bool {
	out = bytes.ToLower(out)
	return bytes.Contains(out, []byte("format")) &&
		(bytes.Contains(out, []byte("not supported")) || bytes.Contains(out, []byte("unsupported")) ||
			bytes.Contains(out, []byte("unknown")))
}
