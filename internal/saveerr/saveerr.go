// Package saveerr defines the failure values shared by the save pipeline and
// maps arbitrary errors onto the small taxonomy the UI cares about.
package saveerr

import (
	"context"
	"errors"
	"io/fs"
	"syscall"
)

var (
	ErrUserCancelled       = errors.New("save operation cancelled")
	ErrInvalidData         = errors.New("the clipboard is empty or holds no savable data")
	ErrAccessDenied        = errors.New("access denied to save location")
	ErrInvalidSaveLocation = errors.New("invalid save location")
	ErrInvalidFileFormat   = errors.New("the selected file format is not supported")
	ErrConversionFailed    = errors.New("failed to convert content to the requested format")
	ErrFormatUnavailable   = errors.New("format unavailable on this platform")
	ErrCompressionFailed   = errors.New("failed to compress files")
	ErrPreviewFailed       = errors.New("preview failed")
)

// Kind groups errors by how the caller should react to them.
type Kind string

const (
	KindNone       Kind = ""
	KindCancelled  Kind = "cancelled"
	KindAccess     Kind = "access"
	KindConversion Kind = "conversion"
	KindIO         Kind = "io"
	KindPreview    Kind = "preview"
)

// KindOf classifies err. Unknown errors are treated as I/O failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUserCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrInvalidSaveLocation),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, syscall.EROFS):
		return KindAccess
	case errors.Is(err, ErrInvalidFileFormat),
		errors.Is(err, ErrConversionFailed),
		errors.Is(err, ErrFormatUnavailable),
		errors.Is(err, ErrInvalidData):
		return KindConversion
	case errors.Is(err, ErrPreviewFailed):
		return KindPreview
	default:
		return KindIO
	}
}

// Silent reports whether err should not produce a user-visible notification.
func Silent(err error) bool {
	return KindOf(err) == KindCancelled
}

var codes = map[string]error{
	"user_cancelled":        ErrUserCancelled,
	"invalid_data":          ErrInvalidData,
	"access_denied":         ErrAccessDenied,
	"invalid_save_location": ErrInvalidSaveLocation,
	"invalid_file_format":   ErrInvalidFileFormat,
	"conversion_failed":     ErrConversionFailed,
	"format_unavailable":    ErrFormatUnavailable,
	"compression_failed":    ErrCompressionFailed,
	"preview_failed":        ErrPreviewFailed,
}

// Code names the sentinel err wraps, for carrying it over IPC. Errors that
// wrap no sentinel have an empty code.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for code, sentinel := range codes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// FromCode rebuilds an error received over IPC so that errors.Is still
// matches the original sentinel.
func FromCode(code, msg string) error {
	sentinel, ok := codes[code]
	switch {
	case !ok:
		return errors.New(msg)
	case msg == "" || msg == sentinel.Error():
		return sentinel
	default:
		return &remote{msg: msg, sentinel: sentinel}
	}
}

type remote struct {
	msg      string
	sentinel error
}

func (e *remote) Error() string { return e.msg }
func (e *remote) Unwrap() error { return e.sentinel }
