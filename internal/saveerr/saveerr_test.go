package saveerr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"cancelled", ErrUserCancelled, KindCancelled},
		{"context cancelled", fmt.Errorf("wait: %w", context.Canceled), KindCancelled},
		{"access", ErrAccessDenied, KindAccess},
		{"wrapped location", fmt.Errorf("resolve: %w", ErrInvalidSaveLocation), KindAccess},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, KindAccess},
		{"format", ErrInvalidFileFormat, KindConversion},
		{"heic", fmt.Errorf("heic: %w", ErrFormatUnavailable), KindConversion},
		{"empty", ErrInvalidData, KindConversion},
		{"preview", ErrPreviewFailed, KindPreview},
		{"compression", ErrCompressionFailed, KindIO},
		{"unknown", errors.New("disk full"), KindIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSilent(t *testing.T) {
	assert.True(t, Silent(ErrUserCancelled))
	assert.True(t, Silent(fmt.Errorf("dialog: %w", ErrUserCancelled)))
	assert.False(t, Silent(ErrAccessDenied))
	assert.False(t, Silent(nil))
}

func TestCodeRoundTrip(t *testing.T) {
	err := fmt.Errorf("open viewer: %w", ErrPreviewFailed)
	code := Code(err)
	assert.Equal(t, "preview_failed", code)

	back := FromCode(code, err.Error())
	assert.ErrorIs(t, back, ErrPreviewFailed)
	assert.Equal(t, err.Error(), back.Error())

	assert.Same(t, ErrUserCancelled, FromCode("user_cancelled", ""))
	assert.Empty(t, Code(errors.New("disk full")))
	assert.EqualError(t, FromCode("", "disk full"), "disk full")
	assert.Empty(t, Code(nil))
}
