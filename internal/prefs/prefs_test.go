package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipsave/internal/content"
)

func fileStore(t *testing.T, body string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clipsave.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	v := viper.New()
	v.SetConfigFile(path)
	return New(v, nil), path
}

func reread(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestDefaults(t *testing.T) {
	p, err := New(viper.New(), nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "png", p.ImageFormat)
	assert.Equal(t, "txt", p.TextFormat)
	assert.False(t, p.Compress)
	assert.True(t, p.Notifications)
	assert.Nil(t, p.BookmarkData())
	assert.Equal(t, content.FormatPNG, p.Format(content.KindImage))
	assert.Equal(t, content.FormatZIP, p.Format(content.KindMultipleFiles))
}

func TestLoadPicksUpExternalEdits(t *testing.T) {
	s, path := fileStore(t, "default_text_format = \"md\"\n")
	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, content.FormatMD, p.Format(content.KindText))

	require.NoError(t, os.WriteFile(path, []byte("default_text_format = \"rtf\"\ncompress = true\n"), 0o644))
	p, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, content.FormatRTF, p.Format(content.KindRTF))
	assert.True(t, p.Compress)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, body := range []string{
		"default_image_format = \"bmp\"\n",
		"default_text_format = \"docx\"\n",
		"save_folder_bookmark = \"%%%\"\n",
		"temp_dir = \"/definitely/not/here\"\n",
	} {
		s, _ := fileStore(t, body)
		_, err := s.Load()
		assert.Error(t, err, body)
	}
}

func TestSettersWriteBack(t *testing.T) {
	s, path := fileStore(t, "preview = true\n")

	require.NoError(t, s.SetCompress(true))
	require.NoError(t, s.SetDefaultFormat(content.KindImage, content.FormatJPG))
	require.NoError(t, s.SetDefaultFormat(content.KindRTF, content.FormatHTML))
	require.NoError(t, s.SetDefaultFormat(content.KindPDF, content.FormatPDF))
	require.NoError(t, s.SetBookmark([]byte(`{"path":"/tmp"}`)))

	v := reread(t, path)
	assert.True(t, v.GetBool(KeyCompress))
	assert.True(t, v.GetBool(KeyPreview))
	assert.Equal(t, "jpg", v.GetString(KeyImageFormat))
	assert.Equal(t, "html", v.GetString(KeyTextFormat))

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"path":"/tmp"}`), p.BookmarkData())
}

func TestSetDefaultFormatRejectsMismatch(t *testing.T) {
	s, _ := fileStore(t, "")
	assert.Error(t, s.SetDefaultFormat(content.KindText, content.FormatPNG))
}

func TestWritesStayInMemoryWithoutFile(t *testing.T) {
	s := New(viper.New(), nil)
	require.NoError(t, s.SetCompress(true))
	p, err := s.Load()
	require.NoError(t, err)
	assert.True(t, p.Compress)
}

func TestFirstWriteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "clipsave.toml")
	s := New(viper.New(), nil)
	s.WritePath = path

	require.NoError(t, s.SetCompress(true))
	assert.True(t, reread(t, path).GetBool(KeyCompress))
}

func TestEditAfterWriteApplies(t *testing.T) {
	s, path := fileStore(t, "")
	require.NoError(t, s.SetCompress(true))

	require.NoError(t, os.WriteFile(path, []byte("compress = false\n"), 0o644))
	p, err := s.Load()
	require.NoError(t, err)
	assert.False(t, p.Compress, "a stored value must not mask the file")
}

func TestReset(t *testing.T) {
	s, path := fileStore(t, "compress = true\ndefault_image_format = \"gif\"\npoll-interval = \"1s\"\n")

	require.NoError(t, s.Reset())

	p, err := s.Load()
	require.NoError(t, err)
	assert.False(t, p.Compress)
	assert.Equal(t, "png", p.ImageFormat)
	assert.True(t, p.Notifications)
	assert.Equal(t, "1s", reread(t, path).GetString("poll-interval"), "daemon settings survive")
}
