// Package prefs reads and writes the persisted save preferences.
//
// Preferences are read-many, write-rarely. Load re-reads the config file
// on every call so edits made elsewhere apply to the next save.
package prefs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"go.klb.dev/clipsave/internal/content"
)

// Config keys.
const (
	KeyBookmark        = "save_folder_bookmark"
	KeyUseActiveWindow = "use_active_window"
	KeyImageFormat     = "default_image_format"
	KeyTextFormat      = "default_text_format"
	KeyCompress        = "compress"
	KeyPreview         = "preview"
	KeyTempDir         = "temp_dir"
	KeyFallbackDir     = "fallback_dir"
	KeyNotifications   = "notifications"
)

// Preferences is one consistent read of the preference keys.
type Preferences struct {
	Bookmark        string `mapstructure:"save_folder_bookmark" validate:"omitempty,base64"`
	UseActiveWindow bool   `mapstructure:"use_active_window"`
	ImageFormat     string `mapstructure:"default_image_format" validate:"omitempty,oneof=png jpg jpeg tiff gif heic PNG JPG JPEG TIFF GIF HEIC"`
	TextFormat      string `mapstructure:"default_text_format" validate:"omitempty,oneof=txt rtf html md markdown TXT RTF HTML MD"`
	Compress        bool   `mapstructure:"compress"`
	Preview         bool   `mapstructure:"preview"`
	TempDir         string `mapstructure:"temp_dir" validate:"omitempty,dir"`
	FallbackDir     string `mapstructure:"fallback_dir"`
	Notifications   bool   `mapstructure:"notifications"`
}

// BookmarkData decodes the stored bookmark. Nil when none is set.
func (p Preferences) BookmarkData() []byte {
	if p.Bookmark == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(p.Bookmark)
	if err != nil {
		return nil
	}
	return b
}

// Format returns the preferred format for kind.
func (p Preferences) Format(k content.Kind) content.Format {
	return content.DefaultFormat(k, p.ImageFormat, p.TextFormat)
}

var defaults = map[string]any{
	KeyBookmark:        "",
	KeyUseActiveWindow: false,
	KeyImageFormat:     string(content.FormatPNG),
	KeyTextFormat:      string(content.FormatTXT),
	KeyCompress:        false,
	KeyPreview:         false,
	KeyTempDir:         "",
	KeyFallbackDir:     "",
	KeyNotifications:   true,
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Store is a viper-backed preference store.
type Store struct {
	mu       sync.Mutex
	v        *viper.Viper
	validate *validator.Validate
	log      *slog.Logger

	// WritePath is where preferences are first written when no config
	// file is in use. Empty keeps such writes in memory.
	WritePath string
}

// New wraps v, which should hold only preference keys and their config
// file, and registers the defaults.
func New(v *viper.Viper, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	SetDefaults(v)
	return &Store{v: v, validate: validator.New(), log: log.With("component", "prefs")}
}

// Load re-reads the config file and returns validated preferences.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.v.ConfigFileUsed() != "" {
		if err := s.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Preferences{}, fmt.Errorf("preferences: %w", err)
			}
		}
	}

	var p Preferences
	if err := s.v.Unmarshal(&p); err != nil {
		return Preferences{}, fmt.Errorf("preferences: %w", err)
	}
	if err := s.validate.Struct(p); err != nil {
		return Preferences{}, fmt.Errorf("preferences: %w", err)
	}
	return p, nil
}

// SetCompress persists the compress-by-default toggle.
func (s *Store) SetCompress(on bool) error { return s.set(KeyCompress, on) }

// SetDefaultFormat persists f as the default for kind's format family.
// Kinds with a single fixed format are ignored.
func (s *Store) SetDefaultFormat(k content.Kind, f content.Format) error {
	if !content.Supports(k, f) {
		return fmt.Errorf("preferences: %q is not a %s format", f, k)
	}
	switch k {
	case content.KindImage:
		return s.set(KeyImageFormat, string(f))
	case content.KindText, content.KindRTF:
		return s.set(KeyTextFormat, string(f))
	default:
		return nil
	}
}

// SetBookmark persists bookmark data for the custom save folder.
func (s *Store) SetBookmark(data []byte) error {
	return s.set(KeyBookmark, base64.StdEncoding.EncodeToString(data))
}

// Reset restores every preference to its built-in default.
func (s *Store) Reset() error { return s.write(defaults) }

func (s *Store) set(key string, val any) error {
	return s.write(map[string]any{key: val})
}

// write persists vals. The file is rewritten through a scratch viper so the
// store's own instance never holds overrides: those would mask later edits
// made to the file by someone else.
func (s *Store) write(vals map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.v.ConfigFileUsed()
	if path == "" {
		path = s.WritePath
	}
	if path == "" {
		for k, val := range vals {
			s.v.Set(k, val)
		}
		return nil
	}

	w := viper.New()
	w.SetConfigFile(path)
	if err := w.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("write preferences: %w", err)
		}
	}
	for k, val := range vals {
		w.Set(k, val)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := w.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if s.v.ConfigFileUsed() == "" {
		s.v.SetConfigFile(path)
	}
	s.log.Debug("preferences saved", "keys", len(vals), "file", path)
	return nil
}
