// Package config handles configuration loading and validation for the lprd
// daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Library configures the native recognition engine.
	Library LibraryConfig `toml:"library"`

	// Watch configures inbox directory monitoring.
	Watch WatchConfig `toml:"watch"`

	// Store configures scan persistence.
	Store StoreConfig `toml:"store"`

	// HTTP configures the JSON API.
	HTTP HTTPConfig `toml:"http"`

	// Imaging configures thumbnail and preprocessing behavior.
	Imaging ImagingConfig `toml:"imaging"`

	// Log configures logging.
	Log LogConfig `toml:"log"`
}

// LibraryConfig holds the native library settings.
type LibraryConfig struct {
	// Path is the filesystem path of the vendor dynamic library.
	Path string `toml:"path"`

	// TextBufferSize is the plate text scratch buffer length in bytes.
	TextBufferSize int `toml:"text_buffer_size"`

	// LicenseKey is used for online activation when ActivateOnStart is set.
	// Prefer the LPRD_LICENSE_KEY environment variable over writing it to
	// disk.
	LicenseKey string `toml:"license_key"`

	// ActivateOnStart performs online activation at daemon startup when the
	// engine reports an unlicensed state.
	ActivateOnStart bool `toml:"activate_on_start"`
}

// WatchConfig holds inbox monitoring settings.
type WatchConfig struct {
	// Enabled determines whether the inbox watcher runs.
	Enabled bool `toml:"enabled"`

	// Dir is the directory watched for incoming images.
	Dir string `toml:"dir"`

	// Extensions lists the image file extensions picked up, lower case with
	// leading dot.
	Extensions []string `toml:"extensions"`

	// DebounceMs is how long a file must sit unchanged before it is
	// processed. Cameras and scp both write in bursts.
	DebounceMs int `toml:"debounce_ms"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `toml:"path"`
}

// HTTPConfig holds the JSON API settings.
type HTTPConfig struct {
	// Enabled determines whether the HTTP API runs.
	Enabled bool `toml:"enabled"`

	// Addr is the listen address, host:port.
	Addr string `toml:"addr"`

	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `toml:"cors_origins"`
}

// ImagingConfig holds thumbnail and preprocessing settings.
type ImagingConfig struct {
	// ThumbnailMaxPx bounds the longer edge of stored scan thumbnails.
	ThumbnailMaxPx int `toml:"thumbnail_max_px"`

	// OCRMinWidth is the width images are upscaled to before the fallback
	// OCR backend runs, in pixels.
	OCRMinWidth int `toml:"ocr_min_width"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	dir := DataDir()

	return &Config{
		Library: LibraryConfig{
			Path:           defaultLibraryPath(),
			TextBufferSize: 64,
		},
		Watch: WatchConfig{
			Enabled:    false,
			Dir:        filepath.Join(dir, "inbox"),
			Extensions: []string{".jpg", ".jpeg", ".png", ".bmp"},
			DebounceMs: 1500,
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "scans.db"),
		},
		HTTP: HTTPConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:8380",
			CORSOrigins: []string{"*"},
		},
		Imaging: ImagingConfig{
			ThumbnailMaxPx: 320,
			OCRMinWidth:    600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path returns the default configuration file path.
func Path() string {
	return filepath.Join(DataDir(), "lprd.toml")
}

// Load reads configuration from the given path, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies LPRD_ prefixed environment overrides on top of
// whatever was loaded from disk.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LPRD_LIBRARY_PATH"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("LPRD_TEXT_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Library.TextBufferSize = n
		}
	}
	if v := os.Getenv("LPRD_LICENSE_KEY"); v != "" {
		c.Library.LicenseKey = v
	}
	if v := os.Getenv("LPRD_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
	}
	if v := os.Getenv("LPRD_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("LPRD_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("LPRD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Library.Path == "" {
		return fmt.Errorf("library.path is required")
	}
	if c.Library.TextBufferSize <= 0 {
		return fmt.Errorf("library.text_buffer_size must be positive, got %d", c.Library.TextBufferSize)
	}
	if c.Watch.Enabled {
		if c.Watch.Dir == "" {
			return fmt.Errorf("watch.dir is required when watch.enabled is set")
		}
		if c.Watch.DebounceMs <= 0 {
			return fmt.Errorf("watch.debounce_ms must be positive, got %d", c.Watch.DebounceMs)
		}
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required when http.enabled is set")
	}
	if c.Imaging.ThumbnailMaxPx <= 0 {
		return fmt.Errorf("imaging.thumbnail_max_px must be positive, got %d", c.Imaging.ThumbnailMaxPx)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Store.Path),
	}
	if c.Watch.Enabled {
		dirs = append(dirs, c.Watch.Dir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DataDir returns the base lprd data directory, honoring the LPRD_DATA_DIR
// environment override.
func DataDir() string {
	if envDir := os.Getenv("LPRD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return platformDataDir()
}

func platformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "lprd")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "lprd")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "lprd")
	default:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "lprd")
		}
		return filepath.Join(os.Getenv("HOME"), ".local", "share", "lprd")
	}
}

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libDTKLPR5.dylib"
	case "windows":
		return `C:\Program Files\DTK LPR SDK\DTKLPR5.dll`
	default:
		return "/usr/lib/libDTKLPR5.so"
	}
}
