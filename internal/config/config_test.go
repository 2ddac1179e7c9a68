package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cesargomez89/jarvis/internal/constants"
)

func validConfig() Config {
	return Config{
		Port:         "8080",
		DBPath:       "test.db",
		DownloadRoot: "/tmp/music",
		YTDLPPath:    "yt-dlp",
		AudioFormat:  "mp3",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func TestLoad(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "YTDLP_PATH", "AUDIO_FORMAT", "AUTO_START"} {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			defer os.Setenv(key, v)
		}
	}

	cfg := Load()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected Port to be %s, got %s", constants.DefaultPort, cfg.Port)
	}

	if cfg.DBPath != constants.DefaultDBPath {
		t.Errorf("Expected DBPath to be %s, got %s", constants.DefaultDBPath, cfg.DBPath)
	}

	if cfg.YTDLPPath != constants.DefaultYTDLPPath {
		t.Errorf("Expected YTDLPPath to be %s, got %s", constants.DefaultYTDLPPath, cfg.YTDLPPath)
	}

	if cfg.AudioFormat != constants.DefaultAudioFormat {
		t.Errorf("Expected AudioFormat to be %s, got %s", constants.DefaultAudioFormat, cfg.AudioFormat)
	}

	if cfg.AutoStart {
		t.Error("Expected AutoStart to default to false")
	}

	if cfg.DownloadRoot == "" {
		t.Error("Expected DownloadRoot to not be empty")
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("DOWNLOAD_ROOT", "/srv/music")
	t.Setenv("YTDLP_PATH", "/usr/local/bin/yt-dlp")
	t.Setenv("AUDIO_FORMAT", "opus")
	t.Setenv("AUTO_START", "true")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be 9090, got %s", cfg.Port)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected DBPath to be /tmp/test.db, got %s", cfg.DBPath)
	}

	if cfg.DownloadRoot != "/srv/music" {
		t.Errorf("Expected DownloadRoot to be /srv/music, got %s", cfg.DownloadRoot)
	}

	if cfg.YTDLPPath != "/usr/local/bin/yt-dlp" {
		t.Errorf("Expected YTDLPPath to be /usr/local/bin/yt-dlp, got %s", cfg.YTDLPPath)
	}

	if cfg.AudioFormat != "opus" {
		t.Errorf("Expected AudioFormat to be opus, got %s", cfg.AudioFormat)
	}

	if !cfg.AutoStart {
		t.Error("Expected AutoStart to be true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"invalid port - not a number", func(c *Config) { c.Port = "abc" }, true},
		{"invalid port - out of range", func(c *Config) { c.Port = "99999" }, true},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"empty download root", func(c *Config) { c.DownloadRoot = "" }, true},
		{"relative download root", func(c *Config) { c.DownloadRoot = "music" }, true},
		{"empty yt-dlp path", func(c *Config) { c.YTDLPPath = "" }, true},
		{"invalid audio format", func(c *Config) { c.AudioFormat = "aiff" }, true},
		{"best audio format", func(c *Config) { c.AudioFormat = "best" }, false},
		{"invalid log level", func(c *Config) { c.LogLevel = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "PORT") || !strings.Contains(err.Error(), "LOG_FORMAT") {
		t.Errorf("Expected both problems reported, got: %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	value := getEnv("TEST_VAR", "default")
	if value != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", value)
	}

	value = getEnv("NON_EXISTENT_VAR", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "not-a-bool")
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Error("Expected fallback for unparsable value")
	}

	t.Setenv("TEST_BOOL", "0")
	if got := getEnvBool("TEST_BOOL", true); got {
		t.Error("Expected false for '0'")
	}
}

func TestDownloadRootDefault(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME environment variable not set")
	}
	if v, ok := os.LookupEnv("DOWNLOAD_ROOT"); ok {
		os.Unsetenv("DOWNLOAD_ROOT")
		defer os.Setenv("DOWNLOAD_ROOT", v)
	}

	cfg := Load()
	expectedDir := filepath.Join(home, "Music")
	if cfg.DownloadRoot != expectedDir {
		t.Errorf("Expected DownloadRoot to be %s, got %s", expectedDir, cfg.DownloadRoot)
	}
}

func TestLoadRelativeDownloadRoot(t *testing.T) {
	t.Setenv("DOWNLOAD_ROOT", "music")

	cfg := Load()
	want, err := filepath.Abs("music")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DownloadRoot != want {
		t.Errorf("Expected DownloadRoot to be %s, got %s", want, cfg.DownloadRoot)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected resolved root to validate, got: %v", err)
	}
}

func TestAbsPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/srv/music", "/srv/music"},
		{"music", filepath.Join(wd, "music")},
		{"./a/../b", filepath.Join(wd, "b")},
	}
	for _, tt := range tests {
		if got := AbsPath(tt.in); got != tt.want {
			t.Errorf("AbsPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
