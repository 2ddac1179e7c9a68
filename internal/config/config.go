package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cesargomez89/jarvis/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DBPath       string
	DownloadRoot string
	YTDLPPath    string
	AudioFormat  string
	LogLevel     string
	LogFormat    string
	AutoStart    bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(home, "Music")

	return &Config{
		Port:         getEnv("PORT", constants.DefaultPort),
		DBPath:       getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadRoot: AbsPath(getEnv("DOWNLOAD_ROOT", defaultRoot)),
		YTDLPPath:    getEnv("YTDLP_PATH", constants.DefaultYTDLPPath),
		AudioFormat:  getEnv("AUDIO_FORMAT", constants.DefaultAudioFormat),
		LogLevel:     getEnv("LOG_LEVEL", constants.DefaultLogLevel),
		LogFormat:    getEnv("LOG_FORMAT", constants.DefaultLogFormat),
		AutoStart:    getEnvBool("AUTO_START", false),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadRoot == "" {
		errors = append(errors, "DOWNLOAD_ROOT cannot be empty")
	} else if !filepath.IsAbs(c.DownloadRoot) {
		errors = append(errors, fmt.Sprintf("DOWNLOAD_ROOT must be an absolute path, got: %s", c.DownloadRoot))
	}

	if c.YTDLPPath == "" {
		errors = append(errors, "YTDLP_PATH cannot be empty")
	}

	validFormats := map[string]bool{
		constants.AudioFormatBest: true,
		constants.AudioFormatMP3:  true,
		constants.AudioFormatM4A:  true,
		constants.AudioFormatOpus: true,
		constants.AudioFormatFLAC: true,
		constants.AudioFormatWAV:  true,
	}
	if !validFormats[c.AudioFormat] {
		errors = append(errors, fmt.Sprintf("AUDIO_FORMAT must be one of: best, mp3, m4a, opus, flac, wav, got: %s", c.AudioFormat))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// AbsPath resolves path against the working directory. Empty stays empty.
func AbsPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
