// Package config provides configuration management for the drive client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/ini.v1"

	"github.com/clouddrive/drive/internal/constants"
)

// Environment overrides. Flags take precedence over these, and these over the file.
const (
	EnvAPIURL  = "DRIVE_API_URL"
	EnvProfile = "DRIVE_PROFILE"
)

// DefaultAPIURL is the backend the web client talks to.
const DefaultAPIURL = "https://backend-2-up29.onrender.com"

// Config is the client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\clouddrive\config
//   - Unix: ~/.config/clouddrive/config
//
// INI format:
//
//	[drive]
//	api_url = https://backend-2-up29.onrender.com
//	request_timeout_seconds = 30
//	mutation_timeout_seconds = 60
//	collation = en
//	confirm_delete_by_name = false
//	profile = /home/me/.config/clouddrive/profile.db
//
//	[proxy]
//	mode = no-proxy
//	host = proxy.corp
//	port = 8080
//	user =
//	password =
//	no_proxy = localhost,*.internal
//
//	[logging]
//	level = info
//	file =
type Config struct {
	APIURL              string
	RequestTimeout      time.Duration
	MutationTimeout     time.Duration
	Collation           string // BCP 47 tag used for by-name sorting
	ConfirmDeleteByName bool
	ProfilePath         string // bbolt device profile; empty means DefaultProfilePath

	// Proxy settings
	ProxyMode     string // no-proxy, system, basic, ntlm
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string

	LogLevel string
	LogFile  string
}

// Validation errors
var (
	ErrMissingAPIURL          = errors.New("api_url is required")
	ErrInvalidAPIURL          = errors.New("api_url must be an absolute http(s) URL")
	ErrInvalidRequestTimeout  = errors.New("request_timeout_seconds must be between 1 and 600")
	ErrInvalidMutationTimeout = errors.New("mutation_timeout_seconds must be between 1 and 3600")
	ErrInvalidCollation       = errors.New("collation must be a valid language tag")
	ErrInvalidProxyMode       = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost       = errors.New("proxy host is required for basic and ntlm modes")
	ErrInvalidProxyPort       = errors.New("proxy port must be between 0 and 65535")
)

// ConfigDirectory returns the directory holding the config file and device profile.
// - Windows: %USERPROFILE%\.config\clouddrive
// - Unix: ~/.config/clouddrive
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", "clouddrive"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clouddrive"), nil
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// DefaultProfilePath returns the default path for the device profile database.
func DefaultProfilePath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.db"), nil
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		RequestTimeout:  constants.DefaultRequestTimeout,
		MutationTimeout: constants.DefaultMutationTimeout,
		Collation:       "en",
		ProxyMode:       "no-proxy",
		LogLevel:        "info",
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	driveSection := iniFile.Section("drive")
	cfg.APIURL = driveSection.Key("api_url").MustString(cfg.APIURL)
	cfg.RequestTimeout = time.Duration(driveSection.Key("request_timeout_seconds").MustInt(int(cfg.RequestTimeout/time.Second))) * time.Second
	cfg.MutationTimeout = time.Duration(driveSection.Key("mutation_timeout_seconds").MustInt(int(cfg.MutationTimeout/time.Second))) * time.Second
	cfg.Collation = driveSection.Key("collation").MustString(cfg.Collation)
	cfg.ConfirmDeleteByName = driveSection.Key("confirm_delete_by_name").MustBool(false)
	cfg.ProfilePath = driveSection.Key("profile").String()

	proxySection := iniFile.Section("proxy")
	cfg.ProxyMode = proxySection.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxySection.Key("host").String()
	cfg.ProxyPort = proxySection.Key("port").MustInt(0)
	cfg.ProxyUser = proxySection.Key("user").String()
	cfg.ProxyPassword = proxySection.Key("password").String()
	cfg.NoProxy = proxySection.Key("no_proxy").String()

	logSection := iniFile.Section("logging")
	cfg.LogLevel = logSection.Key("level").MustString(cfg.LogLevel)
	cfg.LogFile = logSection.Key("file").String()

	return cfg, nil
}

// ApplyEnv overlays environment overrides onto cfg.
func (cfg *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProfile)); v != "" {
		cfg.ProfilePath = v
	}
}

// ResolvedProfilePath returns ProfilePath or the default location.
func (cfg *Config) ResolvedProfilePath() (string, error) {
	if cfg.ProfilePath != "" {
		return cfg.ProfilePath, nil
	}
	return DefaultProfilePath()
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist.
// A proxy password is stored in the file - ensure appropriate file permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	driveSection, err := iniFile.NewSection("drive")
	if err != nil {
		return fmt.Errorf("failed to create drive section: %w", err)
	}
	driveSection.Key("api_url").SetValue(cfg.APIURL)
	driveSection.Key("request_timeout_seconds").SetValue(strconv.Itoa(int(cfg.RequestTimeout / time.Second)))
	driveSection.Key("mutation_timeout_seconds").SetValue(strconv.Itoa(int(cfg.MutationTimeout / time.Second)))
	driveSection.Key("collation").SetValue(cfg.Collation)
	driveSection.Key("confirm_delete_by_name").SetValue(strconv.FormatBool(cfg.ConfirmDeleteByName))
	if cfg.ProfilePath != "" {
		driveSection.Key("profile").SetValue(cfg.ProfilePath)
	}

	proxySection, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxySection.Key("mode").SetValue(cfg.ProxyMode)
	proxySection.Key("host").SetValue(cfg.ProxyHost)
	proxySection.Key("port").SetValue(strconv.Itoa(cfg.ProxyPort))
	proxySection.Key("user").SetValue(cfg.ProxyUser)
	proxySection.Key("password").SetValue(cfg.ProxyPassword)
	proxySection.Key("no_proxy").SetValue(cfg.NoProxy)

	logSection, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logSection.Key("level").SetValue(cfg.LogLevel)
	logSection.Key("file").SetValue(cfg.LogFile)

	// Use temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable.
// Returns nil if valid, or a sentinel error describing what's wrong.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}
	if cfg.RequestTimeout < time.Second || cfg.RequestTimeout > 600*time.Second {
		return ErrInvalidRequestTimeout
	}
	if cfg.MutationTimeout < time.Second || cfg.MutationTimeout > time.Hour {
		return ErrInvalidMutationTimeout
	}
	if _, err := cfg.CollationTag(); err != nil {
		return ErrInvalidCollation
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}
	if cfg.ProxyPort < 0 || cfg.ProxyPort > 65535 {
		return ErrInvalidProxyPort
	}

	return nil
}

// CollationTag parses Collation as a language tag.
func (cfg *Config) CollationTag() (language.Tag, error) {
	if strings.TrimSpace(cfg.Collation) == "" {
		return language.English, nil
	}
	return language.Parse(cfg.Collation)
}
