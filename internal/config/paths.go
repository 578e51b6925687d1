package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AutoLogFile is the [logging] file value selecting the platform log directory.
const AutoLogFile = "auto"

// LogDirectory returns the directory for rotating client logs.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\CloudDrive\logs
//   - Unix: $XDG_CONFIG_HOME/clouddrive/logs (usually ~/.config/clouddrive/logs)
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "clouddrive-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "CloudDrive", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "clouddrive-logs")
		}
		return filepath.Join(homeDir, ".config", "clouddrive", "logs")
	}
	return filepath.Join(configDir, "clouddrive", "logs")
}

// ResolvedLogFile returns the log file path to hand to the logger, or "" for console only.
// The directory is created with owner-only permissions.
func (cfg *Config) ResolvedLogFile() (string, error) {
	file := strings.TrimSpace(cfg.LogFile)
	if file == "" {
		return "", nil
	}
	if strings.EqualFold(file, AutoLogFile) {
		file = filepath.Join(LogDirectory(), "drive.log")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return "", err
	}
	return file, nil
}
