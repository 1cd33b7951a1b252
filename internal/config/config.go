package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Backend selection
	DataBackend string

	// JSON snapshot backend
	SnapshotPath string
	FlushDelay   time.Duration

	// SQLite backend
	SQLiteDBPath string

	// Reporting
	PageSize int

	// Assistant (receipt scanning, advice)
	GeminiModel string

	// Backup
	BackupDir            string
	BackupKeep           int
	DriveFolderID        string
	DriveCredentialsFile string
	DriveCredentialsJSON string
}

func Load() *Config {
	cfg := &Config{
		DataBackend: getEnv("TALLY_BACKEND", "json"),

		SnapshotPath: getEnv("TALLY_SNAPSHOT_PATH", "./data/tally.json"),
		FlushDelay:   getEnvDuration("TALLY_FLUSH_DELAY", 500*time.Millisecond),

		SQLiteDBPath: getEnv("TALLY_SQLITE_DB_PATH", "./data/tally.db"),

		PageSize: getEnvInt("TALLY_PAGE_SIZE", 10),

		GeminiModel: getEnv("TALLY_GEMINI_MODEL", ""),

		BackupDir:            getEnv("TALLY_BACKUP_DIR", "./backups"),
		BackupKeep:           getEnvInt("TALLY_BACKUP_KEEP", 10),
		DriveFolderID:        getEnv("TALLY_DRIVE_FOLDER_ID", ""),
		DriveCredentialsFile: getEnv("TALLY_DRIVE_CREDENTIALS_FILE", ""),
		DriveCredentialsJSON: getEnv("TALLY_DRIVE_CREDENTIALS_JSON", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"json", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "json" {
		if c.SnapshotPath == "" {
			errors = append(errors, "snapshot path cannot be empty when using json backend")
		} else if err := ensureParentDir(c.SnapshotPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureParentDir(c.SQLiteDBPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.PageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be at least 1", c.PageSize))
	} else if c.PageSize > 500 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be at most 500", c.PageSize))
	}

	if c.FlushDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid flush delay %v: must not be negative", c.FlushDelay))
	} else if c.FlushDelay > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid flush delay %v: must be at most 1 minute", c.FlushDelay))
	}

	if c.BackupKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid backup keep count %d: must be at least 1", c.BackupKeep))
	}

	// Drive backup needs credentials one way or the other; both set is
	// ambiguous, neither set means Drive stays disabled.
	if c.DriveFolderID != "" {
		hasFile := c.DriveCredentialsFile != ""
		hasJSON := c.DriveCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either TALLY_DRIVE_CREDENTIALS_FILE or TALLY_DRIVE_CREDENTIALS_JSON must be provided when a Drive folder is configured")
		}
		if hasFile {
			if _, err := os.Stat(c.DriveCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Drive credentials file does not exist: %s", c.DriveCredentialsFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DriveCredentials resolves the service-account JSON from whichever source
// is configured.
func (c *Config) DriveCredentials() ([]byte, error) {
	if c.DriveCredentialsJSON != "" {
		return []byte(c.DriveCredentialsJSON), nil
	}
	if c.DriveCredentialsFile != "" {
		data, err := os.ReadFile(c.DriveCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read drive credentials file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("no drive credentials configured")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
