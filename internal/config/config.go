package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML config file.
const FileEnv = "LIFEHUB_CONFIG"

// Config holds all configuration for the application.
type Config struct {
	DBPath           string        `yaml:"db_path"`
	BackupDir        string        `yaml:"backup_dir"`
	BackupRetain     int           `yaml:"backup_retain"`
	StoreLockTimeout time.Duration `yaml:"store_lock_timeout"`

	MusicLibraryPath string `yaml:"music_library_path"`
	BookLibraryPath  string `yaml:"book_library_path"`
	ImageLibraryPath string `yaml:"image_library_path"`
	ProjectsPath     string `yaml:"projects_path"`

	MaxUploadMB int    `yaml:"max_upload_mb"`
	APIPort     string `yaml:"api_port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// An empty LLMBaseURL disables journal generation.
	LLMBaseURL string `yaml:"llm_base_url"`
	LLMAPIKey  string `yaml:"llm_api_key"`
	LLMModel   string `yaml:"llm_model"`

	backupDirDerived bool
}

func defaults() *Config {
	return &Config{
		DBPath:           "./data/LocalDB.db",
		BackupRetain:     10,
		StoreLockTimeout: 5 * time.Second,
		ImageLibraryPath: "./data/images",
		ProjectsPath:     "./data/projects",
		MaxUploadMB:      512,
		APIPort:          "9000",
		LogLevel:         "info",
		LogFormat:        "text",
		LLMModel:         "Llama-3.1-8B-Instruct",
	}
}

// Load reads configuration and returns a Config struct. Sources, lowest
// precedence first: built-in defaults, the YAML file named by LIFEHUB_CONFIG,
// a .env file found in the current directory or a parent, and environment
// variables. Variables already set in the environment are never overridden
// by the .env file.
func Load() (*Config, error) {
	// Try to find .env by walking up from the working directory
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
		cfg.backupDirDerived = true
	}
	if err := cfg.ensureDirs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// OverrideDBPath points the config at another store file. A backup directory
// that was derived from the old path follows the new one.
func (c *Config) OverrideDBPath(path string) error {
	if path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	c.DBPath = path
	if c.backupDirDerived {
		c.BackupDir = filepath.Join(filepath.Dir(path), "backups")
	}
	return c.ensureDirs()
}

func (c *Config) ensureDirs() error {
	for _, dir := range []string{filepath.Dir(c.DBPath), c.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}

// loadYAML overlays the YAML file at path onto cfg.
func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DB_PATH":            &cfg.DBPath,
		"BACKUP_DIR":         &cfg.BackupDir,
		"MUSIC_LIBRARY_PATH": &cfg.MusicLibraryPath,
		"BOOK_LIBRARY_PATH":  &cfg.BookLibraryPath,
		"IMAGE_LIBRARY_PATH": &cfg.ImageLibraryPath,
		"PROJECTS_PATH":      &cfg.ProjectsPath,
		"API_PORT":           &cfg.APIPort,
		"LOG_LEVEL":          &cfg.LogLevel,
		"LOG_FORMAT":         &cfg.LogFormat,
		"LOG_FILE":           &cfg.LogFile,
		"LLM_BASE_URL":       &cfg.LLMBaseURL,
		"LLM_API_KEY":        &cfg.LLMAPIKey,
		"LLM_MODEL":          &cfg.LLMModel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BACKUP_RETAIN": &cfg.BackupRetain,
		"MAX_UPLOAD_MB": &cfg.MaxUploadMB,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a valid integer: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("STORE_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STORE_LOCK_TIMEOUT must be a duration such as 5s: %w", err)
		}
		cfg.StoreLockTimeout = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.BackupRetain < 0 {
		return fmt.Errorf("BACKUP_RETAIN must not be negative")
	}
	if c.MaxUploadMB < 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must not be negative")
	}
	if c.StoreLockTimeout <= 0 {
		return fmt.Errorf("STORE_LOCK_TIMEOUT must be greater than 0")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// MaxUploadBytes is the request body limit; zero means unlimited.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// LibraryRoots maps library kinds to their configured roots. Kinds without a
// root are omitted.
func (c *Config) LibraryRoots() map[string]string {
	roots := map[string]string{}
	if c.MusicLibraryPath != "" {
		roots["music"] = c.MusicLibraryPath
	}
	if c.BookLibraryPath != "" {
		roots["books"] = c.BookLibraryPath
	}
	return roots
}
