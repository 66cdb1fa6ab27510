package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/supreme-majesty/backdrop-console/pkg/util"
)

// ConfigFile is the optional per-installation config read from the Backdrop root.
const ConfigFile = ".b.yaml"

var bootstrapFile = filepath.Join("core", "includes", "bootstrap.inc")

// ErrRootNotFound is returned when no Backdrop installation encloses the start path.
var ErrRootNotFound = errors.New("no Backdrop installation found")

// Config represents the installation-specific configuration
type Config struct {
	Sites    map[string][]string `yaml:"sites"`     // Extra URLs per site directory
	Database DatabaseConfig      `yaml:"database"`  // Database probe override
	ErrorLog string              `yaml:"error_log"` // PHP error log followed by `b log`
}

// DatabaseConfig overrides the credentials read from settings.php.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// IsSet reports whether any override field was provided.
func (c DatabaseConfig) IsSet() bool {
	return c.Host != "" || c.Port != "" || c.User != "" || c.Password != "" || c.Name != ""
}

// FindRoot walks up from start until it finds a Backdrop root.
func FindRoot(start string) (string, error) {
	root, ok := util.FindUp(start, bootstrapFile)
	if !ok {
		return "", fmt.Errorf("%w (searched upwards from %s)", ErrRootNotFound, start)
	}
	return root, nil
}

// IsRoot reports whether path looks like a Backdrop root.
func IsRoot(path string) bool {
	return util.Exists(filepath.Join(path, bootstrapFile))
}

// Detect reads .b.yaml and .env from the Backdrop root.
// Environment variables win over the YAML file.
func Detect(root string) (*Config, error) {
	config := &Config{Sites: map[string][]string{}}

	// 1. .b.yaml
	yamlPath := filepath.Join(root, ConfigFile)
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	if config.Sites == nil {
		config.Sites = map[string][]string{}
	}

	// 2. .env (never overrides variables already set in the process)
	envPath := filepath.Join(root, ".env")
	if util.Exists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// 3. B_* overrides
	applyEnv(&config.Database.Host, "B_DB_HOST")
	applyEnv(&config.Database.Port, "B_DB_PORT")
	applyEnv(&config.Database.User, "B_DB_USER")
	applyEnv(&config.Database.Password, "B_DB_PASSWORD")
	applyEnv(&config.Database.Name, "B_DB_NAME")
	applyEnv(&config.ErrorLog, "B_ERROR_LOG")

	if config.ErrorLog != "" && !filepath.IsAbs(config.ErrorLog) {
		config.ErrorLog = filepath.Join(root, config.ErrorLog)
	}

	return config, nil
}

func applyEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

var versionPattern = regexp.MustCompile(`define\(\s*['"]BACKDROP_VERSION['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)

// Version extracts BACKDROP_VERSION from core/includes/bootstrap.inc.
func Version(root string) string {
	data, err := os.ReadFile(filepath.Join(root, bootstrapFile))
	if err != nil {
		return "Unknown"
	}
	m := versionPattern.FindSubmatch(data)
	if m == nil {
		return "Unknown"
	}
	return string(m[1])
}
