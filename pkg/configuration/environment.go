// Package configuration loads the tool's settings from .env files and the
// process environment. Settings are parsed once into a singleton; every
// command starts by calling Use.
package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/pkg/logging"
)

// Environment names the remote directory instance a run targets. Each has
// its own row in the control workbook's Login sheet and its own OAuth app.
type Environment string

const (
	Dev Environment = "dev"
	Pre Environment = "pre"
	Prd Environment = "prd"
)

// ParseEnvironment validates an environment name from a flag or variable.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case Dev:
		return Dev, nil
	case Pre:
		return Pre, nil
	case Prd:
		return Prd, nil
	}
	return "", fmt.Errorf("invalid environment %q (expected dev|pre|prd)", s)
}

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads whichever of the given .env files exist, walking up to the
// module root when none are present in the working directory.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		if root, ok := findModuleRoot(); ok {
			for _, file := range envFiles {
				candidate := filepath.Join(root, file)
				if fs.FileExists(candidate) {
					existingFiles = append(existingFiles, candidate)
				}
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// OAuthOptions configure the client-credentials grant against the tenant.
// The authority URL and resource come from the workbook's Login sheet; the
// client secret never lives in the workbook.
type OAuthOptions struct {
	ClientID     string `env:"CRM_CLIENT_ID"`
	ClientSecret string `env:"CRM_CLIENT_SECRET"`
	TenantID     string `env:"CRM_TENANT_ID"`
}

// BatchOptions override the bulk-operation pacing.
type BatchOptions struct {
	Size           int           `env:"BATCH_SIZE" envDefault:"10"`
	MaxRetries     int           `env:"BATCH_MAX_RETRIES" envDefault:"3"`
	RetryDelay     time.Duration `env:"BATCH_RETRY_DELAY" envDefault:"5s"`
	ItemDelay      time.Duration `env:"BATCH_ITEM_DELAY" envDefault:"2s"`
	BatchDelay     time.Duration `env:"BATCH_BATCH_DELAY" envDefault:"2s"`
	AttemptTimeout time.Duration `env:"BATCH_ATTEMPT_TIMEOUT" envDefault:"5m"`
}

type Configuration struct {
	OAuth OAuthOptions
	Batch BatchOptions

	// WorkbookPath is the control workbook holding the Login, Create Teams
	// and Assign Teams sheets.
	WorkbookPath string `env:"WORKBOOK_PATH" envDefault:"Data.xlsx"`
	// ExportDir receives the per-park user extraction workbooks.
	ExportDir string `env:"EXPORT_DIR" envDefault:"."`
	// DefaultsPath optionally overrides the built-in role and team names.
	DefaultsPath string `env:"DEFAULTS_PATH" envDefault:""`

	EnvironmentName string `env:"CRM_ENVIRONMENT" envDefault:"dev"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath         string `env:"LOG_PATH" envDefault:"./logs/provisioner.log"`

	environment Environment
	logFile     *os.File
	logger      *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

// Environment is the validated target environment.
func (c *Configuration) Environment() Environment {
	return c.environment
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	environment, err := ParseEnvironment(c.EnvironmentName)
	if err != nil {
		return err
	}
	c.environment = environment

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
