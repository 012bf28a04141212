package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// Datenbank: mysql (Standard wie im Altsystem), postgres oder sqlite
	DBDriver       string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"3306"`
	DBUser         string `envconfig:"DB_USER"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	DBName         string `envconfig:"DB_NAME" required:"true"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`

	// Externer Klassifikator (ML API)
	ClassifierURL      string        `envconfig:"CLASSIFIER_URL" required:"true"`
	ClassifierUsername string        `envconfig:"CLASSIFIER_USERNAME"`
	ClassifierPassword string        `envconfig:"CLASSIFIER_PASSWORD"`
	ClassifierTimeout  time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"30s"`

	// Upload-Ablage: local oder s3
	UploadBackend   string        `envconfig:"UPLOAD_BACKEND" default:"local"`
	UploadDir       string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	UploadMaxBytes  int64         `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`
	UploadRetention time.Duration `envconfig:"UPLOAD_RETENTION" default:"0"`
	CronSchedule    string        `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION"`
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"uploads/"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:3010,http://localhost:8080,https://medivize.netlify.app"`

	// Rohe Fehlermeldungen im "error"-Feld nur auf ausdrücklichen Wunsch
	ExposeErrorDetails bool `envconfig:"EXPOSE_ERROR_DETAILS" default:"false"`
	SeedDefaultDrugs   bool `envconfig:"SEED_DEFAULT_DRUGS" default:"false"`
}

// PostgresDSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// MySQLDSN gibt den Data Source Name für die MySQL-Verbindung zurück.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Validate prüft Werte, die envconfig allein nicht abdecken kann.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	switch c.UploadBackend {
	case "local":
	case "s3":
		var missing []string
		for name, v := range map[string]string{
			"S3_URL": c.S3URL, "S3_REGION": c.S3Region, "S3_KEY": c.S3Key,
			"S3_SECRET": c.S3Secret, "S3_BUCKET": c.S3Bucket,
		} {
			if v == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("UPLOAD_BACKEND=s3 requires %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unsupported UPLOAD_BACKEND %q", c.UploadBackend)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, c.Validate()
}
