package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_NAME", "medivize")
	t.Setenv("CLASSIFIER_URL", "http://ml.local/predict")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.DBDriver != "mysql" || cfg.DBPort != 3306 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.UploadMaxBytes != 5<<20 || cfg.ClassifierTimeout != 30*time.Second || cfg.UploadRetention != 0 {
		t.Errorf("unexpected upload/classifier defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 4 || cfg.CORSOrigins[3] != "https://medivize.netlify.app" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.ExposeErrorDetails {
		t.Error("error details must be hidden by default")
	}
}

func TestLoadRequiresClassifierURL(t *testing.T) {
	t.Setenv("DB_NAME", "medivize")
	// t.Setenv stellt den alten Wert nach dem Test wieder her.
	t.Setenv("CLASSIFIER_URL", "unused")
	os.Unsetenv("CLASSIFIER_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without CLASSIFIER_URL")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DBDriver: "postgres", DBMaxOpenConns: 5, UploadMaxBytes: 1, UploadBackend: "local"}
	}

	c := valid()
	if err := c.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c = valid()
	c.DBDriver = "oracle"
	if err := c.Validate(); err == nil {
		t.Error("unknown driver accepted")
	}

	c = valid()
	c.UploadBackend = "s3"
	c.S3Bucket = "b"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "S3_KEY, S3_REGION, S3_SECRET, S3_URL") {
		t.Errorf("missing s3 vars: %v", err)
	}
}

func TestDSNs(t *testing.T) {
	c := Config{DBHost: "db", DBPort: 5432, DBUser: "u", DBPassword: "p", DBName: "n"}
	if got := c.PostgresDSN(); got != "host=db user=u password=p dbname=n port=5432 sslmode=disable" {
		t.Errorf("PostgresDSN = %q", got)
	}
	if got := c.MySQLDSN(); !strings.HasPrefix(got, "u:p@tcp(db:5432)/n?") {
		t.Errorf("MySQLDSN = %q", got)
	}
}
