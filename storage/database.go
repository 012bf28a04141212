package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medivize/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase öffnet den Verbindungspool zur Medikamenten-Datenbank.
// Anfragen über DB_MAX_OPEN_CONNS hinaus warten auf eine freie Verbindung.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.MySQLDSN())
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DBName)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Ping prüft die Verbindung und ergänzt bei typischen Netzwerkfehlern einen Hinweis.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
			return fmt.Errorf("%w (check that the database server is running and reachable; free hosted databases may sleep when idle)", err)
		}
		return err
	}
	return nil
}
