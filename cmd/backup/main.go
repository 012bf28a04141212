package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"medivize/config"
	"medivize/models"
	"medivize/services"
	"medivize/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

type BackupConfig struct {
	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"3306"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" required:"true"`
	BackupPrefix    string `envconfig:"BACKUP_S3_PREFIX" default:"catalog-backups/"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// appConfig übersetzt die Backup-Variablen in die Felder, die storage erwartet.
func (c BackupConfig) appConfig() *config.Config {
	return &config.Config{
		DBDriver:       c.DBDriver,
		DBHost:         c.DBHost,
		DBPort:         c.DBPort,
		DBUser:         c.DBUser,
		DBPassword:     c.DBPassword,
		DBName:         c.DBName,
		DBMaxOpenConns: 1,
		S3URL:          c.BackupEndpoint,
		S3Region:       c.BackupRegion,
		S3Key:          c.BackupAccessKey,
		S3Secret:       c.BackupSecretKey,
		S3Bucket:       c.BackupBucket,
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	logging.Info("Starte Backup-Prozess...")

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	appCfg := cfg.appConfig()
	ctx := context.Background()

	// 1. Katalog exportieren
	db, err := storage.OpenDatabase(appCfg)
	if err != nil {
		logging.Fatal("Fehler beim Öffnen der Datenbank", zap.Error(err))
	}
	if err := storage.Ping(ctx, db); err != nil {
		logging.Fatal("Datenbank nicht erreichbar", zap.Error(err))
	}
	catalog := services.NewCatalogService(db, logging, nil)
	data, count, err := exportCatalog(ctx, catalog)
	if err != nil {
		logging.Fatal("Fehler beim Export des Katalogs", zap.Error(err))
	}

	// 2. S3-Client erstellen
	s3Client, err := storage.NewS3Client(ctx, appCfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup nach S3 hochladen
	key := cfg.BackupPrefix + backupFileName(time.Now())
	if err := upload(ctx, s3Client, cfg.BackupBucket, key, data); err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logging.Info("Backup erfolgreich hochgeladen",
		zap.String("location", fmt.Sprintf("s3://%s/%s", cfg.BackupBucket, key)),
		zap.Int("drugs", count))

	// 4. Alte Backups rotieren
	if err := rotateBackups(ctx, s3Client, cfg.BackupBucket, cfg.BackupPrefix, cfg.KeepBackups, logging); err != nil {
		logging.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}

	logging.Info("Backup-Prozess erfolgreich abgeschlossen.")
}

type catalogLister interface {
	List(ctx context.Context) ([]models.DrugRecord, error)
}

// exportCatalog liefert den Katalog als gzip-komprimiertes JSON-Array.
func exportCatalog(ctx context.Context, catalog catalogLister) ([]byte, int, error) {
	drugs, err := catalog.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gzipWriter).Encode(drugs); err != nil {
		return nil, 0, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(drugs), nil
}

func backupFileName(now time.Time) string {
	return fmt.Sprintf("drugs-%s.json.gz", now.UTC().Format("2006-01-02T15-04-05Z"))
}

func upload(ctx context.Context, client storage.S3API, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}

// rotateBackups behält die keep neuesten Objekte unter prefix und löscht den Rest.
// Fehler beim Löschen einzelner Objekte werden nur geloggt.
func rotateBackups(ctx context.Context, client storage.S3API, bucket, prefix string, keep int, logging *zap.Logger) error {
	var objects []types.Object
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		objects = append(objects, page.Contents...)
	}

	if len(objects) <= keep {
		logging.Info("Keine Rotation nötig", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	for _, obj := range objects[keep:] {
		logging.Info("Lösche altes Backup", zap.String("key", aws.ToString(obj.Key)))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		})
		if err != nil {
			logging.Error("Fehler beim Löschen", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
		}
	}

	return nil
}
