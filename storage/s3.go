package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"medivize/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API ist der Ausschnitt des S3-Clients, den S3Store benötigt.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// S3Store legt Uploads in einem Bucket unter Prefix ab.
type S3Store struct {
	Client  S3API
	Bucket  string
	Prefix  string
	BaseURL string
}

// NewS3Store erstellt einen S3Store aus der Konfiguration.
func NewS3Store(client S3API, cfg *config.Config) *S3Store {
	return &S3Store{
		Client:  client,
		Bucket:  cfg.S3Bucket,
		Prefix:  cfg.S3Prefix,
		BaseURL: strings.TrimSuffix(cfg.S3URL, "/"),
	}
}

func (s *S3Store) key(name string) string {
	return s.Prefix + name
}

// Save lädt data nach Prefix+name hoch und gibt die Objekt-URL zurück.
func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := s.key(name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.Client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.BaseURL, s.Bucket, key), nil
}

// Delete entfernt das Objekt Prefix+name.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// Prune löscht alle Objekte unter Prefix, die vor olderThan geändert wurden.
func (s *S3Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, err
		}
		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(olderThan) {
				continue
			}
			if _, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    obj.Key,
			}); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
