package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
)

func TestLocalStoreSaveAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewLocalStore(fs, "uploads", "/uploads/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	url, err := store.Save(context.Background(), "drug-1.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/drug-1.png" {
		t.Errorf("url = %q", url)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("uploads", "drug-1.png")); !ok {
		t.Fatal("file not written")
	}

	f, err := store.FileSystem().Open("/drug-1.png")
	if err != nil {
		t.Fatalf("open via http fs: %v", err)
	}
	body, _ := io.ReadAll(f)
	f.Close()
	if string(body) != "png" {
		t.Errorf("served body = %q", body)
	}

	if err := store.Delete(context.Background(), "drug-1.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("uploads", "drug-1.png")); ok {
		t.Fatal("file still present after Delete")
	}
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _ := NewLocalStore(fs, "uploads", "/uploads")
	if _, err := store.Save(context.Background(), "../escape.png", []byte("x"), ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := afero.Exists(fs, "escape.png"); ok {
		t.Fatal("file escaped the upload directory")
	}
}

func TestLocalStorePrune(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _ := NewLocalStore(fs, "uploads", "/uploads")
	ctx := context.Background()
	now := time.Now()

	for _, name := range []string{"old.png", "fresh.png"} {
		if _, err := store.Save(ctx, name, []byte(name), ""); err != nil {
			t.Fatal(err)
		}
	}
	old := now.Add(-48 * time.Hour)
	if err := fs.Chtimes(filepath.Join("uploads", "old.png"), old, old); err != nil {
		t.Fatal(err)
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d files, want 1", n)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("uploads", "fresh.png")); !ok {
		t.Fatal("fresh upload was pruned")
	}
}

type fakeS3 struct {
	puts    []string
	deletes []string
	objects []types.Object
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func TestS3StoreSaveDeletePrune(t *testing.T) {
	now := time.Now()
	client := &fakeS3{objects: []types.Object{
		{Key: aws.String("uploads/old.png"), LastModified: aws.Time(now.Add(-72 * time.Hour))},
		{Key: aws.String("uploads/new.png"), LastModified: aws.Time(now)},
	}}
	store := &S3Store{Client: client, Bucket: "medivize", Prefix: "uploads/", BaseURL: "https://s3.example.com"}
	ctx := context.Background()

	url, err := store.Save(ctx, "drug-1.png", []byte("x"), "image/png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "https://s3.example.com/medivize/uploads/drug-1.png" {
		t.Errorf("url = %q", url)
	}
	if err := store.Delete(ctx, "drug-1.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d objects, want 1", n)
	}
	want := []string{"uploads/drug-1.png", "uploads/old.png"}
	if len(client.deletes) != len(want) || client.deletes[0] != want[0] || client.deletes[1] != want[1] {
		t.Errorf("deletes = %v, want %v", client.deletes, want)
	}
}
