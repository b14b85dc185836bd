//go:build integration

package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func TestStoreListsAndReadsAgainstMinIO(t *testing.T) {
	endpoint := envOr("ASKDB_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("ASKDB_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:        endpoint,
		Region:          envOr("ASKDB_TEST_S3_REGION", "us-east-1"),
		Bucket:          envOr("ASKDB_TEST_S3_BUCKET", "askdb-it"),
		AccessKeyID:     envOr("ASKDB_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey: envOr("ASKDB_TEST_S3_SECRET_KEY", "miniostorage"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	seed, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")})
	if err != nil {
		t.Fatalf("minio.New() error = %v", err)
	}
	exists, err := seed.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		t.Fatalf("BucketExists() error = %v", err)
	}
	if !exists {
		if err := seed.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			t.Fatalf("MakeBucket() error = %v", err)
		}
	}
	body := "Table employees(id int, name text)"
	key := "integration-tests/schemas/employees.txt"
	if _, err := seed.PutObject(ctx, cfg.Bucket, key, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	t.Cleanup(func() { _ = seed.RemoveObject(context.Background(), cfg.Bucket, key, minio.RemoveObjectOptions{}) })

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	objects, err := store.List(ctx, "integration-tests/schemas/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 1 || objects[0].Key != key {
		t.Fatalf("List() = %#v", objects)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = reader.Close() }()
	payload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if string(payload) != body {
		t.Fatalf("Get() payload = %q", string(payload))
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
