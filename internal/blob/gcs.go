package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps uploads in a Cloud Storage bucket under the same object
// names LocalStore uses, so stored paths stay portable between providers.
type GCSStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSClient prefers explicit GCS_CREDENTIALS_JSON and otherwise uses
// application default credentials.
func NewGCSClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")); credJSON != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func NewGCSStore(ctx context.Context, client *storage.Client, bucket string) (*GCSStore, error) {
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %q not accessible: %w", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket, now: time.Now}, nil
}

func (s *GCSStore) Save(ctx context.Context, folder, originalName string, r io.Reader) (string, error) {
	object := ObjectName(folder, originalName, s.now())
	wc := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	if contentType := mime.TypeByExtension(path.Ext(object)); contentType != "" {
		wc.ContentType = contentType
	}
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finish upload %s: %w", object, err)
	}
	return PublicPrefix + object, nil
}

func (s *GCSStore) Delete(ctx context.Context, publicPath string) error {
	object, err := objectFromPublicPath(publicPath)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", object, err)
	}
	return nil
}

func (s *GCSStore) Close() error { return s.client.Close() }
