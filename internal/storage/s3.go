// Package storage provides S3-compatible object storage for lookup evidence.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Saul-Punybz/scout/internal/config"
)

// Client wraps an S3-compatible object storage client.
type Client struct {
	s3     *s3.Client
	bucket string
	now    func() time.Time
}

// NewClient creates a new S3-compatible storage client. With no endpoint
// configured the client is valid but every upload is skipped.
func NewClient(ctx context.Context, cfg config.S3Config) (*Client, error) {
	c := &Client{bucket: cfg.Bucket, now: time.Now}
	if cfg.Endpoint == "" {
		slog.Warn("storage: S3 endpoint not configured, evidence archive disabled")
		return c, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	c.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return c, nil
}

// Configured returns true if the S3 client has a valid connection configured.
func (c *Client) Configured() bool {
	return c.s3 != nil
}

// ArchiveLookup gzips the JSON encoding of payload and uploads it under
// lookups/<yyyy>/<mm>/<search_id>.json.gz. It is a no-op when storage is not
// configured.
func (c *Client) ArchiveLookup(ctx context.Context, searchID int64, payload any) error {
	if c.s3 == nil {
		slog.Debug("storage: archive skipped, not configured", "search_id", searchID)
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("storage: marshal lookup %d: %w", searchID, err)
	}
	body, err := gzipCompress(raw)
	if err != nil {
		return fmt.Errorf("storage: compress lookup %d: %w", searchID, err)
	}

	key := lookupKey(c.now().UTC(), searchID)
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
		Metadata:        map[string]string{"sha256": sha256sum(raw)},
	})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", key, err)
	}

	slog.Debug("storage: lookup archived", "key", key, "size", len(body))
	return nil
}

func lookupKey(t time.Time, searchID int64) string {
	return fmt.Sprintf("lookups/%04d/%02d/%d.json.gz", t.Year(), int(t.Month()), searchID)
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
