package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploadPartSize is the part size for managed multipart uploads (8 MiB).
const uploadPartSize int64 = 8 * 1024 * 1024

// Writer uploads objects to the client's configured bucket.
type Writer struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a Writer for the given client.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client: c.S3(),
		uploader: manager.NewUploader(c.S3(), func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		bucket: c.Bucket(),
	}
}

// Put uploads data as a single PutObject request. Suitable for the small
// JSON snapshots this service produces.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	}
	if _, err := w.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads data of unknown size through the transfer manager,
// splitting into parts as needed.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	}
	if _, err := w.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", path, err)
	}
	return nil
}
