package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// CloudBlobs implements BlobStore on a Cloud Storage bucket. Objects are
// served from their public storage URL, which doubles as the delete key.
type CloudBlobs struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewCloudBlobs(bucket *gcs.BucketHandle, bucketName string) *CloudBlobs {
	return &CloudBlobs{bucket: bucket, bucketName: bucketName}
}

func (b *CloudBlobs) Put(ctx context.Context, path string, r io.Reader, size int64, progress func(written, total int64)) (string, error) {
	w := b.bucket.Object(path).NewWriter(ctx)
	src := r
	if progress != nil {
		src = &progressReader{r: r, total: size, report: progress}
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return publicURLPrefix + b.bucketName + "/" + path, nil
}

func (b *CloudBlobs) DeleteByURL(ctx context.Context, url string) error {
	prefix := publicURLPrefix + b.bucketName + "/"
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("url %q is not in bucket %s", url, b.bucketName)
	}
	object := strings.TrimPrefix(url, prefix)
	if err := b.bucket.Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("delete blob %s: %w", object, err)
	}
	return nil
}

type progressReader struct {
	r       io.Reader
	written int64
	total   int64
	report  func(written, total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.written += int64(n)
		p.report(p.written, p.total)
	}
	return n, err
}
