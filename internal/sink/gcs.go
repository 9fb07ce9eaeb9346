package sink

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type GCSObject struct {
	bucketName string
	objectName string
	newWriter  func(ctx context.Context) io.WriteCloser
}

func NewGCSObject(client *storage.Client, bucketName, objectName string) *GCSObject {
	return &GCSObject{
		bucketName: bucketName,
		objectName: objectName,
		newWriter: func(ctx context.Context) io.WriteCloser {
			w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
			w.ContentType = "text/csv"
			return w
		},
	}
}

func (o *GCSObject) Export(ctx context.Context, results []models.ResultRecord) (int64, error) {
	dest := fmt.Sprintf("gs://%s/%s", o.bucketName, o.objectName)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := o.newWriter(ctx)

	n, err := WriteCSV(w, results, ',')
	if err != nil {
		// a cancelled writer discards the upload instead of committing it on Close
		cancel()
		w.Close()
		return n, wrapf(dest, "failed to write object: %w", err)
	}
	// the upload is committed on Close
	if err := w.Close(); err != nil {
		return n, wrapf(dest, "failed to finalize object: %w", err)
	}
	return n, nil
}
