package source

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// GCSObject loads a CSV object from a Cloud Storage bucket.
type GCSObject struct {
	client     *storage.Client
	bucketName string
	objectName string
}

func NewGCSObject(client *storage.Client, bucketName, objectName string) *GCSObject {
	return &GCSObject{
		client:     client,
		bucketName: bucketName,
		objectName: objectName,
	}
}

func (o *GCSObject) origin() string {
	return fmt.Sprintf("gs://%s/%s", o.bucketName, o.objectName)
}

func (o *GCSObject) Load(ctx context.Context) (*models.Table, error) {
	reader, err := o.client.Bucket(o.bucketName).Object(o.objectName).NewReader(ctx)
	if err != nil {
		return nil, unreadable(o.origin(), fmt.Errorf("failed to create object reader: %w", err))
	}
	defer reader.Close()

	return ReadCSV(o.origin(), reader, ',')
}
