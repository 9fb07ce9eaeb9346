package sink

import (
	"context"

	"cloud.google.com/go/storage"
	"google.golang.org/api/sheets/v4"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/source"
)

// ExportOption adjusts how Export writes to its destination.
type ExportOption func(*exportConfig)

type exportConfig struct {
	exclusive bool
}

// Exclusive makes local exports fail when the file already exists.
func Exclusive() ExportOption {
	return func(c *exportConfig) { c.exclusive = true }
}

// Export writes results to the destination named by spec, using the same
// location syntax as source.ParseLocation.
func Export(ctx context.Context, spec string, results []models.ResultRecord, opts source.Options, exportOpts ...ExportOption) (int64, error) {
	var cfg exportConfig
	for _, opt := range exportOpts {
		opt(&cfg)
	}

	loc, err := source.ParseLocation(spec)
	if err != nil {
		return 0, unwritable(spec, err)
	}

	var exporter Exporter
	switch loc.Scheme {
	case "gs":
		client, err := storage.NewClient(ctx, opts.GoogleClientOptions()...)
		if err != nil {
			return 0, wrapf(spec, "failed to create GCS client: %w", err)
		}
		defer client.Close()
		exporter = NewGCSObject(client, loc.Bucket, loc.Object)
	case "sheets":
		srv, err := sheets.NewService(ctx, opts.GoogleClientOptions()...)
		if err != nil {
			return 0, wrapf(spec, "failed to create sheets service: %w", err)
		}
		exporter = NewSheet(srv, loc.ID, loc.Range)
	default:
		file := NewCSVFile(loc.Path)
		file.Exclusive = cfg.exclusive
		exporter = file
	}

	return exporter.Export(ctx, results)
}
