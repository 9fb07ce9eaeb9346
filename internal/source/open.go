package source

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// Options holds what remote sources need to authenticate.
type Options struct {
	CredentialsFile string
	SheetRange      string
	ClientOptions   []option.ClientOption
}

// GoogleClientOptions returns the client options for GCS and Sheets clients.
func (o Options) GoogleClientOptions() []option.ClientOption {
	opts := append([]option.ClientOption(nil), o.ClientOptions...)
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}
	return opts
}

// Location is a parsed source or destination spec.
type Location struct {
	Scheme string // "file", "gs" or "sheets"
	Bucket string
	Object string
	Path   string
	ID     string
	Range  string
}

// ParseLocation understands gs://bucket/object, sheets://id[/range] and plain
// file paths.
func ParseLocation(spec string) (Location, error) {
	switch {
	case strings.HasPrefix(spec, "gs://"):
		bucket, object, ok := strings.Cut(strings.TrimPrefix(spec, "gs://"), "/")
		if !ok || bucket == "" || object == "" {
			return Location{}, fmt.Errorf("invalid GCS location %q", spec)
		}
		return Location{Scheme: "gs", Bucket: bucket, Object: object}, nil
	case strings.HasPrefix(spec, "sheets://"):
		id, rng, _ := strings.Cut(strings.TrimPrefix(spec, "sheets://"), "/")
		if id == "" {
			return Location{}, fmt.Errorf("invalid sheets location %q", spec)
		}
		return Location{Scheme: "sheets", ID: id, Range: rng}, nil
	case spec == "":
		return Location{}, fmt.Errorf("empty location")
	default:
		return Location{Scheme: "file", Path: spec}, nil
	}
}

// Open returns a loader for spec. The returned close function releases any
// client created for it.
func Open(ctx context.Context, spec string, opts Options) (Loader, func() error, error) {
	loc, err := ParseLocation(spec)
	if err != nil {
		return nil, nil, unreadable(spec, err)
	}
	noop := func() error { return nil }

	switch loc.Scheme {
	case "gs":
		client, err := storage.NewClient(ctx, opts.GoogleClientOptions()...)
		if err != nil {
			return nil, nil, unreadable(spec, fmt.Errorf("failed to create GCS client: %w", err))
		}
		return NewGCSObject(client, loc.Bucket, loc.Object), client.Close, nil
	case "sheets":
		srv, err := sheets.NewService(ctx, opts.GoogleClientOptions()...)
		if err != nil {
			return nil, nil, unreadable(spec, fmt.Errorf("failed to create sheets service: %w", err))
		}
		rng := loc.Range
		if rng == "" {
			rng = opts.SheetRange
		}
		return NewSheet(srv, loc.ID, rng), noop, nil
	default:
		return NewCSVFile(loc.Path), noop, nil
	}
}

// Load opens spec and loads it in one step.
func Load(ctx context.Context, spec string, opts Options) (*models.Table, error) {
	loader, closeFn, err := Open(ctx, spec, opts)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return loader.Load(ctx)
}
