// Command enrich runs one enrichment over a CSV file, Google Sheet or GCS
// object and writes the results next to the entity column.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/blagoySimandov/rowenrich/internal/app"
	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/enricher"
	"github.com/blagoySimandov/rowenrich/internal/logger"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/pipeline"
)

type options struct {
	configPath string
	source     string
	column     string
	prompt     string
	extract    string
	stages     string
	stagesFile string
	output     string
	offset     int
	limit      int
	workers    int
	store      string
	preview    int
	verbose    bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("enrich", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&o.source, "source", "", "CSV path, gs://bucket/object or sheets://id[/range]")
	fs.StringVar(&o.column, "column", "", "column holding the entity names")
	fs.StringVar(&o.prompt, "prompt", models.DefaultSearchTemplate, "search template, {entity} is replaced by the entity")
	fs.StringVar(&o.extract, "extract", models.DefaultExtractTemplate, "extraction template")
	fs.StringVar(&o.stages, "stages", "search,extract", "comma separated stage kinds: search, extract, ocr")
	fs.StringVar(&o.stagesFile, "stages-file", "", "YAML list of stage specs, overrides -stages")
	fs.StringVar(&o.output, "output", "", "destination for the results (same syntax as -source)")
	fs.IntVar(&o.offset, "offset", 0, "first row to process")
	fs.IntVar(&o.limit, "limit", 0, "maximum rows to process, 0 for all")
	fs.IntVar(&o.workers, "workers", 0, "concurrent records, 0 for the configured default")
	fs.StringVar(&o.store, "store", "", "run store driver: sqlite, postgres or memory")
	fs.IntVar(&o.preview, "preview", 0, "print the first N rows of the source and exit")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.source == "" {
		return nil, errors.New("-source is required")
	}
	if o.column == "" && o.preview == 0 {
		return nil, errors.New("-column is required unless -preview is set")
	}
	return o, nil
}

// stageSpecs resolves the stage chain from the flags.
func (o *options) stageSpecs() ([]models.StageSpec, error) {
	if o.stagesFile != "" {
		data, err := os.ReadFile(o.stagesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read stages file: %w", err)
		}
		var specs []models.StageSpec
		if err := yaml.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("failed to parse stages file %s: %w", o.stagesFile, err)
		}
		return specs, nil
	}

	var specs []models.StageSpec
	for _, kind := range strings.Split(o.stages, ",") {
		kind = strings.TrimSpace(kind)
		spec := models.StageSpec{Kind: kind}
		switch kind {
		case models.StageKindSearch:
			spec.Params.Template = o.prompt
		case models.StageKindExtract:
			spec.Params.Template = o.extract
		case models.StageKindOCR:
			spec.Params.Template = models.DefaultPlaceholder
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown stage kind %q", kind)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.store != "" {
		cfg.StoreDriver = opts.store
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		return 1
	}
	defer a.Close()
	enr := a.Enricher

	if opts.preview > 0 {
		preview, err := enr.Preview(ctx, opts.source, opts.preview)
		if err != nil {
			log.Error().Err(err).Msg("failed to load source")
			return 1
		}
		fmt.Println(strings.Join(preview.Columns, "\t"))
		for _, row := range preview.Rows {
			fmt.Println(strings.Join(row, "\t"))
		}
		fmt.Printf("(%d rows)\n", preview.TotalRows)
		return 0
	}

	specs, err := opts.stageSpecs()
	if err != nil {
		log.Error().Err(err).Msg("invalid stages")
		return 2
	}

	table, err := enr.Load(ctx, opts.source)
	if err != nil {
		log.Error().Err(err).Msg("failed to load source")
		return 1
	}

	runID, err := enr.Start(ctx, table, enricher.StartRequest{
		Options: models.RunOptions{
			KeyColumn: opts.column,
			Offset:    opts.offset,
			Limit:     opts.limit,
			Workers:   opts.workers,
		},
		Stages:    specs,
		Observers: []pipeline.Observer{printProgress},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start run")
		return 1
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
		case <-finished:
			return
		}
		log.Warn().Str("run_id", runID).Msg("interrupted, stopping after the current record")
		if err := enr.Cancel(context.Background(), runID); err != nil {
			log.Error().Err(err).Msg("failed to cancel run")
		}
	}()

	if err := enr.Wait(context.Background(), runID); err != nil {
		log.Error().Err(err).Msg("failed waiting for run")
		return 1
	}

	summary, err := enr.Progress(context.Background(), runID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read run summary")
		return 1
	}
	fmt.Fprintln(os.Stderr, summaryLine(summary))

	if opts.output == "" {
		results, err := enr.Results(context.Background(), runID, 0, 0)
		if err != nil {
			log.Error().Err(err).Msg("failed to read results")
			return 1
		}
		for _, r := range results {
			fmt.Printf("%s\t%s\t%s\n", r.Entity, r.ExtractedInfo(), r.StatusText())
		}
		return 0
	}

	n, err := enr.Export(context.Background(), runID, opts.output)
	if err != nil {
		log.Error().Err(err).Msg("failed to write results")
		return 1
	}
	log.Info().Str("destination", opts.output).Int64("written", n).Msg("results exported")
	return 0
}

// summaryLine reports a finished run. Completed counts every processed row,
// failed ones included.
func summaryLine(s *models.RunSummary) string {
	return fmt.Sprintf("run %s %s: %d/%d processed, %d failed", s.RunID, s.Status, s.Completed, s.Total, s.Failed)
}

func printProgress(p models.Progress) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", p.Completed, p.Total, p.Entity, p.Status)
}
