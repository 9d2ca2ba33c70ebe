// Package pipeline builds segment files from row sources.
//
// A build drains a RowSource, allocates a segment sized for every row it
// read, writes disjoint row ranges from several workers and finalizes the
// file. Missing and null values are replaced by the column's null default.
// Any failure aborts the writer, which removes the partial file, so a build
// either leaves a complete segment behind or nothing.
//
// # Basic Usage
//
//	b, err := pipeline.NewBuilder(schema,
//	    pipeline.WithWorkers(8),
//	    pipeline.WithLogger(logger),
//	)
//	src, err := formats.Open(formats.JSONLines, "clicks.jsonl")
//	defer src.Close()
//	result, err := b.Build(ctx, "clicks.seg", src)
//
// The layout is not stored in the segment. Unless disabled, Build writes it
// with the schema to a <segment>.meta.json sidecar that OpenSegment reads.
package pipeline

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/fixedseg/pkg/config"
	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/logger"
	"github.com/ajitpratap0/fixedseg/pkg/metrics"
	"github.com/ajitpratap0/fixedseg/pkg/observability"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
	"github.com/ajitpratap0/fixedseg/pkg/schema"
)

// RowSource yields input rows keyed by field name
type RowSource interface {
	// Next returns the next row, or io.EOF after the last one
	Next() (map[string]any, error)
	Close() error
}

// minRowsPerWorker keeps small builds from fanning out to idle goroutines
const minRowsPerWorker = 1024

// Result describes a finished build
type Result struct {
	File         *rowcol.File
	Rows         int
	Bytes        int64
	NullCells    int64
	Duration     time.Duration
	MetadataPath string
}

// Builder turns row sources into segment files for one schema. It is safe
// for concurrent use on different paths.
type Builder struct {
	schema  *schema.Schema
	columns []column
	widths  []int

	workers        int
	backend        rowcol.Backend
	checkFreeSpace bool
	headroom       uint64
	writeMetadata  bool
	logger         *zap.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithWorkers sets the number of goroutines writing rows. Values below 1
// mean one worker.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithBackend selects the writer backend
func WithBackend(backend rowcol.Backend) Option {
	return func(b *Builder) { b.backend = backend }
}

// WithFreeSpaceCheck refuses builds that would leave less than headroom
// bytes free on the target filesystem
func WithFreeSpaceCheck(headroom uint64) Option {
	return func(b *Builder) {
		b.checkFreeSpace = true
		b.headroom = headroom
	}
}

// WithMetadata enables or disables the metadata sidecar
func WithMetadata(enabled bool) Option {
	return func(b *Builder) { b.writeMetadata = enabled }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// OptionsFromConfig translates the writer and build sections of cfg
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	backend, err := rowcol.ParseBackend(cfg.Writer.Backend)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithWorkers(cfg.Build.GetWorkers()),
		WithBackend(backend),
		WithMetadata(cfg.Build.WriteMetadata),
	}
	if cfg.Build.CheckFreeSpace {
		opts = append(opts, WithFreeSpaceCheck(cfg.Build.HeadroomBytes()))
	}
	return opts, nil
}

// NewBuilder validates s and resolves the width and null default of every
// column. Every column must be fixed-width. A column without a resolvable
// null default is accepted and fails the build only if a null reaches it.
func NewBuilder(s *schema.Schema, opts ...Option) (*Builder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	widths, err := s.ColumnWidths()
	if err != nil {
		return nil, err
	}

	b := &Builder{
		schema:        s,
		widths:        widths,
		columns:       newColumns(s),
		workers:       1,
		backend:       rowcol.BackendMmap,
		writeMetadata: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.logger == nil {
		b.logger = logger.Get()
	}
	b.logger = b.logger.With(zap.String("schema", s.Name))
	return b, nil
}

// Schema returns the schema segments are built for
func (b *Builder) Schema() *schema.Schema { return b.schema }

// Build writes every row of src into a new segment at path. The source is
// drained but not closed.
func (b *Builder) Build(ctx context.Context, path string, src RowSource) (result *Result, err error) {
	start := time.Now()
	tracker := metrics.NewThroughputTracker(b.schema.Name)
	ctx, span := observability.StartSpan(ctx, "segment.build")
	span.SetAttribute("segment", path)
	span.SetAttribute("schema", b.schema.Name)
	defer func() {
		span.RecordError(err)
		span.End()
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.SegmentsBuilt.WithLabelValues(b.schema.Name, status).Inc()
	}()
	log := b.logger.With(zap.String("segment", path))

	rows, err := drain(ctx, src)
	if err != nil {
		return nil, err
	}
	span.AddEvent("source drained", attribute.Int("rows", len(rows)))
	span.SetAttribute("rows", len(rows))

	layout, err := rowcol.NewLayout(len(rows), len(b.widths), b.widths)
	if err != nil {
		return nil, err
	}
	if b.checkFreeSpace {
		if err := checkFreeSpace(path, layout.TotalSize(), b.headroom, b.backend, log); err != nil {
			return nil, err
		}
	}

	// Create tags its logger with the segment path itself
	w, err := rowcol.Create(path, layout, rowcol.WithBackend(b.backend), rowcol.WithLogger(b.logger))
	if err != nil {
		return nil, err
	}

	nulls, err := b.writeRows(ctx, w, rows)
	if err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			log.Warn("failed to abort segment", zap.Error(abortErr))
		}
		return nil, err
	}

	var seg *rowcol.File
	err = observability.Trace(ctx, "segment.finalize", func(context.Context) error {
		var ferr error
		seg, ferr = w.SaveAndClose()
		return ferr
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	result = &Result{
		File:      seg,
		Rows:      len(rows),
		Bytes:     layout.TotalSize(),
		NullCells: nulls,
	}
	if b.writeMetadata {
		metaPath, err := WriteMetadata(seg, b.schema)
		if err != nil {
			os.Remove(path)
			os.Remove(MetadataPath(path))
			return nil, err
		}
		result.MetadataPath = metaPath
	}
	result.Duration = time.Since(start)

	tracker.Increment(int64(len(rows)))
	tracker.GetAndReset()
	observability.RecordRows(ctx, b.schema.Name, int64(len(rows)))

	log.Info("segment built",
		zap.Int("rows", result.Rows),
		zap.Int64("bytes", result.Bytes),
		zap.Int64("null_cells", result.NullCells),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// drain reads the whole source, checking ctx between rows
func drain(ctx context.Context, src RowSource) ([]map[string]any, error) {
	var rows []map[string]any
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// writeRows splits rows into contiguous ranges, one per worker. Ranges are
// disjoint so workers never write the same cell.
func (b *Builder) writeRows(ctx context.Context, w *rowcol.Writer, rows []map[string]any) (int64, error) {
	workers := b.workers
	if limit := (len(rows) + minRowsPerWorker - 1) / minRowsPerWorker; workers > limit {
		workers = limit
	}
	if workers < 1 {
		return 0, nil
	}

	var nulls atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	per := (len(rows) + workers - 1) / workers
	for lo := 0; lo < len(rows); lo += per {
		hi := lo + per
		if hi > len(rows) {
			hi = len(rows)
		}
		g.Go(func() error {
			var n int64
			for r := lo; r < hi; r++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for c := range b.columns {
					wasNull, err := b.columns[c].write(w, r, c, rows[r])
					if err != nil {
						return errors.Wrap(err, errors.TypeOf(err), "row rejected").WithDetail("row", r)
					}
					if wasNull {
						n++
					}
				}
			}
			nulls.Add(n)
			return nil
		})
	}
	err := g.Wait()
	return nulls.Load(), err
}
