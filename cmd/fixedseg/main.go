package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/fixedseg/internal/pipeline"
	"github.com/ajitpratap0/fixedseg/pkg/compression"
	"github.com/ajitpratap0/fixedseg/pkg/config"
	"github.com/ajitpratap0/fixedseg/pkg/formats"
	"github.com/ajitpratap0/fixedseg/pkg/logger"
	"github.com/ajitpratap0/fixedseg/pkg/metrics"
	"github.com/ajitpratap0/fixedseg/pkg/observability"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
	"github.com/ajitpratap0/fixedseg/pkg/schema"
)

var version = "0.1.0"

// app holds state shared by every command after the root pre-run
type app struct {
	configFile string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:   "fixedseg",
		Short: "fixedseg - fixed-width columnar segment files",
		Long: `fixedseg builds fixed-width row-major segment files from JSON lines, Avro or Arrow
input, reads them back through their metadata sidecar and packs them into
compressed archives.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fixedseg v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(a.buildCmd(), a.dumpCmd(), a.layoutCmd(), a.avroSchemaCmd(), a.packCmd(), a.unpackCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	l, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}
	logger.Replace(l)
	a.log = l.With(zap.String("component", "fixedseg-cli"), zap.String("command", cmd.Name()))

	if cfg.Observability.EnableTracing {
		tc := observability.DefaultConfig(cfg.Observability.ServiceName)
		tc.ServiceVersion = version
		tc.Output = os.Stderr
		if err := observability.Initialize(cmd.Context(), tc); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.cfg == nil {
		return nil
	}
	if err := observability.Shutdown(context.Background()); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	if a.cfg.Observability.EnableMetrics && a.cfg.Observability.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.Observability.MetricsFile); err != nil {
			a.log.Warn("failed to write metrics", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

func (a *app) buildCmd() *cobra.Command {
	var schemaFile, input, format, output, backend string
	var workers int
	var noMetadata bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a segment file from input rows",
		Long: `Build a segment file from input rows. The schema decides column order and
types; input fields not in the schema are ignored and missing ones get the
column's null default.

Example:
  fixedseg build --schema clicks.yaml --input clicks.jsonl --output clicks.seg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadSchema(schemaFile)
			if err != nil {
				return err
			}

			if backend != "" {
				a.cfg.Writer.Backend = backend
			}
			if workers > 0 {
				a.cfg.Build.Workers = workers
			}
			if noMetadata {
				a.cfg.Build.WriteMetadata = false
			}
			opts, err := pipeline.OptionsFromConfig(a.cfg)
			if err != nil {
				return err
			}
			b, err := pipeline.NewBuilder(s, append(opts, pipeline.WithLogger(a.log))...)
			if err != nil {
				return err
			}

			var f formats.Format
			if format != "" {
				f, err = formats.ParseFormat(format)
			} else {
				f, err = formats.FormatForPath(input)
			}
			if err != nil {
				return err
			}
			src, err := formats.Open(f, input)
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := b.Build(ctx, output, src)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"segment":   result.File.Path,
				"metadata":  result.MetadataPath,
				"rows":      result.Rows,
				"bytes":     result.Bytes,
				"nullCells": result.NullCells,
				"duration":  result.Duration.String(),
			})
		},
	}
	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Path to schema file, JSON or YAML (required)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to input rows (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the segment to create (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format (jsonl, avro, arrow, arrows), inferred from the extension when empty")
	cmd.Flags().StringVar(&backend, "backend", "", "Writer backend (mmap, file)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of goroutines writing rows")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Skip the metadata sidecar")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) dumpCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "dump <segment>",
		Short: "Print segment rows as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, meta, err := pipeline.OpenSegment(args[0], rowcol.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer r.Close()

			end := meta.Layout.Rows()
			if limit >= 0 && offset+limit < end {
				end = offset + limit
			}
			enc := json.NewEncoder(os.Stdout)
			for row := offset; row < end; row++ {
				values, err := pipeline.ReadRow(r, meta.Schema, row)
				if err != nil {
					return err
				}
				if err := enc.Encode(values); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", -1, "Maximum number of rows to print, all when negative")
	cmd.Flags().IntVar(&offset, "offset", 0, "First row to print")
	return cmd
}

func (a *app) layoutCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "layout <schema>",
		Short: "Show column widths and offsets for a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadSchema(args[0])
			if err != nil {
				return err
			}
			widths, err := s.ColumnWidths()
			if err != nil {
				return err
			}
			layout, err := rowcol.NewLayout(rows, len(widths), widths)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tFIELD TYPE\tDATA TYPE\tWIDTH\tOFFSET")
			for c, f := range s.Fields {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", f.Name, f.FieldType, f.DataType, layout.Width(c), layout.ColumnOffset(c))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nrow width: %d bytes\n", layout.RowWidth())
			if rows > 0 {
				fmt.Printf("file size for %d rows: %d bytes\n", rows, layout.TotalSize())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "Row count to size the file for")
	return cmd
}

func (a *app) avroSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avro-schema <schema>",
		Short: "Print a nullable Avro record schema matching a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadSchema(args[0])
			if err != nil {
				return err
			}
			out, err := schema.AvroSchema(s)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func (a *app) packCmd() *cobra.Command {
	var algorithm, output string
	var level int

	cmd := &cobra.Command{
		Use:   "pack <segment>",
		Short: "Compress a finalized segment into an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if algorithm == "" {
				algorithm = a.cfg.Archive.Algorithm
			}
			if level == 0 {
				level = a.cfg.Archive.Level
			}
			alg, err := compression.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + alg.Extension()
			}
			if output == args[0] {
				return fmt.Errorf("archive path equals segment path %s", output)
			}

			stats, err := compression.CompressFile(args[0], output, alg, compression.Level(level))
			if err != nil {
				return err
			}
			a.log.Info("segment packed",
				zap.String("archive", output),
				zap.String("algorithm", string(alg)),
				zap.Stringer("level", compression.Level(level)),
				zap.Int64("original_size", stats.OriginalSize),
				zap.Int64("compressed_size", stats.CompressedSize),
				zap.Float64("ratio", stats.Ratio()),
				zap.Duration("duration", stats.Duration))
			fmt.Println(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Compression algorithm (none, gzip, snappy, s2, lz4, zstd, deflate)")
	cmd.Flags().IntVarP(&level, "level", "l", 0, "Compression level 1-9")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path, the segment path plus the algorithm extension when empty")
	return cmd
}

func (a *app) unpackCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "unpack <archive>",
		Short: "Restore a segment from an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg := compression.AlgorithmForPath(args[0])
			if output == "" {
				if alg == compression.None {
					return fmt.Errorf("cannot infer output path of %s, pass --output", args[0])
				}
				output = strings.TrimSuffix(args[0], alg.Extension())
			}
			start := time.Now()
			if err := compression.DecompressFile(args[0], output); err != nil {
				return err
			}
			a.log.Info("segment unpacked",
				zap.String("segment", output),
				zap.String("algorithm", string(alg)),
				zap.Duration("duration", time.Since(start)))
			fmt.Println(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Segment path, the archive path without its extension when empty")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
