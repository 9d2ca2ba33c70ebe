package config

import (
	"runtime"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
)

// Config is the single configuration structure of fixedseg
type Config struct {
	// Log controls the global zap logger
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Writer controls how segment files are allocated and written
	Writer WriterConfig `yaml:"writer" mapstructure:"writer"`

	// Build controls the segment build pipeline
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Archive controls pack/unpack of finalized segments
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`

	// Observability settings for metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// LogConfig contains logging settings
type LogConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" mapstructure:"level"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	// Development enables colored levels and stack traces on errors
	Development bool `yaml:"development" mapstructure:"development"`
}

// WriterConfig contains row-column writer settings
type WriterConfig struct {
	// Backend selects the storage backend (mmap, file)
	Backend string `yaml:"backend" mapstructure:"backend"`
}

// BuildConfig contains segment build settings
type BuildConfig struct {
	// Workers is the number of goroutines writing disjoint row ranges
	Workers int `yaml:"workers" mapstructure:"workers"`
	// CheckFreeSpace refuses to allocate a segment the target filesystem cannot hold
	CheckFreeSpace bool `yaml:"check_free_space" mapstructure:"check_free_space"`
	// FreeSpaceHeadroomMB is kept free on top of the segment size
	FreeSpaceHeadroomMB int `yaml:"free_space_headroom_mb" mapstructure:"free_space_headroom_mb"`
	// WriteMetadata writes the <segment>.meta.json sidecar
	WriteMetadata bool `yaml:"write_metadata" mapstructure:"write_metadata"`
}

// ArchiveConfig contains segment archive settings
type ArchiveConfig struct {
	// Algorithm selects compression type (none, gzip, snappy, s2, lz4, zstd, deflate)
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"`
	// Level sets compression ratio vs speed (1-9)
	Level int `yaml:"level" mapstructure:"level"`
}

// ObservabilityConfig contains monitoring settings
type ObservabilityConfig struct {
	// EnableMetrics activates prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" mapstructure:"enable_metrics"`
	// MetricsFile receives the metrics in text exposition format on exit
	MetricsFile string `yaml:"metrics_file" mapstructure:"metrics_file"`
	// EnableTracing activates tracing to stdout
	EnableTracing bool `yaml:"enable_tracing" mapstructure:"enable_tracing"`
	// ServiceName is the traced service name
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// NewDefault creates a Config with sensible defaults
func NewDefault() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Writer: WriterConfig{
			Backend: "mmap",
		},
		Build: BuildConfig{
			Workers:             runtime.NumCPU(),
			CheckFreeSpace:      true,
			FreeSpaceHeadroomMB: 64,
			WriteMetadata:       true,
		},
		Archive: ArchiveConfig{
			Algorithm: "zstd",
			Level:     5,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			ServiceName:   "fixedseg",
		},
	}
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	switch c.Writer.Backend {
	case "mmap", "file":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "writer.backend must be mmap or file, got %q", c.Writer.Backend)
	}
	if c.Build.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "build.workers cannot be negative")
	}
	if c.Build.FreeSpaceHeadroomMB < 0 {
		return errors.New(errors.ErrorTypeConfig, "build.free_space_headroom_mb cannot be negative")
	}
	switch c.Archive.Algorithm {
	case "none", "gzip", "snappy", "s2", "lz4", "zstd", "deflate":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "archive.algorithm %q is not supported", c.Archive.Algorithm)
	}
	if c.Archive.Level < 1 || c.Archive.Level > 9 {
		return errors.New(errors.ErrorTypeConfig, "archive.level must be between 1 and 9")
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "log.encoding must be json or console, got %q", c.Log.Encoding)
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (b *BuildConfig) GetWorkers() int {
	if b.Workers <= 0 {
		return runtime.NumCPU()
	}
	return b.Workers
}

// HeadroomBytes returns the free space headroom in bytes
func (b *BuildConfig) HeadroomBytes() uint64 {
	return uint64(b.FreeSpaceHeadroomMB) << 20
}
