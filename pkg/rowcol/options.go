package rowcol

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/logger"
)

// Backend selects how a writer reaches its file
type Backend string

const (
	// BackendMmap writes cells into a shared memory mapping of the file
	BackendMmap Backend = "mmap"
	// BackendFile writes cells with positional writes on the file handle
	BackendFile Backend = "file"
)

// ParseBackend parses a backend name
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(name); b {
	case BackendMmap, BackendFile:
		return b, nil
	case "":
		return BackendMmap, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown writer backend %q", name)
	}
}

type options struct {
	backend Backend
	logger  *zap.Logger
}

// Option configures a Writer or Reader
type Option func(*options)

// WithBackend selects the writer backend. Readers ignore it.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the logger. Nil keeps the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{backend: BackendMmap}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	return o
}
