package gcs

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"
	streamerrors "github.com/tamirms/gcs/errors"
)

const (
	// defaultSpillThreshold is the number of buffered values at which the
	// external builder writes a chunk.
	defaultSpillThreshold = 5_000_000

	// defaultReadBatch is the number of values read from a chunk per I/O.
	defaultReadBatch = 10_000

	// defaultWriteBatch is the number of values written to a chunk per I/O.
	defaultWriteBatch = 100_000
)

// BuildOption is a functional option for configuring builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	indexGranularity int
	logger           log.Logger
	metrics          *Metrics

	// External builder only; ignored by Builder.
	spillThreshold int
	chunkPath      string // fmt template with one integer verb; "" for anonymous temp files
	tempDir        string // directory for anonymous temp files
	readBatch      int
	writeBatch     int
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		indexGranularity: DefaultIndexGranularity,
		logger:           log.NewNopLogger(),
		spillThreshold:   defaultSpillThreshold,
		readBatch:        defaultReadBatch,
		writeBatch:       defaultWriteBatch,
	}
}

func newBuildConfig(opts []BuildOption) (*buildConfig, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.NewNopLogger()
	}
	if cfg.spillThreshold <= 0 || cfg.readBatch <= 0 || cfg.writeBatch <= 0 {
		return nil, streamerrors.ErrInvalidBatchSize
	}
	if cfg.chunkPath != "" && !validChunkPath(cfg.chunkPath) {
		return nil, fmt.Errorf("%w: %q", streamerrors.ErrInvalidChunkPath, cfg.chunkPath)
	}
	return cfg, nil
}

// validChunkPath reports whether template formats one integer into distinct names.
func validChunkPath(template string) bool {
	a := fmt.Sprintf(template, 1)
	b := fmt.Sprintf(template, 2)
	return a != b && !strings.Contains(a, "%!")
}

// indexing reports whether index entries are recorded.
func (c *buildConfig) indexing() bool {
	return c.indexGranularity > 0
}

// WithIndexGranularity sets the number of elements between index entries.
// A value <= 0 disables the index.
func WithIndexGranularity(g int) BuildOption {
	return func(c *buildConfig) {
		c.indexGranularity = g
	}
}

// WithLogger sets the logger that receives progress milestones.
// Progress output is purely observational.
func WithLogger(logger log.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the Prometheus instruments builds update. Use one
// Metrics per registry; it may be shared by any number of builders.
func WithMetrics(m *Metrics) BuildOption {
	return func(c *buildConfig) {
		c.metrics = m
	}
}

// WithSpillThreshold sets how many values the external builder buffers
// in RAM before sorting them into a chunk.
func WithSpillThreshold(n int) BuildOption {
	return func(c *buildConfig) {
		c.spillThreshold = n
	}
}

// WithChunkPath sets a path template for external builder chunks. The
// template must contain one integer verb, e.g. "out.gcs.%03d.tmp"; chunk i
// (1-based) is written to fmt.Sprintf(template, i). Named chunks are removed
// when the build finishes or is closed.
func WithChunkPath(template string) BuildOption {
	return func(c *buildConfig) {
		c.chunkPath = template
	}
}

// TempDir sets the directory for anonymous chunk files, used when no chunk
// path template is set. The directory must be on a local filesystem.
func TempDir(dir string) BuildOption {
	return func(c *buildConfig) {
		c.tempDir = dir
	}
}

// WithReadBatch sets how many values are read back from a chunk per I/O
// during the merge.
func WithReadBatch(n int) BuildOption {
	return func(c *buildConfig) {
		c.readBatch = n
	}
}
