package gcs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	streamerrors "github.com/tamirms/gcs/errors"
	"github.com/tamirms/gcs/internal/encoding"
)

// chunkStore holds one sorted, duplicate-free partition of normalized values
// on disk as fixed-width records. It is written once with append, then read
// back once through produce.
//
// Chunks are either named (from the chunk path template) or anonymous
// O_TMPFILE files; anonymous chunks disappear when closed, named chunks are
// removed by cleanup.
type chunkStore struct {
	file *os.File
	path string // "" for anonymous chunks

	count  uint64         // records written
	size   int64          // bytes written
	digest *xxhash.Digest // streaming hash of written records
	sealed bool           // true once produce has been called

	writeBuf []byte
}

// newChunkStore creates chunk seq (1-based) according to cfg.
func newChunkStore(cfg *buildConfig, seq int) (*chunkStore, error) {
	c := &chunkStore{
		digest:   xxhash.New(),
		writeBuf: make([]byte, cfg.writeBatch*encoding.RecordSize),
	}
	if err := c.createFile(cfg, seq); err != nil {
		return nil, fmt.Errorf("create chunk %d: %w", seq, err)
	}
	return c, nil
}

// createFile opens the backing file. A path template wins; otherwise tries
// O_TMPFILE on Linux and falls back to a regular temp file.
// A named chunk never replaces an existing file.
func (c *chunkStore) createFile(cfg *buildConfig, seq int) error {
	if cfg.chunkPath != "" {
		path := fmt.Sprintf(cfg.chunkPath, seq)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return err
		}
		c.file = f
		c.path = path
		return nil
	}

	tempDir := cfg.tempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	f, err := openTmpFile(tempDir)
	if err == nil {
		c.file = f
		c.path = "" // Anonymous file - no path to remove
		return nil
	}

	f, err = os.CreateTemp(tempDir, "gcs-chunk-*.tmp")
	if err != nil {
		return err
	}
	c.file = f
	c.path = f.Name()
	return nil
}

// append writes vals as records in the given order. The caller guarantees
// ascending, duplicate-free order; the store does not sort.
func (c *chunkStore) append(vals []uint64) error {
	if c.sealed {
		return streamerrors.ErrChunkSealed
	}
	if c.file == nil {
		return os.ErrClosed
	}

	total := int64(len(vals)) * encoding.RecordSize
	if err := reserveExtent(c.file, c.size, total); err != nil {
		return fmt.Errorf("reserve chunk space: %w", err)
	}

	batch := len(c.writeBuf) / encoding.RecordSize
	for len(vals) > 0 {
		n := min(batch, len(vals))
		buf := c.writeBuf[:encoding.PutUint64s(c.writeBuf, vals[:n])]
		if _, err := c.file.Write(buf); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		// xxhash.Digest.Write never fails.
		_, _ = c.digest.Write(buf)
		c.size += int64(len(buf))
		c.count += uint64(n)
		vals = vals[n:]
	}
	return nil
}

// len returns the number of records written.
func (c *chunkStore) len() uint64 {
	return c.count
}

// produce seals the chunk and returns a forward-only reader over its
// records, reading batch records per I/O. Calling produce again starts a new
// pass from the first record.
func (c *chunkStore) produce(batch int) (*chunkReader, error) {
	if c.file == nil {
		return nil, os.ErrClosed
	}
	c.sealed = true
	c.writeBuf = nil

	fadviseSequential(int(c.file.Fd()), 0, c.size)

	return &chunkReader{
		r:         io.NewSectionReader(c.file, 0, c.size),
		raw:       make([]byte, batch*encoding.RecordSize),
		vals:      make([]uint64, 0, batch),
		remaining: c.count,
		digest:    xxhash.New(),
		want:      c.digest.Sum64(),
	}, nil
}

// cleanup closes and removes the backing file. Idempotent: safe to call
// multiple times (error paths + Close()).
func (c *chunkStore) cleanup() error {
	var errs []error

	// Close file (O_TMPFILE auto-deletes here)
	if c.file != nil {
		if err := c.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk: %w", err))
		}
		c.file = nil
	}

	// Remove only named chunks (O_TMPFILE auto-deleted on close)
	if c.path != "" {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove chunk: %w", err))
		}
		c.path = ""
	}

	c.writeBuf = nil
	return errors.Join(errs...)
}

// chunkReader streams a chunk's records in storage order. The content hash
// is verified before the final batch is handed out.
type chunkReader struct {
	r         io.Reader
	raw       []byte
	vals      []uint64
	pos       int
	remaining uint64 // records not yet read from disk

	digest *xxhash.Digest
	want   uint64
	e      error
}

func (cr *chunkReader) next() (uint64, bool) {
	if cr.pos >= len(cr.vals) {
		if !cr.refill() {
			return 0, false
		}
	}
	v := cr.vals[cr.pos]
	cr.pos++
	return v, true
}

func (cr *chunkReader) refill() bool {
	if cr.e != nil || cr.remaining == 0 {
		return false
	}

	n := uint64(cap(cr.vals))
	if cr.remaining < n {
		n = cr.remaining
	}
	buf := cr.raw[:n*encoding.RecordSize]
	if _, err := io.ReadFull(cr.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = streamerrors.ErrTruncatedChunk
		}
		cr.e = fmt.Errorf("read chunk: %w", err)
		return false
	}
	_, _ = cr.digest.Write(buf)
	cr.remaining -= n

	if cr.remaining == 0 && cr.digest.Sum64() != cr.want {
		cr.e = streamerrors.ErrChecksumFailed
		return false
	}

	cr.vals = encoding.Uint64s(cr.vals[:0], buf)
	cr.pos = 0
	return true
}

func (cr *chunkReader) err() error {
	return cr.e
}
