// Package errors defines all exported error sentinels for the gcs library.
//
// This is the single source of truth for error values. Both the top-level
// gcs package and internal packages import from here, ensuring errors.Is
// checks work across package boundaries.
package errors

import "errors"

// Configuration errors
var (
	ErrInvalidModulus   = errors.New("gcs: modulus p must be greater than zero")
	ErrEmptyFilter      = errors.New("gcs: external builder requires a non-zero value count")
	ErrModulusOverflow  = errors.New("gcs: n * p overflows uint64")
	ErrInvalidBatchSize = errors.New("gcs: batch size must be greater than zero")
	ErrInvalidChunkPath = errors.New("gcs: chunk path template must contain one integer verb")
)

// Build errors
var (
	ErrBuilderClosed      = errors.New("gcs: builder is closed")
	ErrBuilderNotFinished = errors.New("gcs: builder has not finished")
	ErrTooManyValues      = errors.New("gcs: more values added than declared")
	ErrValueCountMismatch = errors.New("gcs: value count mismatch")
	ErrUnsortedSource     = errors.New("gcs: value source is not strictly ascending")
)

// Chunk errors
var (
	ErrChecksumFailed = errors.New("gcs: chunk checksum verification failed")
	ErrTruncatedChunk = errors.New("gcs: chunk is truncated")
	ErrChunkSealed    = errors.New("gcs: chunk is sealed for reading")
)

// Filter file errors
var (
	ErrInvalidMagic    = errors.New("gcs: invalid magic marker")
	ErrTruncatedFile   = errors.New("gcs: filter file is truncated")
	ErrCorruptedFilter = errors.New("gcs: filter data is corrupted")
)

// Bit I/O errors
var (
	ErrUnaligned  = errors.New("gcs: byte write on unaligned bit stream")
	ErrBitCount   = errors.New("gcs: bit count out of range")
	ErrSinkClosed = errors.New("gcs: bit sink is closed")
)
