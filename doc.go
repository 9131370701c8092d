// Package gcs builds Golomb-coded sets (GCS): compact probabilistic
// membership filters over uint64 values with a false-positive rate of about
// 1/p.
//
// A filter is built by reducing every value modulo n*p, sorting and
// deduplicating the residues, and Golomb-Rice coding the gaps between
// consecutive residues with modulus p. A sparse index of (value, bit offset)
// pairs lets readers seek into the bit stream without decoding it from the
// start.
//
// # Basic Usage
//
// Building a filter in memory:
//
//	builder, err := gcs.Create("hashes.gcs", 1<<20)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer builder.Close()
//	for _, key := range keys {
//	    if err := builder.AddKey(key); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	if err := builder.Finish(); err != nil {
//	    log.Fatal(err)
//	}
//
// Building a filter larger than RAM (the count must be known up front):
//
//	builder, err := gcs.CreateExternal("hashes.gcs", 1<<20, totalKeys)
//
// Both builders produce byte-identical output for the same values.
//
// # File Layout
//
// All integers are big-endian uint64:
//
//	[Golomb-Rice data, zero-padded to a byte boundary]
//	[IndexCount x (Value, BitOffset)]
//	[N][P][DataLen][IndexCount]
//	["[GCS:v0]"]
//
// # Package Structure
//
//   - Public API: builder.go (NewBuilder, Create), builder_external.go
//     (NewExternalBuilder, CreateExternal), filter.go (Open, Stats)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Encoding: encoder.go (Golomb-Rice), filter_writer.go (data, index, footer),
//     footer.go (layout), internal/bitio (bit sink)
//   - External path: chunk.go (sorted chunk files), merge.go (k-way merge)
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go, tmpfile_*.go
//   - Tools: cmd/gcs (build and inspect files), cmd/bench (build benchmark)
package gcs
