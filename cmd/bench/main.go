// Bench measures GCS build time, memory and filter size for the in-memory
// and external builders.
//
// Both builders run concurrently over the same values; the tool reports a
// mismatch if their outputs differ by a single byte.
//
// Usage:
//
//	go run ./cmd/bench -values 10000000 -p 784931 -spill 1000000
//
// Flags:
//
//	-values       Number of values to add (default: 10,000,000)
//	-p            Golomb-Rice modulus (default: 784931)
//	-spill        External builder spill threshold in values (default: 5,000,000)
//	-granularity  Index granularity, 0 disables the index (default: 1024)
//	-dups         Fraction of values that repeat an earlier value (default: 0)
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"text/tabwriter"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/gcs"
)

const hashSeed = 0x1234

// adder is the part of both builders the benchmark drives.
type adder interface {
	Add(v uint64) error
	Finish() error
	Close() error
	Stats() gcs.BuildStats
}

type buildResult struct {
	duration time.Duration
	stats    gcs.BuildStats
}

// run feeds values into the builder returned by create and finishes it.
func run[B adder](create func() (B, error), values []uint64) (buildResult, error) {
	start := time.Now()
	b, err := create()
	if err != nil {
		return buildResult{}, err
	}
	for _, v := range values {
		if err := b.Add(v); err != nil {
			_ = b.Close()
			return buildResult{}, err
		}
	}
	if err := b.Finish(); err != nil {
		return buildResult{}, err
	}
	return buildResult{duration: time.Since(start), stats: b.Stats()}, nil
}

// generateValues hashes random keys with murmur3. A dups fraction of the
// values repeat an earlier value.
func generateValues(n int, dups float64) []uint64 {
	values := make([]uint64, n)
	var key [32]byte
	for i := range values {
		if i > 0 && mrand.Float64() < dups {
			values[i] = values[mrand.IntN(i)]
			continue
		}
		_, _ = rand.Read(key[:])
		values[i] = murmur3.Sum64WithSeed(key[:], hashSeed)
	}
	return values
}

type config struct {
	values      int
	p           uint64
	spill       int
	granularity int
	dups        float64
	cpuprofile  string
	memprofile  string
}

func main() {
	var cfg config
	flag.IntVar(&cfg.values, "values", 10_000_000, "number of values")
	flag.Uint64Var(&cfg.p, "p", 784931, "Golomb-Rice modulus")
	flag.IntVar(&cfg.spill, "spill", 5_000_000, "external builder spill threshold in values")
	flag.IntVar(&cfg.granularity, "granularity", gcs.DefaultIndexGranularity, "index granularity (0 disables the index)")
	flag.Float64Var(&cfg.dups, "dups", 0, "fraction of values repeating an earlier value")
	flag.StringVar(&cfg.cpuprofile, "cpuprofile", "", "write cpu profile to file (build phase only)")
	flag.StringVar(&cfg.memprofile, "memprofile", "", "write memory profile to file (build phase only)")
	flag.Parse()

	if err := bench(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "bench: %v\n", err)
		os.Exit(1)
	}
}

func bench(cfg config) error {
	if cfg.values <= 0 || cfg.p == 0 {
		return fmt.Errorf("-values and -p must be positive")
	}

	fmt.Printf("Generating %d values...\n", cfg.values)
	genStart := time.Now()
	values := generateValues(cfg.values, cfg.dups)
	genDuration := time.Since(genStart)

	tmpDir, err := os.MkdirTemp("", "gcs-bench-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	memPath := filepath.Join(tmpDir, "memory.gcs")
	extPath := filepath.Join(tmpDir, "external.gcs")

	opts := []gcs.BuildOption{
		gcs.WithIndexGranularity(cfg.granularity),
		gcs.WithSpillThreshold(cfg.spill),
	}

	stopProfile, err := startCPUProfile(cfg.cpuprofile)
	if err != nil {
		return err
	}
	sampler := startSampler(10 * time.Millisecond)

	fmt.Println("Building filters...")
	var memResult, extResult buildResult
	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() (err error) {
		memResult, err = run(func() (*gcs.Builder, error) {
			return gcs.Create(memPath, cfg.p, opts...)
		}, values)
		if err != nil {
			return fmt.Errorf("in-memory build: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		extResult, err = run(func() (*gcs.ExternalBuilder, error) {
			return gcs.CreateExternal(extPath, cfg.p, uint64(len(values)), opts...)
		}, values)
		if err != nil {
			return fmt.Errorf("external build: %w", err)
		}
		return nil
	})
	buildErr := g.Wait()

	stopProfile()
	writeHeapProfile(cfg.memprofile)
	peak := sampler.stop()

	if buildErr != nil {
		return buildErr
	}

	identical, err := sameContents(memPath, extPath)
	if err != nil {
		return err
	}
	flt, err := gcs.Open(memPath)
	if err != nil {
		return err
	}
	defer func() { _ = flt.Close() }()
	st := flt.Stats()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	row := func(name string, format string, args ...any) {
		fmt.Fprintf(w, "%s\t%s\n", name, fmt.Sprintf(format, args...))
	}
	fmt.Println()
	row("values", "%d", cfg.values)
	row("distinct", "%d", memResult.stats.Distinct)
	row("modulus", "%d", cfg.p)
	row("file size", "%s", datasize.ByteSize(st.FileSize).HumanReadable())
	row("bits per value", "%.3f", float64(st.FileSize*8)/float64(cfg.values))
	row("bits per distinct", "%.3f", float64(memResult.stats.DataBits)/float64(max(memResult.stats.Distinct, 1)))
	row("index entries", "%d", st.IndexEntries)
	row("chunks spilled", "%d", extResult.stats.Chunks)
	row("generate", "%s", genDuration.Round(time.Millisecond))
	row("in-memory build", "%s", memResult.duration.Round(time.Millisecond))
	row("external build", "%s", extResult.duration.Round(time.Millisecond))
	row("external rate", "%.2f M values/sec", float64(cfg.values)/extResult.duration.Seconds()/1e6)
	row("peak heap growth", "%s", datasize.ByteSize(peak.heap).HumanReadable())
	row("peak RSS growth", "%s", datasize.ByteSize(peak.rss).HumanReadable())
	row("outputs identical", "%v", identical)
	if err := w.Flush(); err != nil {
		return err
	}

	if !identical {
		return fmt.Errorf("in-memory and external outputs differ")
	}
	return nil
}

func sameContents(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

// startCPUProfile starts profiling into path. The returned func stops it.
func startCPUProfile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

func writeHeapProfile(path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create memory profile: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintf(os.Stderr, "write memory profile: %v\n", err)
	}
}
