package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tamirms/gcs"
)

// buildFlags holds the options of the build command.
type buildFlags struct {
	p           uint64
	n           uint64
	granularity int
	keys        bool
	external    bool
	spill       int
	chunkPath   string
	metricsOut  string
}

// adder is the part of both builders the input loop needs.
type adder interface {
	Add(v uint64) error
	AddKey(key []byte) error
}

func NewBuildCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	bf := &buildFlags{}
	buildCmd := &cobra.Command{
		Use:   "build <input> <output>",
		Short: "Builds a filter from a list of values.",
		Long: `Builds a Golomb-coded set file from input holding one value per line.

Values are unsigned integers (decimal, or hex with a 0x prefix). With --keys
each line is treated as an opaque key and hashed. Blank lines are skipped.
Use - as input to read from stdin.

--external bounds memory by spilling sorted chunks to disk. It needs the
value count up front: pass --n, or give a file input and it is counted first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.Flags(), stderr)
			if err != nil {
				return err
			}
			input, output := args[0], args[1]

			reg := prometheus.NewRegistry()
			opts := []gcs.BuildOption{
				gcs.WithIndexGranularity(bf.granularity),
				gcs.WithLogger(logger),
				gcs.WithMetrics(gcs.NewMetrics(reg)),
			}

			var stats gcs.BuildStats
			if bf.external {
				stats, err = bf.buildExternal(input, output, stdin, opts)
			} else {
				stats, err = bf.buildInMemory(input, output, stdin, opts)
			}
			if err != nil {
				level.Error(logger).Log("msg", "build failed", "output", output, "err", err)
				return err
			}

			fmt.Fprintf(stdout, "wrote %s: n=%d distinct=%d bytes=%d index=%d\n",
				output, stats.N, stats.Distinct, stats.FileSize(), stats.IndexEntries)

			if bf.metricsOut != "" {
				if err := prometheus.WriteToTextfile(bf.metricsOut, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return nil
		},
	}

	flags := buildCmd.Flags()
	flags.Uint64VarP(&bf.p, "p", "p", 784931, "Golomb-Rice modulus; the false-positive rate is about 1/p.")
	flags.Uint64VarP(&bf.n, "n", "n", 0, "Value count for --external (counted from the input file when 0).")
	flags.IntVar(&bf.granularity, "granularity", gcs.DefaultIndexGranularity, "Elements between index entries; 0 disables the index.")
	flags.BoolVar(&bf.keys, "keys", false, "Hash each line as a key instead of parsing an integer.")
	flags.BoolVar(&bf.external, "external", false, "Use the memory-bounded external builder.")
	flags.IntVar(&bf.spill, "spill", 5_000_000, "Values buffered before the external builder spills a chunk.")
	flags.StringVar(&bf.metricsOut, "metrics-out", "", "Write build metrics in the Prometheus text format to this file.")
	flags.StringVar(&bf.chunkPath, "chunk-path", "", "Chunk path template with one integer verb (default <output>.%03d.tmp).")

	return buildCmd
}

func (bf *buildFlags) buildInMemory(input, output string, stdin io.Reader, opts []gcs.BuildOption) (gcs.BuildStats, error) {
	builder, err := gcs.Create(output, bf.p, opts...)
	if err != nil {
		return gcs.BuildStats{}, err
	}
	defer builder.Close()

	if err := bf.feed(input, stdin, builder); err != nil {
		return gcs.BuildStats{}, err
	}
	if err := builder.Finish(); err != nil {
		return gcs.BuildStats{}, err
	}
	return builder.Stats(), nil
}

func (bf *buildFlags) buildExternal(input, output string, stdin io.Reader, opts []gcs.BuildOption) (gcs.BuildStats, error) {
	n := bf.n
	if n == 0 {
		if input == "-" {
			return gcs.BuildStats{}, fmt.Errorf("--n is required when reading stdin with --external")
		}
		var err error
		if n, err = countValues(input); err != nil {
			return gcs.BuildStats{}, err
		}
	}

	opts = append(opts, gcs.WithSpillThreshold(bf.spill))
	if bf.chunkPath != "" {
		opts = append(opts, gcs.WithChunkPath(bf.chunkPath))
	}

	builder, err := gcs.CreateExternal(output, bf.p, n, opts...)
	if err != nil {
		return gcs.BuildStats{}, err
	}
	defer builder.Close()

	if err := bf.feed(input, stdin, builder); err != nil {
		return gcs.BuildStats{}, err
	}
	if err := builder.Finish(); err != nil {
		return gcs.BuildStats{}, err
	}
	return builder.Stats(), nil
}

// feed adds every non-blank line of input to b.
func (bf *buildFlags) feed(input string, stdin io.Reader, b adder) error {
	r := stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		if bf.keys {
			if err := b.AddKey(text); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}
		v, err := strconv.ParseUint(string(text), 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := b.Add(v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// countValues counts the non-blank lines of the file at path.
func countValues(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var n uint64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) > 0 {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("count input: %w", err)
	}
	return n, nil
}

func init() {
	subcommandFns["build"] = NewBuildCommand
}
