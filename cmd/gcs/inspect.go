package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/tamirms/gcs"
)

func NewInspectCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var showIndex bool
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Prints the footer, index summary and sizes of a filter.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flt, err := gcs.Open(args[0])
			if err != nil {
				return err
			}
			defer flt.Close()
			return printFilter(stdout, flt, showIndex)
		},
	}
	inspectCmd.Flags().BoolVar(&showIndex, "index", false, "Also print every index entry.")
	return inspectCmd
}

func printFilter(w io.Writer, flt *gcs.Filter, showIndex bool) error {
	s := flt.Stats()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "n\t%d\n", s.N)
	fmt.Fprintf(tw, "p\t%d\n", s.P)
	fmt.Fprintf(tw, "remainder bits\t%d\n", s.RemainderBits)
	fmt.Fprintf(tw, "data\t%s (%d bytes)\n", datasize.ByteSize(s.DataBytes).HumanReadable(), s.DataBytes)
	fmt.Fprintf(tw, "index entries\t%d\n", s.IndexEntries)
	fmt.Fprintf(tw, "file size\t%s (%d bytes)\n", datasize.ByteSize(s.FileSize).HumanReadable(), s.FileSize)
	fmt.Fprintf(tw, "bits per element\t%.3f\n", s.BitsPerElement)

	entries := flt.IndexEntries()
	if len(entries) > 0 {
		first, last := entries[0], entries[len(entries)-1]
		fmt.Fprintf(tw, "first entry\tvalue=%d bit=%d\n", first.Value, first.BitOffset)
		fmt.Fprintf(tw, "last entry\tvalue=%d bit=%d\n", last.Value, last.BitOffset)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if showIndex {
		for i, e := range entries {
			if _, err := fmt.Fprintf(w, "%d\t%d\t%d\n", i, e.Value, e.BitOffset); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	subcommandFns["inspect"] = NewInspectCommand
}
