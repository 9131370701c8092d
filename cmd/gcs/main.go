/*
This is the entrypoint for the gcs binary.
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
