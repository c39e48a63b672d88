package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "flowsegment",
		Short: "Position-anchored segmentation and translation for reader text",
	}

	root.AddCommand(newSegmentCmd())
	root.AddCommand(newLanguagesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
