// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Command speclog inspects log specs and spec files, and can run a logger that
// copies stdin to the configured target while watching a spec file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speclog",
		Short:         "Work with speclog log specifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd(), newRenderCmd(), newEvalCmd(), newTailCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "speclog:", err)
		os.Exit(1)
	}
}
