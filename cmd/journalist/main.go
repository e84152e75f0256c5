// Command journalist extracts structured records from scanned journal pages
// and assembles them into a resumable dataset.
package main

import (
	"fmt"
	"os"

	"github.com/nbirkbak/journalist/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
