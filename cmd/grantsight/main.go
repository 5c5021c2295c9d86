// Command grantsight is the hybrid grant-award search service CLI.
package main

import (
	"fmt"
	"os"

	"github.com/grantsight/grantsight/cmd/grantsight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
