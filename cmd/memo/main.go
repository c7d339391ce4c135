// Package main provides the memo CLI for inspecting and maintaining
// memoization archives.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
