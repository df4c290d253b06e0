// Package main is the crawler CLI. It seeds a crawl of the TRON explorer
// from a file of contract addresses, from the contracts already stored, or
// starts periodic wallet sweeps, and runs until interrupted.
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	loadEnvFile(".env")

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile sets KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is ignored.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(value))
		}
	}
}
