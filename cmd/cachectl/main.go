// Command cachectl inspects and maintains an AppCache backend.
//
//	cachectl --backend redis --redis-addr localhost:6379 partitions
//	cachectl sweep users
//	cachectl get --partition users 42
//	cachectl clear --yes
//
// Settings come from flags, CACHECTL_* environment variables and an optional
// YAML file passed with --config, in that order of precedence.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
