// Package guard flips the runtime into test mode when imported from a test
// binary, so package main entrypoints short-circuit instead of dialing
// Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("COMAL_TEST_MODE") == "" {
			_ = os.Setenv("COMAL_TEST_MODE", "1")
		}
	})
}
