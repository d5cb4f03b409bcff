// Package guard flips the binary into test mode when imported by a test, so
// main returns before touching redis or postgres.
package guard

import (
	"os"
	"sync"
)

// EnvVar is read by app.InTestMode.
const EnvVar = "ODYSSEY_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
