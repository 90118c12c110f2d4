// Package testing switches binaries into test mode when blank-imported by a
// test package.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be assigned by packages that need the flag before any test runs.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
