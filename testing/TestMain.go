// Package testing puts every importing test binary into Ledgerline's test
// mode and points optional services at addresses that fail fast.
package testing

import (
	"os"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"LEDGERLINE_TEST_MODE": "1",
	"GOTENBERG_URL":        "http://127.0.0.1:0",
}

func init() {
	for key, value := range testEnv {
		if key == "LEDGERLINE_TEST_MODE" || os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain lets a package adopt the environment explicitly:
//
//	func TestMain(m *testing.M) { ledgertesting.TestMain(m) }
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
