package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv makes the binaries return before touching Postgres, Redis or
// the network. Test packages set it through ledgerline/testing.
const TestModeEnv = "LEDGERLINE_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

// InTestMode reports whether LEDGERLINE_TEST_MODE was set when first asked.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}
