package testutil

import (
	"testing"
)

// MustSetTestEnvironment sets GO_ENV to test for the duration of t so configuration
// never resolves a development or production .env file.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
}
