// Package logtest returns loggers for tests.
package logtest

import (
	"os"
	"testing"

	"sealedstate/internal/log"
)

// Level is DebugLevel when SEALEDSTATE_TEST_LOGS=DEBUG, InfoLevel otherwise.
func Level(t testing.TB) int {
	if os.Getenv("SEALEDSTATE_TEST_LOGS") == "DEBUG" {
		t.Log("Enabling DebugLevel logs")
		return log.DebugLevel
	}
	return log.InfoLevel
}

// New returns a JSON logger tagged with the test name.
func New(t testing.TB) log.Logger {
	return log.New(nil, Level(t), true).With("testName", t.Name())
}
