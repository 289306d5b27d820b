package utils

import "testing"

// DisableInvariantPanics lets tests raise invariants on purpose in test-mode builds. Test mode is restored when the
// test is done.
func DisableInvariantPanics(tb testing.TB) {
	tb.Helper()
	prevMode := IsTestMode
	tb.Cleanup(func() { IsTestMode = prevMode })
	IsTestMode = false
}
