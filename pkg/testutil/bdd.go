package testutil

import "testing"

// Given, When, Then and And name nested subtests after the step they describe,
// so a failing case reads as a sentence in `go test -v` output.
func Given(t *testing.T, context string, steps func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+context, steps)
}

func When(t *testing.T, action string, steps func(t *testing.T)) {
	t.Helper()
	t.Run("When "+action, steps)
}

func Then(t *testing.T, outcome string, check func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+outcome, check)
}

func And(t *testing.T, outcome string, check func(t *testing.T)) {
	t.Helper()
	t.Run("And "+outcome, check)
}
