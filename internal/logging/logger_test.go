package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTrimsAndTruncates(t *testing.T) {
	require.Equal(t, "hello world", Sanitize("  hello\nworld  "))
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	got := Sanitize(string(long))
	require.LessOrEqual(t, len(got), 260)
}

func TestForWithoutInitReturnsNoOp(t *testing.T) {
	// Before Init(), For must not panic and must return a usable logger.
	l := For(CategoryWorker)
	require.NotNil(t, l)
}
