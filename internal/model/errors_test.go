package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeCategoryKnownAndDefault(t *testing.T) {
	require.Equal(t, CategoryBusiness, ErrProhibitionDetected.Category())
	require.Equal(t, CategoryFormStructure, ErrNoMessageArea.Category())
	require.Equal(t, CategorySystem, ErrorCode("UNKNOWN_CODE").Category())
}

func TestErrorCodeRetryableExceptions(t *testing.T) {
	require.False(t, ErrProhibitionDetected.Retryable())
	require.False(t, ErrNoMessageArea.Retryable())
	require.False(t, ErrSkippedByNamePolicy.Retryable())
	require.False(t, ErrSkippedWrongClient.Retryable())
	require.True(t, ErrTimeout.Retryable())
	require.True(t, ErrSystem.Retryable())
}

func TestBuildClassifyDetailZeroesCooldownWhenNonRetryable(t *testing.T) {
	cd := BuildClassifyDetail(ErrProhibitionDetected, 0.9, Evidence{})
	require.False(t, cd.Retryable)
	require.Equal(t, 0, cd.CooldownSeconds)
	require.Equal(t, CategoryBusiness, cd.Category)
}

func TestBuildClassifyDetailCarriesEvidenceAndConfidence(t *testing.T) {
	ev := Evidence{SuccessPhrases: []string{"ありがとう"}, HTTPStatus: 200}
	cd := BuildClassifyDetail(ErrTimeout, 0.4, ev)
	require.Equal(t, ev, cd.Evidence)
	require.Equal(t, 0.4, cd.Confidence)
	require.True(t, cd.Retryable)
}

func TestSubmissionErrorFormatsWithAndWithoutMessage(t *testing.T) {
	bare := ErrCode(ErrTimeout)
	require.Equal(t, "TIMEOUT", bare.Error())

	cause := errors.New("boom")
	wrapped := Wrap(ErrSystem, cause, "step %d failed", 3)
	require.Equal(t, "SYSTEM: step 3 failed", wrapped.Error())
	require.ErrorIs(t, wrapped, cause) // Unwrap chain still reaches the original cause
}

func TestErrorsIsMatchesByCodeNotMessage(t *testing.T) {
	err := Wrap(ErrTimeout, nil, "request took too long")
	require.True(t, errors.Is(err, ErrCode(ErrTimeout)))
	require.False(t, errors.Is(err, ErrCode(ErrSystem)))
}

func TestWrapUnwrapReachesCause(t *testing.T) {
	cause := errors.New("network reset")
	err := Wrap(ErrAccess, cause, "dial failed")
	require.Equal(t, cause, errors.Unwrap(err))
	require.True(t, errors.Is(err, cause))
}

func TestSubmissionErrorImplementsStandardErrorInterface(t *testing.T) {
	var err error = ErrCode(ErrMapping)
	require.EqualError(t, err, "MAPPING")
	require.Equal(t, "mapping error: MAPPING", fmt.Sprintf("mapping error: %s", err))
}
