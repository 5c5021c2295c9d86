package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_ErrorString(t *testing.T) {
	err := RateLimited("embed_batch", "too many requests", nil)
	assert.Equal(t, "embed_batch: too many requests (rate_limited)", err.Error())

	wrapped := Transient("embed", "request failed", stderrors.New("connection reset"))
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.Contains(t, wrapped.Error(), "transient")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Permanent("embed", "bad request", cause)
	assert.ErrorIs(t, err, cause)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Transient("op", "m", nil).Retryable())
	assert.True(t, RateLimited("op", "m", nil).Retryable())
	assert.False(t, Permanent("op", "m", nil).Retryable())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limited", RateLimited("op", "m", nil), KindRateLimited},
		{"permanent", Permanent("op", "m", nil), KindPermanent},
		{"transient", Transient("op", "m", nil), KindTransient},
		{"wrapped in fmt", fmt.Errorf("outer: %w", Permanent("op", "m", nil)), KindPermanent},
		{"unclassified defaults to transient", stderrors.New("unknown"), KindTransient},
		{"nil defaults to transient", nil, KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent("op", "m", nil)))
	assert.False(t, IsPermanent(RateLimited("op", "m", nil)))
	assert.False(t, IsPermanent(stderrors.New("unknown")))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(fmt.Errorf("wrap: %w", RateLimited("op", "m", nil))))
	assert.False(t, IsRateLimited(Transient("op", "m", nil)))
}
