package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	registry := newBreakerRegistry(5, 10*time.Second)
	registry.register("web")

	for i := 0; i < 4; i++ {
		registry.recordFailure("web")
	}
	assert.Equal(t, StateClosed, registry.state("web"))
	assert.NoError(t, registry.allow("web"))

	registry.recordFailure("web")
	assert.Equal(t, StateOpen, registry.state("web"))
	assert.Error(t, registry.allow("web"))
	assert.Equal(t, 5, registry.failureCount("web"))
}

func TestBreakerFailsFastDuringCoolDown(t *testing.T) {
	registry := newBreakerRegistry(1, 10*time.Second)
	registry.register("web")

	now := time.Now()
	registry.clock = func() time.Time { return now }

	registry.recordFailure("web")
	require.Equal(t, StateOpen, registry.state("web"))

	// Inside the cool-down window every call is rejected.
	now = now.Add(9 * time.Second)
	assert.Error(t, registry.allow("web"))
	assert.Equal(t, StateOpen, registry.state("web"))
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	registry := newBreakerRegistry(1, 10*time.Second)
	registry.register("web")

	now := time.Now()
	registry.clock = func() time.Time { return now }

	registry.recordFailure("web")
	require.Equal(t, StateOpen, registry.state("web"))

	// Past the cool-down a single trial is admitted; concurrent callers
	// keep failing fast until the trial reports an outcome.
	now = now.Add(11 * time.Second)
	require.NoError(t, registry.allow("web"))
	assert.Equal(t, StateHalfOpen, registry.state("web"))
	assert.Error(t, registry.allow("web"))

	registry.recordSuccess("web")
	assert.Equal(t, StateClosed, registry.state("web"))
	assert.Equal(t, 0, registry.failureCount("web"))
	assert.NoError(t, registry.allow("web"))
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	registry := newBreakerRegistry(3, 10*time.Second)
	registry.register("web")

	now := time.Now()
	registry.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		registry.recordFailure("web")
	}
	require.Equal(t, StateOpen, registry.state("web"))

	now = now.Add(11 * time.Second)
	require.NoError(t, registry.allow("web"))
	require.Equal(t, StateHalfOpen, registry.state("web"))

	// A failed trial reopens immediately, threshold notwithstanding.
	registry.recordFailure("web")
	assert.Equal(t, StateOpen, registry.state("web"))
	assert.Error(t, registry.allow("web"))
}

func TestBreakerRegisterResets(t *testing.T) {
	registry := newBreakerRegistry(1, 10*time.Second)
	registry.register("web")
	registry.recordFailure("web")
	require.Equal(t, StateOpen, registry.state("web"))

	registry.register("web")
	assert.Equal(t, StateClosed, registry.state("web"))
	assert.Equal(t, 0, registry.failureCount("web"))
}

func TestBreakerMethodsAreIndependent(t *testing.T) {
	registry := newBreakerRegistry(1, 10*time.Second)
	registry.register("web")
	registry.register("ion")

	registry.recordFailure("ion")
	assert.Equal(t, StateOpen, registry.state("ion"))
	assert.Equal(t, StateClosed, registry.state("web"))
	assert.NoError(t, registry.allow("web"))
	assert.ElementsMatch(t, []string{"web", "ion"}, registry.methods())
}
