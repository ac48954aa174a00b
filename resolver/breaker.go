package resolver

import (
	"fmt"
	"sync"
	"time"
)

// State captures circuit breaker states.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

// String renders the state for logs and stats.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// breakerEntry holds the fault-isolation state for one DID method.
type breakerEntry struct {
	failures      int
	lastFailure   time.Time
	state         State
	trialInFlight bool
}

// breakerRegistry tracks one circuit breaker per registered DID method.
// All mutations happen under the registry mutex; several concurrent driver
// calls for the same method may race to record outcomes.
type breakerRegistry struct {
	mu        sync.Mutex
	threshold int
	coolDown  time.Duration
	entries   map[string]*breakerEntry
	clock     func() time.Time
}

func newBreakerRegistry(threshold int, coolDown time.Duration) *breakerRegistry {
	return &breakerRegistry{
		threshold: threshold,
		coolDown:  coolDown,
		entries:   make(map[string]*breakerEntry),
		clock:     time.Now,
	}
}

// register initializes (or resets) the breaker for a method to closed.
func (r *breakerRegistry) register(method string) {
	r.mu.Lock()
	r.entries[method] = &breakerEntry{state: StateClosed}
	r.mu.Unlock()
}

// allow gates a driver call. Closed proceeds; Open fails fast until the
// cool-down elapses, then transitions to HalfOpen and admits a single trial;
// HalfOpen admits one call at a time.
func (r *breakerRegistry) allow(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[method]
	if !ok {
		entry = &breakerEntry{state: StateClosed}
		r.entries[method] = entry
	}

	switch entry.state {
	case StateClosed:
		return nil
	case StateOpen:
		if r.clock().Sub(entry.lastFailure) > r.coolDown {
			entry.state = StateHalfOpen
			entry.trialInFlight = true
			return nil
		}
		return fmt.Errorf("circuit open for method %q", method)
	case StateHalfOpen:
		if entry.trialInFlight {
			return fmt.Errorf("circuit half-open for method %q: trial in flight", method)
		}
		entry.trialInFlight = true
		return nil
	default:
		return fmt.Errorf("circuit in unknown state for method %q", method)
	}
}

// recordSuccess resets the method's breaker to closed.
func (r *breakerRegistry) recordSuccess(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[method]
	if !ok {
		return
	}
	entry.state = StateClosed
	entry.failures = 0
	entry.trialInFlight = false
}

// recordFailure counts one driver failure (after its retries are
// exhausted); crossing the threshold, or failing a half-open trial, opens
// the breaker and refreshes its cool-down window.
func (r *breakerRegistry) recordFailure(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[method]
	if !ok {
		entry = &breakerEntry{state: StateClosed}
		r.entries[method] = entry
	}

	entry.failures++
	entry.lastFailure = r.clock()
	if entry.state == StateHalfOpen || entry.failures >= r.threshold {
		entry.state = StateOpen
	}
	entry.trialInFlight = false
}

// state reports the current breaker state of a method.
func (r *breakerRegistry) state(method string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[method]; ok {
		return entry.state
	}
	return StateClosed
}

// failures reports the current failure count of a method.
func (r *breakerRegistry) failureCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[method]; ok {
		return entry.failures
	}
	return 0
}

// methods lists the registered method names.
func (r *breakerRegistry) methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
