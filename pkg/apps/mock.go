package apps

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockApp implements App for testing. It counts calls and returns the
// configured errors.
type MockApp struct {
	id       ID
	interval time.Duration

	mu        sync.RWMutex
	updateErr error
	drawErr   error

	updates atomic.Int64
	draws   atomic.Int64

	// UpdateFunc, if set, overrides the default Update behaviour.
	UpdateFunc func(ctx context.Context) error

	// DrawFunc, if set, overrides the default Draw behaviour.
	DrawFunc func(ctx context.Context) error
}

// MockAppOption configures a MockApp.
type MockAppOption func(*MockApp)

// WithUpdateError sets the error returned by Update.
func WithUpdateError(err error) MockAppOption {
	return func(m *MockApp) { m.updateErr = err }
}

// WithDrawError sets the error returned by Draw.
func WithDrawError(err error) MockAppOption {
	return func(m *MockApp) { m.drawErr = err }
}

// WithUpdateFunc sets a custom function for Update.
func WithUpdateFunc(fn func(ctx context.Context) error) MockAppOption {
	return func(m *MockApp) { m.UpdateFunc = fn }
}

// WithDrawFunc sets a custom function for Draw.
func WithDrawFunc(fn func(ctx context.Context) error) MockAppOption {
	return func(m *MockApp) { m.DrawFunc = fn }
}

// NewMockApp creates a mock app with the given identifier and interval.
func NewMockApp(id ID, interval time.Duration, opts ...MockAppOption) *MockApp {
	m := &MockApp{id: id, interval: interval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the identifier.
func (m *MockApp) ID() ID { return m.id }

// Interval returns the configured interval regardless of the time.
func (m *MockApp) Interval(time.Time) time.Duration { return m.interval }

// Update records the call and returns the configured error.
func (m *MockApp) Update(ctx context.Context) error {
	m.updates.Add(1)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updateErr
}

// Draw records the call and returns the configured error.
func (m *MockApp) Draw(ctx context.Context) error {
	m.draws.Add(1)
	if m.DrawFunc != nil {
		return m.DrawFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drawErr
}

// SetUpdateError updates the returned error (thread-safe).
func (m *MockApp) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// Updates returns how many times Update has been called.
func (m *MockApp) Updates() int64 { return m.updates.Load() }

// Draws returns how many times Draw has been called.
func (m *MockApp) Draws() int64 { return m.draws.Load() }

// Factory returns a Factory that always yields m.
func (m *MockApp) Factory() Factory {
	return func(Env) (App, error) { return m, nil }
}
