package util

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrNoUpdate indicates that no update has been received yet
var ErrNoUpdate = errors.New("no update received")

// Waiter monitors the age of the last successful update
type Waiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	updated time.Time
	timeout time.Duration
}

// NewWaiter creates new waiter. Zero timeout disables the age check.
func NewWaiter(clock clock.Clock, timeout time.Duration) *Waiter {
	return &Waiter{
		clock:   clock,
		timeout: timeout,
	}
}

// Update is called when an update has been received. Update resets the timeout counter.
func (p *Waiter) Update() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updated = p.clock.Now()
}

// Updated returns the time of the last update
func (p *Waiter) Updated() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updated
}

// Overdue returns an error if no update has been received or the last update exceeds timeout
func (p *Waiter) Overdue() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.updated.IsZero() {
		return ErrNoUpdate
	}

	if elapsed := p.clock.Since(p.updated); p.timeout != 0 && elapsed > p.timeout {
		return fmt.Errorf("timeout: %v", elapsed.Round(time.Second))
	}

	return nil
}
