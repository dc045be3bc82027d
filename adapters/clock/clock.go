// Package clock provides Clock implementations.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/artpar/installpay/domain/invoice"
	"github.com/artpar/installpay/ports"
)

// Real returns the actual current time. When Location is set, the time is
// reported in that location so calendar dates follow the billing timezone.
type Real struct {
	Location *time.Location
}

// InLocation returns a Real clock for an IANA zone name.
// An empty name keeps the local zone.
func InLocation(name string) (Real, error) {
	if name == "" {
		return Real{}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Real{}, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return Real{Location: loc}, nil
}

// Now returns the current time.
func (r Real) Now() time.Time {
	now := time.Now()
	if r.Location != nil {
		return now.In(r.Location)
	}
	return now
}

// Today returns the calendar date of c.Now().
func Today(c ports.Clock) time.Time {
	return invoice.Date(c.Now())
}

// Fake provides a controllable clock for testing.
type Fake struct {
	mu      sync.RWMutex
	current time.Time
}

// NewFake creates a fake clock set to the given time.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// NewFakeDate creates a fake clock at noon UTC of a YYYY-MM-DD date.
func NewFakeDate(date string) *Fake {
	d, err := invoice.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return NewFake(d.Add(12 * time.Hour))
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Set sets the fake current time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Advance moves the fake time forward by duration d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

// AdvanceDays moves the fake time by n calendar days.
func (f *Fake) AdvanceDays(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.AddDate(0, 0, n)
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Fake)(nil)
)
