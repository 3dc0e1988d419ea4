// Package clock provides the single source of "now" for the booking service.
// Every timestamp handled by the service lives in one fixed civil timezone.
package clock

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

// Layout is the wire format of every timestamp exchanged by the service.
const Layout = "2006-01-02 15:04:05"

// DefaultTimezone is Eastern European Time.
const DefaultTimezone = "Europe/Bucharest"

// Clock returns the current instant in the fleet timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Zone is a Clock backed by the system clock.
type Zone struct {
	loc *time.Location
}

// New returns a Clock for the named IANA timezone.
func New(name string) (*Zone, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &Zone{loc: loc}, nil
}

func (z *Zone) Now() time.Time { return time.Now().In(z.loc) }

func (z *Zone) Location() *time.Location { return z.loc }

// Fixed is a Clock frozen at a given instant until moved with Advance or Set.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Fixed clock reading t.
func NewFixed(t time.Time) *Fixed { return &Fixed{now: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location { return f.Now().Location() }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Format renders t in the wire layout. t is expected to already carry the
// fleet location.
func Format(t time.Time) string {
	return t.Format(Layout)
}
