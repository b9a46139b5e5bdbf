// Package countdown computes the time left until a deadline and refreshes it
// once per second for live displays.
package countdown

import "time"

const (
	msPerSecond = 1_000
	msPerMinute = 60_000
	msPerHour   = 3_600_000
	msPerDay    = 86_400_000
)

// State is the breakdown of the time left until a deadline.
type State struct {
	Days      int  `json:"days"`
	Hours     int  `json:"hours"`
	Minutes   int  `json:"minutes"`
	Seconds   int  `json:"seconds"`
	IsExpired bool `json:"is_expired"`
}

// Changed flags which displayed units differ from the previous emission.
// Expired is set on the tick that crosses the deadline.
type Changed struct {
	Days    bool `json:"days"`
	Hours   bool `json:"hours"`
	Minutes bool `json:"minutes"`
	Seconds bool `json:"seconds"`
	Expired bool `json:"expired"`
}

// Any reports whether anything shown on the display changed.
func (c Changed) Any() bool {
	return c.Days || c.Hours || c.Minutes || c.Seconds || c.Expired
}

// Tick is one emission of a running countdown.
type Tick struct {
	State   State     `json:"state"`
	Changed Changed   `json:"changed"`
	At      time.Time `json:"at"`
}

// Expired is the zero state reported at and after the deadline.
var Expired = State{IsExpired: true}

// Remaining decomposes endTime-now with floor division on whole
// milliseconds. Anything at or past the deadline is Expired.
func Remaining(endTime, now time.Time) State {
	diff := endTime.Sub(now).Milliseconds()
	if diff <= 0 {
		return Expired
	}
	return State{
		Days:    int(diff / msPerDay),
		Hours:   int(diff / msPerHour % 24),
		Minutes: int(diff / msPerMinute % 60),
		Seconds: int(diff / msPerSecond % 60),
	}
}

// Diff compares two states unit by unit.
func Diff(prev, next State) Changed {
	return Changed{
		Days:    prev.Days != next.Days,
		Hours:   prev.Hours != next.Hours,
		Minutes: prev.Minutes != next.Minutes,
		Seconds: prev.Seconds != next.Seconds,
		Expired: prev.IsExpired != next.IsExpired,
	}
}
