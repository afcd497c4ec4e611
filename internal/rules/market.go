package rules

import (
	"fmt"
	"time"
	_ "time/tzdata" // market zone must resolve on hosts without zoneinfo
)

const (
	sessionOpen  = 9*time.Hour + 30*time.Minute
	sessionClose = 16 * time.Hour
	edgeWindow   = 15 * time.Minute
)

// MarketClock answers session questions in the exchange's local time.
type MarketClock struct {
	loc *time.Location
}

// NewMarketClock loads the named IANA zone, e.g. "America/New_York".
func NewMarketClock(zone string) (*MarketClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("could not load market time zone %q: %w", zone, err)
	}
	return &MarketClock{loc: loc}, nil
}

// Local converts t to exchange time.
func (m *MarketClock) Local(t time.Time) time.Time {
	return t.In(m.loc)
}

func (m *MarketClock) sinceMidnight(t time.Time) time.Duration {
	lt := t.In(m.loc)
	return time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second
}

// InSession reports whether t falls within 09:30-16:00 exchange time, both ends inclusive.
func (m *MarketClock) InSession(t time.Time) bool {
	d := m.sinceMidnight(t)
	return d >= sessionOpen && d <= sessionClose
}

// InOpeningOrClosingWindow reports whether t falls in [09:30,09:45) or [15:45,16:00].
func (m *MarketClock) InOpeningOrClosingWindow(t time.Time) bool {
	d := m.sinceMidnight(t)
	if d >= sessionOpen && d < sessionOpen+edgeWindow {
		return true
	}
	return d >= sessionClose-edgeWindow && d <= sessionClose
}
