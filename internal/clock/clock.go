// Package clock paces the run loop at a fixed tick rate.
package clock

import "time"

// Pacer releases one tick per period. Ticks missed while the caller was busy
// are dropped rather than queued, so a slow frame never causes a burst.
type Pacer struct {
	period time.Duration
	ticker *time.Ticker
}

// New returns a pacer firing rate times per second.
func New(rate int) *Pacer {
	period := Period(rate)
	return &Pacer{
		period: period,
		ticker: time.NewTicker(period),
	}
}

// Period converts a tick rate in Hz to the tick period.
func Period(rate int) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	return time.Second / time.Duration(rate)
}

func (p *Pacer) Period() time.Duration {
	return p.period
}

// Wait blocks until the next tick.
func (p *Pacer) Wait() {
	<-p.ticker.C
}

func (p *Pacer) Stop() {
	p.ticker.Stop()
}
