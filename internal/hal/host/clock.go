package host

import (
	"time"

	"github.com/mlitov/nucleo/internal/hal"
)

// injector is satisfied by *Switcher; kept narrow so Clock and Keyboard
// don't need the whole Switcher surface.
type injector interface {
	InjectInterrupt(hal.Request)
}

// Clock arms a periodic ticker that injects a timer interrupt, standing in
// for PIT programming.
type Clock struct {
	sw     injector
	ticker *time.Ticker
	stopCh chan struct{}
}

func NewClock(sw injector) *Clock {
	return &Clock{sw: sw}
}

func (c *Clock) ArmTick(period time.Duration) {
	c.Stop()
	c.ticker = time.NewTicker(period)
	c.stopCh = make(chan struct{})
	ticker, stop := c.ticker, c.stopCh
	go func() {
		for {
			select {
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				c.sw.InjectInterrupt(hal.Request{Kind: hal.ReqTimerInterrupt})
			case <-stop:
				return
			}
		}
	}()
}

func (c *Clock) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stopCh)
		c.ticker = nil
	}
}
