package lobby

import "time"

// timer drives countdown and response ticks. Each arm bumps the generation,
// so a callback that fires after a stop or re-arm is recognised as stale
// when its tick reaches the loop.
type timer struct {
	gen uint64
	t   *time.Timer
}

func (tm *timer) arm(d time.Duration, fire func(gen uint64)) {
	tm.stop()
	gen := tm.gen
	tm.t = time.AfterFunc(d, func() { fire(gen) })
}

// stop is safe to call any number of times.
func (tm *timer) stop() {
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
	tm.gen++
}

func (tm *timer) current(gen uint64) bool {
	return tm.t != nil && gen == tm.gen
}

func (l *Lobby) armTick() {
	l.timer.arm(l.settings.Tick, func(gen uint64) { l.post(tick{gen: gen}) })
}

func (l *Lobby) onTick(gen uint64) {
	if !l.timer.current(gen) {
		return
	}
	switch l.status {
	case StatusCountdown:
		l.countdownTick()
	case StatusActive:
		l.roundTick()
	}
}
