package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged random decisions.
// Every draw is logged at debug level with its purpose and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewLoggedRoller: src must not be nil")
	}
	if logger == nil {
		panic("dice.NewLoggedRoller: logger must not be nil")
	}
	return &Roller{src: src, logger: logger}
}

// Intn draws a value in [0, n) for purpose and logs it.
//
// Precondition: n > 0.
// Postcondition: Returns a value in [0, n).
func (r *Roller) Intn(n int, purpose string) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice roll",
		zap.String("purpose", purpose),
		zap.Int("sides", n),
		zap.Int("result", v),
	)
	return v
}

// Chance reports success with probability percent/100.
//
// Postcondition: percent <= 0 never succeeds; percent >= 100 always succeeds.
func (r *Roller) Chance(percent int, purpose string) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	return r.Intn(100, purpose) < percent
}

// Fuzzy returns normal, flipped with probability perMille/1000. It models an
// AI that occasionally forgets a good decision.
//
// Postcondition: perMille <= 0 always returns normal.
func (r *Roller) Fuzzy(normal bool, perMille int) bool {
	if perMille <= 0 {
		return normal
	}
	if r.Intn(1000, "fuzzy") >= perMille {
		return normal
	}
	return !normal
}
