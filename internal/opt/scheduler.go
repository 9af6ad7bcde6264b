package opt

import "math"

// Schedule maps an epoch index (0-based) to the learning rate for that epoch.
type Schedule interface {
	Rate(epoch int, base float64) float64
}

// Constant keeps the base learning rate for every epoch.
type Constant struct{}

func (Constant) Rate(epoch int, base float64) float64 { return base }

// StepDecay multiplies the learning rate by Gamma every Every epochs.
type StepDecay struct {
	Every int
	Gamma float64
}

// Rate returns base * Gamma^(epoch / Every).
func (s StepDecay) Rate(epoch int, base float64) float64 {
	if s.Every <= 0 {
		return base
	}
	return base * math.Pow(s.Gamma, float64(epoch/s.Every))
}

// ExponentialDecay multiplies the learning rate by Gamma every epoch.
type ExponentialDecay struct {
	Gamma float64
}

func (e ExponentialDecay) Rate(epoch int, base float64) float64 {
	return base * math.Pow(e.Gamma, float64(epoch))
}
