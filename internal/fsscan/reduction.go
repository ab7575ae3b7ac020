package fsscan

import (
	"math"

	"github.com/diskvigil/diskvigil/internal/errors"
)

// modeTargets maps each reduction mode to its maximum write-reduction
// fraction.
var modeTargets = map[ReductionMode]float64{
	ModeNormal:       0.20,
	ModeConservative: 0.40,
	ModeAggressive:   0.60,
	ModeEmergency:    0.80,
}

// modeForHealth scales aggressiveness with how sick the drive is.
func modeForHealth(healthScore float64) ReductionMode {
	switch {
	case healthScore >= 80:
		return ModeNormal
	case healthScore >= 60:
		return ModeConservative
	case healthScore >= 40:
		return ModeAggressive
	default:
		return ModeEmergency
	}
}

// EstimateWriteReduction sizes the write reduction achievable at the given
// health score and compression potential. A non-empty override pins the
// mode regardless of health; an unknown override is an error.
func (s *Service) EstimateWriteReduction(healthScore, potential float64, override ReductionMode) (WriteReduction, error) {
	mode := modeForHealth(healthScore)
	if override != "" {
		if !override.IsValid() {
			return WriteReduction{}, errors.New().WithData(ErrInvalidModeOverride, string(override))
		}
		mode = override
	}

	max := modeTargets[mode]

	// Direct effect: compression is ~60% efficient on compressible data,
	// and never exceeds 70% of the mode target.
	direct := math.Min(potential*0.6, max*0.7)

	// Indirect effect from batching and write coalescing.
	bonus := math.Min(max*0.3, 0.20)

	return WriteReduction{
		Mode:            mode,
		MaxReduction:    max,
		DirectReduction: round3(direct),
		BatchingBonus:   round3(bonus),
		TotalReduction:  round3(direct + bonus),
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
