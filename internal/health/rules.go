package health

import (
	"math"

	"github.com/diskvigil/diskvigil/internal/smart"
)

// attributeBand is the {normal, critical} threshold pair for one attribute.
// At or under normal the attribute scores full marks; past critical it is
// worth nothing.
type attributeBand struct {
	normal   float64
	critical float64
}

// Bands and weights follow published drive-failure correlation studies:
// reallocated sectors is the strongest single predictor, temperature only
// matters outside its comfort range.
var ruleBands = map[smart.AttributeID]attributeBand{
	smart.AttrReallocatedSectors:   {normal: 0, critical: 100},
	smart.AttrUncorrectableErrors:  {normal: 0, critical: 20},
	smart.AttrCommandTimeout:       {normal: 0, critical: 10},
	smart.AttrPendingSectors:       {normal: 0, critical: 50},
	smart.AttrOfflineUncorrectable: {normal: 0, critical: 20},
	smart.AttrTemperature:          {normal: 40, critical: 50},
}

var ruleWeights = map[smart.AttributeID]float64{
	smart.AttrReallocatedSectors:   0.35,
	smart.AttrUncorrectableErrors:  0.25,
	smart.AttrCommandTimeout:       0.10,
	smart.AttrPendingSectors:       0.15,
	smart.AttrOfflineUncorrectable: 0.10,
	smart.AttrTemperature:          0.05,
}

// accelerationAttrs are the three most predictive attributes; a worsening
// slope on any of them raises the probability.
var accelerationAttrs = []smart.AttributeID{
	smart.AttrReallocatedSectors,
	smart.AttrUncorrectableErrors,
	smart.AttrPendingSectors,
}

const (
	accelerationWindow = 7
	accelerationWeight = 0.2
)

// attributeScore maps a raw attribute value onto 0..100. Full marks at or
// under normal, zero past critical, convex decay 100*(1-ratio^1.5) between.
func attributeScore(band attributeBand, value float64) float64 {
	if value <= band.normal {
		return 100
	}
	if value >= band.critical {
		return 0
	}

	ratio := (value - band.normal) / (band.critical - band.normal)
	return 100 * (1 - math.Pow(ratio, 1.5))
}

// ruleProbability computes the weighted failure probability from the newest
// sample of the sequence.
func ruleProbability(sequence [][]float64) float64 {
	latest := sequence[len(sequence)-1]

	var probability float64
	for i, id := range smart.FeatureOrder {
		weight, ok := ruleWeights[id]
		if !ok {
			continue
		}
		score := attributeScore(ruleBands[id], latest[i])
		probability += weight * (100 - score) / 100
	}

	return probability
}

// accelerationPenalty compares first-half and second-half slopes of the
// last 7 samples. Errors piling up faster than before is the single most
// dangerous pattern; the worst attribute sets the penalty.
func accelerationPenalty(sequence [][]float64) float64 {
	if len(sequence) < accelerationWindow {
		return 0
	}

	recent := sequence[len(sequence)-accelerationWindow:]

	var worst float64
	for _, id := range accelerationAttrs {
		column := featureIndex(id)

		firstSlope := (recent[2][column] - recent[0][column]) / 3
		secondSlope := (recent[6][column] - recent[4][column]) / 3

		if secondSlope > firstSlope && firstSlope >= 0 {
			acceleration := math.Min(1, (secondSlope-firstSlope)/math.Max(1, firstSlope+1))
			if acceleration > worst {
				worst = acceleration
			}
		}
	}

	return worst
}

func featureIndex(id smart.AttributeID) int {
	for i, candidate := range smart.FeatureOrder {
		if candidate == id {
			return i
		}
	}
	return -1
}
