package flowplan

import "errors"

// CalPoint is one measured humidity calibration point: the bubbler line was
// set to a humid-air flow and the resulting relative humidity was read back.
type CalPoint struct {
	Humidity float64 `json:"humidity"` // %RH
	Flow     float64 `json:"flow"`     // SLPM
}

var (
	errTooFewPoints = errors.New("calibration fit needs at least two points")
	errNoVariance   = errors.New("calibration fit needs at least two distinct humidity values")
)

// FitLinear fits flow = slope*humidity + intercept to the measured points by
// ordinary least squares and reports the coefficient of determination. With
// exactly two distinct points this reduces to the line through them.
//
// The normal equations for a single regressor collapse to the closed form
// slope = Sxy/Sxx, so no elimination step is needed.
func FitLinear(points []CalPoint) (slope, intercept, r2 float64, err error) {
	n := len(points)
	if n < 2 {
		return 0, 0, 0, errTooFewPoints
	}

	var meanX, meanY float64
	for _, p := range points {
		meanX += p.Humidity
		meanY += p.Flow
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sxx, sxy float64
	for _, p := range points {
		dx := p.Humidity - meanX
		sxx += dx * dx
		sxy += dx * (p.Flow - meanY)
	}
	if sxx == 0 {
		return 0, 0, 0, errNoVariance
	}

	slope = sxy / sxx
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for _, p := range points {
		dy := p.Flow - meanY
		res := p.Flow - (slope*p.Humidity + intercept)
		ssTot += dy * dy
		ssRes += res * res
	}
	if ssTot == 0 {
		// All flows identical and perfectly reproduced by the flat line.
		return slope, intercept, 1, nil
	}
	return slope, intercept, 1 - ssRes/ssTot, nil
}
