package fx

import "math"

// CurvePoints is the resolution of the distortion transfer curve.
const CurvePoints = 44100

// curveScale is the fixed angular scale of the distortion curve, 20 degrees
// in radians.
const curveScale = 20 * math.Pi / 180

// DistortionCurve samples y = ((3+k)·x·c) / (π + k·|x|) over [-1, 1], with
// k the distortion amount.
func DistortionCurve(amount float64) []float64 {
	k := amount
	curve := make([]float64, CurvePoints)

	for i := range curve {
		x := float64(i)*2/CurvePoints - 1
		curve[i] = (3 + k) * x * curveScale / (math.Pi + k*math.Abs(x))
	}

	return curve
}

// ToneFrequency maps a tone control in [0, 100] to a lowpass cutoff in
// [2000, 20000] Hz.
func ToneFrequency(tone float64) float64 {
	return 2000 + tone/100*18000
}
