package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-livefx/dsp/core"
)

const (
	defaultThresholdDB = -24.0
	defaultRatio       = 12.0
	defaultKneeDB      = 30.0
	defaultAttack      = 0.003
	defaultRelease     = 0.25

	minRatio  = 1.0
	maxRatio  = 20.0
	maxKneeDB = 40.0
	maxTime   = 1.0

	// log2(10) / 20, converts dB to the log2 domain.
	log2Of10Div20 = 0.166096404744
)

// Compressor is a stereo-linked soft-knee compressor.
//
// Setters clamp to the supported ranges instead of failing, so a render
// loop can forward automated values every block. Not safe for concurrent use.
type Compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attack      float64 // seconds
	release     float64 // seconds

	sampleRate float64

	peak float64

	attackCoeff   float64
	releaseCoeff  float64
	thresholdLog2 float64
	kneeLog2      float64
	minGain       float64
}

// NewCompressor returns a compressor with a 30 dB knee, -24 dB threshold,
// 12:1 ratio, 3 ms attack and 250 ms release.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{
		thresholdDB: defaultThresholdDB,
		ratio:       defaultRatio,
		kneeDB:      defaultKneeDB,
		attack:      defaultAttack,
		release:     defaultRelease,
		sampleRate:  sampleRate,
		minGain:     1,
	}

	c.updateCoefficients()

	return c, nil
}

// SetThreshold sets the threshold in dB, clamped to [-100, 0].
func (c *Compressor) SetThreshold(dB float64) {
	dB = core.Clamp(core.FiniteOr(dB, defaultThresholdDB), -100, 0)
	if dB == c.thresholdDB {
		return
	}

	c.thresholdDB = dB
	c.updateCoefficients()
}

// SetRatio sets the compression ratio, clamped to [1, 20].
func (c *Compressor) SetRatio(ratio float64) {
	c.ratio = core.Clamp(core.FiniteOr(ratio, defaultRatio), minRatio, maxRatio)
}

// SetKnee sets the soft-knee width in dB, clamped to [0, 40].
func (c *Compressor) SetKnee(dB float64) {
	dB = core.Clamp(core.FiniteOr(dB, defaultKneeDB), 0, maxKneeDB)
	if dB == c.kneeDB {
		return
	}

	c.kneeDB = dB
	c.updateCoefficients()
}

// SetAttack sets the attack time in seconds, clamped to [0, 1].
func (c *Compressor) SetAttack(seconds float64) {
	seconds = core.Clamp(core.FiniteOr(seconds, defaultAttack), 0, maxTime)
	if seconds == c.attack {
		return
	}

	c.attack = seconds
	c.updateTimeConstants()
}

// SetRelease sets the release time in seconds, clamped to [0, 1].
func (c *Compressor) SetRelease(seconds float64) {
	seconds = core.Clamp(core.FiniteOr(seconds, defaultRelease), 0, maxTime)
	if seconds == c.release {
		return
	}

	c.release = seconds
	c.updateTimeConstants()
}

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Knee returns the knee width in dB.
func (c *Compressor) Knee() float64 { return c.kneeDB }

// Attack returns the attack time in seconds.
func (c *Compressor) Attack() float64 { return c.attack }

// Release returns the release time in seconds.
func (c *Compressor) Release() float64 { return c.release }

// ProcessSample compresses one mono sample.
func (c *Compressor) ProcessSample(x float64) float64 {
	return x * c.detect(math.Abs(x))
}

// ProcessStereo compresses two channels in place with a linked detector.
func (c *Compressor) ProcessStereo(left, right []float64) {
	n := min(len(left), len(right))
	for i := range n {
		g := c.detect(math.Max(math.Abs(left[i]), math.Abs(right[i])))
		left[i] *= g
		right[i] *= g
	}

	c.peak = core.FlushDenormals(c.peak)
}

// Reduction returns the deepest gain reduction in dB since the last call
// and resets the meter. The value is <= 0.
func (c *Compressor) Reduction() float64 {
	g := c.minGain
	c.minGain = 1

	if g <= 0 {
		return -100
	}

	return core.LinearToDB(g)
}

// CalculateOutputLevel returns the steady-state output level for an input
// magnitude.
func (c *Compressor) CalculateOutputLevel(in float64) float64 {
	in = math.Abs(in)
	return in * c.gain(in)
}

// Reset clears the detector and meter.
func (c *Compressor) Reset() {
	c.peak = 0
	c.minGain = 1
}

func (c *Compressor) detect(level float64) float64 {
	if level > c.peak {
		c.peak += (level - c.peak) * c.attackCoeff
	} else {
		c.peak = level + (c.peak-level)*c.releaseCoeff
	}

	g := c.gain(c.peak)
	if g < c.minGain {
		c.minGain = g
	}

	return g
}

func (c *Compressor) updateCoefficients() {
	c.thresholdLog2 = c.thresholdDB * log2Of10Div20
	c.kneeLog2 = c.kneeDB * log2Of10Div20
	c.updateTimeConstants()
}

func (c *Compressor) updateTimeConstants() {
	if c.attack <= 0 {
		c.attackCoeff = 1
	} else {
		c.attackCoeff = 1 - math.Exp(-math.Ln2/(c.attack*c.sampleRate))
	}

	if c.release <= 0 {
		c.releaseCoeff = 0
	} else {
		c.releaseCoeff = math.Exp(-math.Ln2 / (c.release * c.sampleRate))
	}
}

// gain applies a quadratic soft knee centred on the threshold in the log2
// domain.
func (c *Compressor) gain(level float64) float64 {
	if level <= 0 {
		return 1
	}

	overshoot := math.Log2(level) - c.thresholdLog2
	half := c.kneeLog2 / 2

	var effective float64

	switch {
	case overshoot <= -half:
		return 1
	case overshoot >= half || c.kneeLog2 <= 0:
		effective = overshoot
	default:
		s := overshoot + half
		effective = s * s / (2 * c.kneeLog2)
	}

	return math.Exp2(-effective * (1 - 1/c.ratio))
}
