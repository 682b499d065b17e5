package demod

import (
	"fmt"

	"github.com/racerxdl/segdsp/dsp"
)

const (
	// APTLowpassRate is the input sample rate the APTLowpass taps were designed for.
	APTLowpassRate = 48000

	DefaultCutoff          = 4160.0
	DefaultTransitionWidth = 1000.0
)

// APTLowpass is a 63 tap lowpass with a 4160 Hz cutoff at 48 kHz. It removes the
// rectification products left by the envelope detector before resampling.
var APTLowpass = []float32{
	-7.383784e-03, -3.183046e-03, 2.255039e-03, 7.461166e-03, 1.091908e-02, 1.149109e-02,
	8.769802e-03, 3.252932e-03, -3.720606e-03, -1.027446e-02, -1.447403e-02, -1.486427e-02,
	-1.092423e-02, -3.307958e-03, 6.212477e-03, 1.511364e-02, 2.072873e-02, 2.096037e-02,
	1.492345e-02, 3.347624e-03, -1.138407e-02, -2.560252e-02, -3.507114e-02, -3.591225e-02,
	-2.553830e-02, -3.371569e-03, 2.882645e-02, 6.711368e-02, 1.060042e-01, 1.394643e-01,
	1.620650e-01, 1.700462e-01, 1.620650e-01, 1.394643e-01, 1.060042e-01, 6.711368e-02,
	2.882645e-02, -3.371569e-03, -2.553830e-02, -3.591225e-02, -3.507114e-02, -2.560252e-02,
	-1.138407e-02, 3.347624e-03, 1.492345e-02, 2.096037e-02, 2.072873e-02, 1.511364e-02,
	6.212477e-03, -3.307958e-03, -1.092423e-02, -1.486427e-02, -1.447403e-02, -1.027446e-02,
	-3.720606e-03, 3.252932e-03, 8.769802e-03, 1.149109e-02, 1.091908e-02, 7.461166e-03,
	2.255039e-03, -3.183046e-03, -7.383784e-03,
}

// DesignLowpass builds a windowed-sinc lowpass for inputs that do not run at APTLowpassRate.
func DesignLowpass(sampleRate, cutoff, transitionWidth float64) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %.1f", sampleRate)
	}
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return nil, fmt.Errorf("cutoff %.1f Hz must be between 0 and %.1f Hz", cutoff, sampleRate/2)
	}
	if transitionWidth <= 0 {
		return nil, fmt.Errorf("invalid transition width %.1f Hz", transitionWidth)
	}

	taps := dsp.MakeLowPass(1, sampleRate, cutoff, transitionWidth)
	if len(taps) == 0 {
		return nil, ErrNoTaps
	}
	return taps, nil
}

// LowpassFor picks the taps for a given input rate. An explicit cutoff always wins; otherwise the
// built in table is used at 48 kHz and a filter is designed for anything else.
func LowpassFor(sampleRate int, cutoff, transitionWidth float64) ([]float32, error) {
	if cutoff <= 0 && sampleRate == APTLowpassRate {
		return APTLowpass, nil
	}
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	if transitionWidth <= 0 {
		transitionWidth = DefaultTransitionWidth
	}
	return DesignLowpass(float64(sampleRate), cutoff, transitionWidth)
}
