package demod

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// SubcarrierFrequency is the AM subcarrier every APT transmission rides on.
const SubcarrierFrequency = 2400.0

// Spectrum is the one sided power spectrum of a block of real samples, in dB.
type Spectrum struct {
	SampleRate float64
	Freqs      []float64
	Power      []float64
}

// NewSpectrum applies a Hann window to samples and transforms them in one FFT.
func NewSpectrum(samples []float32, sampleRate float64) *Spectrum {
	n := len(samples)
	s := &Spectrum{SampleRate: sampleRate}
	if n < 2 {
		return s
	}

	input := make([]float64, n)
	for i, x := range samples {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		input[i] = float64(x) * w
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, input)

	s.Freqs = make([]float64, len(coeff))
	s.Power = make([]float64, len(coeff))
	for i, c := range coeff {
		s.Freqs[i] = fft.Freq(i) * sampleRate
		mag := cmplx.Abs(c)
		s.Power[i] = 10 * math.Log10(mag*mag/float64(n)+1e-20)
	}
	return s
}

// Peak returns the strongest bin between lo and hi Hz.
func (s *Spectrum) Peak(lo, hi float64) (freq, power float64, ok bool) {
	power = math.Inf(-1)
	for i, f := range s.Freqs {
		if f < lo || f > hi {
			continue
		}
		if s.Power[i] > power {
			freq, power, ok = f, s.Power[i], true
		}
	}
	return freq, power, ok
}

// SNR compares the peak within halfWidth of center against the median power of the rest of the
// lo..hi band. It never returns less than 0 dB.
func (s *Spectrum) SNR(center, halfWidth, lo, hi float64) float64 {
	_, signal, ok := s.Peak(center-halfWidth, center+halfWidth)
	if !ok {
		return 0
	}

	var noise []float64
	for i, f := range s.Freqs {
		if f < lo || f > hi || math.Abs(f-center) <= halfWidth {
			continue
		}
		noise = append(noise, s.Power[i])
	}
	if len(noise) == 0 {
		return 0
	}
	sort.Float64s(noise)
	floor := stat.Quantile(0.5, stat.Empirical, noise, nil)

	return max(0, signal-floor)
}
