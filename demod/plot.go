package demod

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot renders the spectrum between lo and hi Hz to a PNG (or any extension gonum/plot knows).
func (s *Spectrum) Plot(path, title string, lo, hi float64) error {
	pts := make(plotter.XYs, 0, len(s.Freqs))
	for i, f := range s.Freqs {
		if f < lo || f > hi {
			continue
		}
		pts = append(pts, plotter.XY{X: f, Y: s.Power[i]})
	}
	if len(pts) == 0 {
		return fmt.Errorf("no spectrum bins between %.0f and %.0f Hz", lo, hi)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Power (dB)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("could not build spectrum line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("could not save spectrum plot %s: %w", path, err)
	}
	return nil
}
