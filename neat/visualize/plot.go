// Package visualize renders evolution statistics as plots and genomes as Graphviz sources.
package visualize

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/baldhumanity/nnest/neat"
)

var (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// ErrNoData is returned when the statistics contain no generation.
var ErrNoData = errors.New("visualize: no generations recorded")

// PlotStats plots the average and best fitness per generation with a band of one standard
// deviation around the average. With ylog the y axis uses a symmetric log scale, which also
// handles negative fitness. The output format follows the extension of path.
func PlotStats(stats *neat.StatisticsReporter, ylog bool, path string) error {
	best := stats.BestFitness()
	avg := stats.FitnessMean()
	stdev := stats.FitnessStdev()
	if len(avg) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Population's average and best fitness"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Fitness"
	p.Add(plotter.NewGrid())

	series := []struct {
		name   string
		values func(i int) float64
		color  color.Color
		dashed bool
	}{
		{"average", func(i int) float64 { return avg[i] }, color.RGBA{B: 255, A: 255}, false},
		{"-1 sd", func(i int) float64 { return avg[i] - stdev[i] }, color.RGBA{G: 160, A: 255}, true},
		{"+1 sd", func(i int) float64 { return avg[i] + stdev[i] }, color.RGBA{G: 160, A: 255}, true},
		{"best", func(i int) float64 { return best[i] }, color.RGBA{R: 255, A: 255}, false},
	}
	for _, s := range series {
		n := len(avg)
		if s.name == "best" {
			n = min(n, len(best))
		}
		pts := make(plotter.XYs, n)
		for i := range pts {
			pts[i].X = float64(i)
			pts[i].Y = s.values(i)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s line: %w", s.name, err)
		}
		line.Color = s.color
		if s.dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	if ylog {
		p.Y.Scale = SymLogScale{}
		p.Y.Tick.Marker = SymLogTicks{}
	}

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// PlotSpecies draws the size of every species per generation as stacked bands.
func PlotSpecies(stats *neat.StatisticsReporter, path string) error {
	sizes := stats.SpeciesSizes()
	if len(sizes) == 0 {
		return ErrNoData
	}
	numSpecies := len(sizes[0])

	p := plot.New()
	p.Title.Text = "Speciation"
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Size per Species"

	lower := make([]float64, len(sizes))
	for s := 0; s < numSpecies; s++ {
		upper := make([]float64, len(sizes))
		for gen, row := range sizes {
			upper[gen] = lower[gen] + float64(row[s])
		}
		band := make(plotter.XYs, 0, 2*len(sizes))
		for gen := range sizes {
			band = append(band, plotter.XY{X: float64(gen), Y: upper[gen]})
		}
		for gen := len(sizes) - 1; gen >= 0; gen-- {
			band = append(band, plotter.XY{X: float64(gen), Y: lower[gen]})
		}
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("species band %d: %w", s, err)
		}
		poly.Color = plotutil.Color(s)
		poly.LineStyle = draw.LineStyle{Color: color.Black, Width: vg.Points(0.25)}
		p.Add(poly)
		lower = upper
	}

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// SymLogScale is a plot.Normalizer for a symmetric log axis: sign(x) * log10(1 + |x|).
type SymLogScale struct{}

func symlog(x float64) float64 {
	if x < 0 {
		return -math.Log10(1 - x)
	}
	return math.Log10(1 + x)
}

func (SymLogScale) Normalize(min, max, x float64) float64 {
	lo, hi := symlog(min), symlog(max)
	if hi == lo {
		return 0.5
	}
	return (symlog(x) - lo) / (hi - lo)
}

// SymLogTicks places major ticks at zero and at signed powers of ten.
type SymLogTicks struct{}

func (SymLogTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	add := func(v float64) {
		if v >= min && v <= max {
			ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', 3, 64)})
		}
	}
	limit := math.Max(math.Abs(min), math.Abs(max))
	var powers []float64
	for e := 0.0; math.Pow(10, e) <= limit*10; e++ {
		powers = append(powers, math.Pow(10, e))
	}
	for i := len(powers) - 1; i >= 0; i-- {
		add(-powers[i])
	}
	add(0)
	for _, v := range powers {
		add(v)
	}
	if len(ticks) < 2 {
		return plot.DefaultTicks{}.Ticks(min, max)
	}
	return ticks
}
