// Package report renders diagnostic plots for relaxation runs.
package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/momentsolve/internal/extract"
	"github.com/cwbudde/momentsolve/internal/sdp"
)

// SaveConvergence writes the per-round objective trajectory to a PNG.
func SaveConvergence(rounds []sdp.RoundReport, path string) error {
	if len(rounds) == 0 {
		return fmt.Errorf("report: no rounds to plot")
	}

	p := plot.New()
	p.Title.Text = "Relaxation convergence"
	p.X.Label.Text = "round"
	p.Y.Label.Text = "objective"

	pts := make(plotter.XYs, len(rounds))
	for i, r := range rounds {
		pts[i].X = float64(r.Round)
		pts[i].Y = r.Objective
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	p.Add(line, points)

	return p.Save(5*vg.Inch, 4*vg.Inch, path)
}

// SaveAtoms writes a scatter of recovered two-variable atoms to a PNG,
// with marker radii scaled by weight.
func SaveAtoms(set *extract.SolutionSet, names []string, path string) error {
	if set == nil || len(set.Atoms) == 0 {
		return fmt.Errorf("report: no atoms to plot")
	}
	if len(set.Atoms[0]) != 2 {
		return fmt.Errorf("report: atom scatter requires exactly two variables, have %d", len(set.Atoms[0]))
	}

	p := plot.New()
	p.Title.Text = "Recovered atoms"
	if len(names) == 2 {
		p.X.Label.Text = names[0]
		p.Y.Label.Text = names[1]
	}

	pts := make(plotter.XYs, len(set.Atoms))
	for i, a := range set.Atoms {
		pts[i].X = a[0]
		pts[i].Y = a[1]
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(4)
	if len(set.Weights) == len(set.Atoms) {
		// Single style per plotter; scale by the heaviest atom.
		max := 0.0
		for _, w := range set.Weights {
			if w > max {
				max = w
			}
		}
		if max > 0 {
			scatter.GlyphStyle.Radius = vg.Points(3 + 4*max)
		}
	}
	p.Add(scatter)

	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}
