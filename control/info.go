package control

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
)

// PrintFluidInfo writes the fluid parameters, the performance stats and a
// plot of the recent frame rate to the app's output.
func (a *App) PrintFluidInfo() {
	fmt.Fprint(a.out, a.FluidInfo())
}

// FluidInfo returns the text printed by PrintFluidInfo.
func (a *App) FluidInfo() string {
	if a.scene == nil {
		return ErrNotInitialized.Error() + "\n"
	}
	var sb strings.Builder
	a.writeInfo(&sb)

	if h := a.perf.History(); len(h) > 1 {
		sb.WriteString(asciigraph.Plot(h,
			asciigraph.Height(6),
			asciigraph.Width(40),
			asciigraph.Caption("fps"),
		))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (a *App) writeInfo(out io.Writer) {
	info := a.scene.Fluid().Info()
	stats := a.perf.Stats()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "cells\t%dx%d\n", info.Width, info.Height)
	fmt.Fprintf(w, "square size\t%.3f\n", info.SquareSize)
	fmt.Fprintf(w, "resolution\t%d\n", info.Resolution)
	fmt.Fprintf(w, "block offset\t%d\n", info.BlockOffset)
	fmt.Fprintf(w, "iterations\t%d\n", info.Params.Iterations)
	fmt.Fprintf(w, "delta t\t%.4f\n", info.Params.DeltaT)
	fmt.Fprintf(w, "overrelaxation\t%.2f\n", info.Params.Overrelaxation)
	fmt.Fprintf(w, "gravity\t%.2f (forces %v)\n", info.Params.Gravity, info.Params.ApplyForces)
	fmt.Fprintf(w, "smoke decay\t%.4f\n", info.Params.SmokeDecay)
	fmt.Fprintf(w, "total smoke\t%.3f\n", info.TotalSmoke)
	fmt.Fprintf(w, "mean |div|\t%.5f\n", info.MeanAbsDivergence)
	fmt.Fprintf(w, "subdivisions\t%d\n", stats.Subdivisions)
	fmt.Fprintf(w, "overlays\t%v\n", a.scene.Overlays())
	fmt.Fprintf(w, "playing\t%v\n", a.scene.Playing())
	fmt.Fprintf(w, "average fps\t%.1f\n", stats.AverageFPS)
	if a.failed != nil {
		fmt.Fprintf(w, "failed\t%v\n", a.failed)
	}
	w.Flush()
}
