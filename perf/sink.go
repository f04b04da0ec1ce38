package perf

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
)

// Sample is one closed sampling window.
type Sample struct {
	At           time.Duration
	Frames       int
	AverageFPS   float64
	Resolution   int
	Subdivisions int
}

// LogValue implements slog.LogValuer.
func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("at", s.At),
		slog.Int("frames", s.Frames),
		slog.Float64("fps", s.AverageFPS),
		slog.Int("resolution", s.Resolution),
		slog.Int("subdivisions", s.Subdivisions),
	)
}

// Sink receives every closed window.
type Sink interface {
	Record(Sample) error
}

// sampleCSV is the flat CSV row for a Sample.
type sampleCSV struct {
	AtMS         int64   `csv:"at_ms"`
	Frames       int     `csv:"frames"`
	AverageFPS   float64 `csv:"average_fps"`
	Resolution   int     `csv:"resolution"`
	Subdivisions int     `csv:"subdivisions"`
}

// CSVSink appends samples as CSV rows, writing the header with the first one.
type CSVSink struct {
	w             io.Writer
	headerWritten bool
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

func (s *CSVSink) Record(sample Sample) error {
	records := []sampleCSV{{
		AtMS:         sample.At.Milliseconds(),
		Frames:       sample.Frames,
		AverageFPS:   sample.AverageFPS,
		Resolution:   sample.Resolution,
		Subdivisions: sample.Subdivisions,
	}}
	if !s.headerWritten {
		if err := gocsv.Marshal(records, s.w); err != nil {
			return fmt.Errorf("writing perf sample: %w", err)
		}
		s.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, s.w); err != nil {
		return fmt.Errorf("writing perf sample: %w", err)
	}
	return nil
}
