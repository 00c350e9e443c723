package storage

import (
	"encoding/csv"
	"os"

	"github.com/mfjansen/mocsim/internal/coupling"
	"gonum.org/v1/gonum/floats"
)

// Recorder is a coupling.Observer that keeps a time series of column
// content and the extremes of every link's streamfunction.
type Recorder struct {
	// Every is the sampling interval in steps; zero records every step.
	Every int

	header []string
	rows   [][]float64
}

func NewRecorder(every int) *Recorder {
	return &Recorder{Every: every}
}

func (r *Recorder) OnCycle(s coupling.Snapshot) {
	if r.Every > 1 && s.Step%r.Every != 0 {
		return
	}
	if r.header == nil {
		r.header = []string{"time"}
		for _, c := range s.Columns {
			r.header = append(r.header, "content_"+c.Name)
		}
		for _, l := range s.Links {
			r.header = append(r.header, "psimax_"+l.Name, "psimin_"+l.Name)
		}
	}

	row := []float64{s.Time}
	for _, c := range s.Columns {
		row = append(row, c.Content)
	}
	for _, l := range s.Links {
		if len(l.Psi) == 0 {
			row = append(row, 0, 0)
			continue
		}
		row = append(row, floats.Max(l.Psi), floats.Min(l.Psi))
	}
	r.rows = append(r.rows, row)
}

// Len is the number of recorded samples.
func (r *Recorder) Len() int { return len(r.rows) }

// Series returns the recorded values of one header entry.
func (r *Recorder) Series(name string) []float64 {
	for j, h := range r.header {
		if h == name {
			return column(r.rows, j)
		}
	}
	return nil
}

func (r *Recorder) write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := r.header
	if header == nil {
		header = []string{"time"}
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range r.rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatFloat(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
