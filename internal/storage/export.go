package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mfjansen/mocsim/internal/coupling"
)

type ExportData struct {
	Name      string               `json:"name"`
	Mode      string               `json:"mode"`
	Dt        float64              `json:"dt"`
	Steps     int                  `json:"steps"`
	Refreshes int                  `json:"refreshes"`
	Time      float64              `json:"time"`
	Z         []float64            `json:"z"`
	Columns   map[string][]float64 `json:"columns"`
	Links     map[string][]float64 `json:"links"`
	Metrics   map[string]float64   `json:"metrics"`
}

func NewExportData(name string, dt float64, result *coupling.Result) ExportData {
	final := result.Final
	data := ExportData{
		Name:      name,
		Mode:      string(result.Mode),
		Dt:        dt,
		Steps:     result.StepsTaken,
		Refreshes: result.Refreshes,
		Time:      final.Time,
		Z:         final.Z,
		Columns:   make(map[string][]float64, len(final.Columns)),
		Links:     make(map[string][]float64, len(final.Links)),
		Metrics:   result.Metrics,
	}
	for _, c := range final.Columns {
		data.Columns[c.Name] = c.B
	}
	for _, l := range final.Links {
		data.Links[l.Name] = l.Psi
	}
	return data
}

// ExportJSON writes the final state of a run as indented JSON.
func ExportJSON(w io.Writer, name string, dt float64, result *coupling.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(name, dt, result))
}

func ExportJSONFile(path, name string, dt float64, result *coupling.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportJSON(f, name, dt, result)
}
