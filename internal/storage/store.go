package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mfjansen/mocsim/internal/coupling"
)

const (
	metadataFile = "metadata.json"
	profilesFile = "profiles.csv"
	historyFile  = "history.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Mode        string             `json:"mode"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	UpdateEvery int                `json:"update_every"`
	Steps       int                `json:"steps"`
	Refreshes   int                `json:"refreshes"`
	ModelTime   float64            `json:"model_time"`
	Columns     []string           `json:"columns"`
	Links       []string           `json:"links"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes the run metadata and final profiles under a new run
// directory. A non-nil recorder also writes its time series.
func (s *Store) Save(name string, dt float64, updateEvery int, result *coupling.Result, rec *Recorder) (string, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	final := result.Final
	meta := RunMetadata{
		ID:          runID,
		Name:        name,
		Mode:        string(result.Mode),
		Timestamp:   time.Now(),
		Dt:          dt,
		UpdateEvery: updateEvery,
		Steps:       result.StepsTaken,
		Refreshes:   result.Refreshes,
		ModelTime:   final.Time,
		Metrics:     result.Metrics,
	}
	for _, c := range final.Columns {
		meta.Columns = append(meta.Columns, c.Name)
	}
	for _, l := range final.Links {
		meta.Links = append(meta.Links, l.Name)
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeProfiles(filepath.Join(runDir, profilesFile), final); err != nil {
		return "", err
	}
	if rec != nil {
		if err := rec.write(filepath.Join(runDir, historyFile)); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func writeProfiles(path string, snap coupling.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"z"}
	for _, c := range snap.Columns {
		header = append(header, "b_"+c.Name)
	}
	for _, l := range snap.Links {
		header = append(header, "psi_"+l.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, z := range snap.Z {
		row := []string{formatFloat(z)}
		for _, c := range snap.Columns {
			row = append(row, formatFloat(c.B[i]))
		}
		for _, l := range snap.Links {
			v := 0.0
			if i < len(l.Psi) {
				v = l.Psi[i]
			}
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Profiles is the final state of a stored run, keyed by column and link
// name.
type Profiles struct {
	Z       []float64
	Columns map[string][]float64
	Links   map[string][]float64
}

func (s *Store) LoadProfiles(runID string) (*Profiles, error) {
	header, rows, err := readCSV(filepath.Join(s.baseDir, runID, profilesFile))
	if err != nil {
		return nil, err
	}

	p := &Profiles{Columns: map[string][]float64{}, Links: map[string][]float64{}}
	for j, name := range header {
		col := column(rows, j)
		switch {
		case name == "z":
			p.Z = col
		case strings.HasPrefix(name, "b_"):
			p.Columns[strings.TrimPrefix(name, "b_")] = col
		case strings.HasPrefix(name, "psi_"):
			p.Links[strings.TrimPrefix(name, "psi_")] = col
		}
	}
	if p.Z == nil {
		return nil, fmt.Errorf("%s: missing z column", profilesFile)
	}
	return p, nil
}

// LoadHistory returns the recorded series keyed by header name, with the
// model time under "time". A run saved without a recorder has none.
func (s *Store) LoadHistory(runID string) (map[string][]float64, error) {
	header, rows, err := readCSV(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(header))
	for j, name := range header {
		out[name] = column(rows, j)
	}
	return out, nil
}

func readCSV(path string) ([]string, [][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", filepath.Base(path))
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", filepath.Base(path), i+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[j]
	}
	return out
}
