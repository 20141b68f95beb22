package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/runner"
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
	ID             string             `json:"id"`
	Model          string             `json:"model"`
	Timestamp      time.Time          `json:"timestamp"`
	Seed           int64              `json:"seed"`
	Dt             float64            `json:"dt"`
	Duration       float64            `json:"duration"`
	Integrator     string             `json:"integrator"`
	Representation string             `json:"representation"`
	SplinePoints   int                `json:"spline_points"`
	Metrics        map[string]float64 `json:"metrics"`
	PlanCost       []float64          `json:"plan_cost"`
}

// Save writes metadata.json plus states.csv and controls.csv under a fresh
// run directory and returns the run id.
func (s *Store) Save(meta RunMetadata, result *runner.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Model, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Metrics = result.Metrics
	meta.PlanCost = result.PlanCost

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeSeries(filepath.Join(runDir, "states.csv"), result.Times, toRows(result.States)); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, "controls.csv"), result.Times[:len(result.Controls)], toRowsC(result.Controls)); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns the metadata of every stored run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.loadMeta(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Load reads a run's metadata and its state/control series.
func (s *Store) Load(runID string) (RunMetadata, [][]float64, [][]float64, error) {
	meta, err := s.loadMeta(runID)
	if err != nil {
		return RunMetadata{}, nil, nil, err
	}

	states, err := readSeries(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return RunMetadata{}, nil, nil, err
	}
	controls, err := readSeries(filepath.Join(s.baseDir, runID, "controls.csv"))
	if err != nil {
		return RunMetadata{}, nil, nil, err
	}

	return meta, states, controls, nil
}

func (s *Store) loadMeta(runID string) (RunMetadata, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func writeSeries(path string, times []float64, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	record := make([]string, 0, 8)
	for i, row := range rows {
		record = record[:0]
		record = append(record, strconv.FormatFloat(times[i], 'g', -1, 64))
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// readSeries returns rows without the leading time column.
func readSeries(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(records))
	for _, rec := range records {
		row := make([]float64, 0, len(rec)-1)
		for _, field := range rec[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("bad csv field %q: %w", field, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toRows(states []dynamo.State) [][]float64 {
	rows := make([][]float64, len(states))
	for i, s := range states {
		rows[i] = s
	}
	return rows
}

func toRowsC(controls []dynamo.Control) [][]float64 {
	rows := make([][]float64, len(controls))
	for i, c := range controls {
		rows[i] = c
	}
	return rows
}
