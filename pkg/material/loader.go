package material

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// LoaderOptions configures ingestion behavior.
type LoaderOptions struct {
	// LithiumOnly keeps only materials whose formula contains lithium.
	// Cathode catalogs exported from general materials databases carry
	// plenty of non-battery chemistry; this is the original corpus filter.
	LithiumOnly bool

	// Limit caps the number of materials kept after filtering. 0 = no cap.
	Limit int
}

// Loader ingests material records from JSON or CSV datasets.
type Loader struct {
	opts   LoaderOptions
	logger zerolog.Logger
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions, logger zerolog.Logger) *Loader {
	return &Loader{
		opts:   opts,
		logger: logger.With().Str("component", "loader").Logger(),
	}
}

// LoadJSON reads a dataset file that is either a flat array of records or an
// object of category buckets ("LCO", "NCM", "LFP", "General") whose values
// are record arrays. Buckets overlap, so records are de-duplicated by
// material_id, first occurrence winning.
func (l *Loader) LoadJSON(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	records, malformed, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}

	return l.build(records, malformed)
}

// LoadCSV reads a header-mapped CSV dataset. The formula, density and
// band_gap columns are required; formation_energy_per_atom and volume fall
// back to the catalog defaults (0.0 and 100.0) when the column is absent.
func (l *Loader) LoadCSV(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyCorpus
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"formula", "density", "band_gap"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("dataset %s: missing column %q", path, required)
		}
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := Record{Formula: cell(row, col, "formula")}
		rec.MaterialID = cell(row, col, "material_id")
		if rec.MaterialID == "" {
			rec.MaterialID = fmt.Sprintf("mp-%d", 1000+i)
		}
		rec.Density = parseCell(row, col, "density", nil)
		rec.BandGap = parseCell(row, col, "band_gap", nil)
		rec.FormationEnergyPerAtom = parseCell(row, col, "formation_energy_per_atom", ptr(0.0))
		rec.Volume = parseCell(row, col, "volume", ptr(100.0))
		records = append(records, rec)
	}

	return l.build(records, 0)
}

// build applies de-duplication, the lithium filter, validation and the limit
// to raw records, producing the working set. predropped counts records the
// caller already excluded during decoding.
func (l *Loader) build(records []Record, predropped int) (*Set, error) {
	set := &Set{Dropped: predropped}
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		if rec.MaterialID != "" {
			if seen[rec.MaterialID] {
				continue
			}
			seen[rec.MaterialID] = true
		}

		if l.opts.LithiumOnly && !strings.Contains(strings.ToLower(rec.Formula), "li") {
			continue
		}

		mat, err := FromRecord(rec, len(set.Materials))
		if err != nil {
			set.Dropped++
			l.logger.Debug().Str("material_id", rec.MaterialID).Err(err).Msg("record excluded")
			continue
		}

		set.Materials = append(set.Materials, mat)
		if l.opts.Limit > 0 && len(set.Materials) >= l.opts.Limit {
			break
		}
	}

	l.logger.Info().
		Int("materials", len(set.Materials)).
		Int("dropped", set.Dropped).
		Msg("dataset loaded")

	if len(set.Materials) == 0 {
		return nil, ErrEmptyCorpus
	}
	return set, nil
}

// decodeRecords handles both dataset shapes: a flat array, or an object of
// category buckets. Records are decoded one at a time so a single malformed
// record (a string where a number belongs, say) is excluded and counted
// rather than failing the whole load. Only unparseable dataset structure is
// an error.
func decodeRecords(data []byte) ([]Record, int, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, 0, err
		}
		records, malformed := decodeEach(raw)
		return records, malformed, nil
	}

	var buckets map[string][]json.RawMessage
	if err := json.Unmarshal(trimmed, &buckets); err != nil {
		return nil, 0, err
	}

	// Deterministic bucket order so first-occurrence de-duplication is
	// stable across runs.
	var raw []json.RawMessage
	for _, category := range []string{"LCO", "NCM", "LFP", "General"} {
		raw = append(raw, buckets[category]...)
		delete(buckets, category)
	}
	extras := make([]string, 0, len(buckets))
	for category := range buckets {
		extras = append(extras, category)
	}
	sort.Strings(extras)
	for _, category := range extras {
		raw = append(raw, buckets[category]...)
	}

	records, malformed := decodeEach(raw)
	return records, malformed, nil
}

func decodeEach(raw []json.RawMessage) ([]Record, int) {
	records := make([]Record, 0, len(raw))
	malformed := 0
	for _, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	return records, malformed
}

func cell(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCell(row []string, col map[string]int, name string, fallback *float64) *float64 {
	s := cell(row, col, name)
	if s == "" {
		if _, ok := col[name]; !ok {
			return fallback
		}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// ParseFloat accepts "NaN" and "Inf"; one admitted NaN would
		// poison corpus-wide min-max scaling. Treated as missing.
		return nil
	}
	return &v
}

func ptr(v float64) *float64 { return &v }
