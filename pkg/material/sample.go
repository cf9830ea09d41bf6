package material

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// sampleFormulas is the catalog of common cathode chemistries used by the
// synthetic generator: layered oxides, phosphates and spinels.
var sampleFormulas = []string{
	"LiCoO2", "LiNiO2", "LiMnO2", "Li2MnO3",
	"LiNi0.8Co0.15Al0.05O2", "LiNi0.5Co0.2Mn0.3O2",
	"LiFePO4", "LiMnPO4", "LiCoPO4",
	"LiMn2O4", "LiNi0.5Mn1.5O4", "LiMnO2",
	"Li(NiMnCo)O2", "LiVO2", "LiTiO2",
	"LiNbO3", "LiNiPO4", "LiFeO2",
}

// GenerateSample produces up to limit synthetic cathode records with
// physically plausible feature ranges (density 2.5-5.5 g/cm³, band gap
// 0.2-4.5 eV, formation energy -4.0-0.5 eV/atom, volume 50-200 Å³).
// The same seed always yields the same records.
func GenerateSample(limit int, seed int64) []Record {
	rng := rand.New(rand.NewSource(seed))

	if limit > 80 {
		limit = 80
	}

	records := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		formula := sampleFormulas[i%len(sampleFormulas)]
		if i >= len(sampleFormulas) {
			formula = fmt.Sprintf("%s_%d", formula, i/len(sampleFormulas))
		}

		records = append(records, Record{
			MaterialID:             fmt.Sprintf("mp-%d", 10000+i),
			Formula:                formula,
			Density:                ptr(roundN(2.5+rng.Float64()*3.0, 2)),
			BandGap:                ptr(roundN(0.2+rng.Float64()*4.3, 2)),
			FormationEnergyPerAtom: ptr(roundN(-4.0+rng.Float64()*4.5, 3)),
			Volume:                 ptr(roundN(50.0+rng.Float64()*150.0, 1)),
		})
	}
	return records
}

// SaveDataset writes records to a JSON dataset file in the category-bucketed
// shape the loader accepts. Buckets are a coarse formula classification:
// LCO (cobalt, no manganese), NCM (nickel + manganese), LFP (iron
// phosphate), plus a General bucket holding everything.
func SaveDataset(records []Record, path string) error {
	buckets := map[string][]Record{
		"LCO":     {},
		"NCM":     {},
		"LFP":     {},
		"General": records,
	}
	for _, rec := range records {
		switch {
		case strings.Contains(rec.Formula, "Co") && !strings.Contains(rec.Formula, "Mn"):
			buckets["LCO"] = append(buckets["LCO"], rec)
		case strings.Contains(rec.Formula, "Ni") && strings.Contains(rec.Formula, "Mn"):
			buckets["NCM"] = append(buckets["NCM"], rec)
		case strings.Contains(rec.Formula, "Fe") && strings.Contains(rec.Formula, "P"):
			buckets["LFP"] = append(buckets["LFP"], rec)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(buckets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

func roundN(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
