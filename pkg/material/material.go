// Package material defines the cathode material record and its ingestion
// path.
//
// Upstream data sources (Materials Project CSV exports, category-bucketed
// JSON catalogs, the synthetic sample generator) all produce the same flat
// record shape. Ingestion validates each record once, drops anything with a
// missing or non-numeric feature, and hands the surviving working set to the
// feature normalizer. A dropped record is not an error: the loader reports
// the exclusion count and moves on.
//
// Example Usage:
//
//	loader := material.NewLoader(material.LoaderOptions{LithiumOnly: true}, logger)
//	set, err := loader.LoadJSON("battery_cathodes.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d materials (%d dropped)\n", len(set.Materials), set.Dropped)
package material

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Common errors
var (
	ErrEmptyCorpus = errors.New("no valid materials in corpus")
)

// Record is the wire shape of a single material as produced by upstream
// data sources. Numeric features decode as pointers so that an absent field
// is distinguishable from a literal zero; validation rejects nil.
type Record struct {
	MaterialID             string   `json:"material_id"`
	Formula                string   `json:"formula"`
	Density                *float64 `json:"density" validate:"required"`
	BandGap                *float64 `json:"band_gap" validate:"required"`
	FormationEnergyPerAtom *float64 `json:"formation_energy_per_atom" validate:"required"`
	Volume                 *float64 `json:"volume" validate:"required"`
}

// Material is a validated cathode material. Immutable once created.
type Material struct {
	MaterialID             string
	Formula                string
	Density                float64
	BandGap                float64
	FormationEnergyPerAtom float64
	Volume                 float64
}

// Set is the validated working set handed to the normalizer, along with the
// count of records excluded for missing features.
type Set struct {
	Materials []Material
	Dropped   int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromRecord validates a raw record and converts it to a Material.
// Returns an error when any required numeric feature is absent; callers
// treat that as an exclusion, not a failure.
//
// A record without a formula gets a synthetic "Material_<n>" name so it can
// still participate in the graph (n is the caller-supplied ordinal).
func FromRecord(rec Record, ordinal int) (Material, error) {
	if err := validate.Struct(rec); err != nil {
		return Material{}, fmt.Errorf("record %q missing feature: %w", rec.MaterialID, err)
	}

	formula := rec.Formula
	if formula == "" {
		formula = fmt.Sprintf("Material_%d", ordinal)
	}

	return Material{
		MaterialID:             rec.MaterialID,
		Formula:                formula,
		Density:                *rec.Density,
		BandGap:                *rec.BandGap,
		FormationEnergyPerAtom: *rec.FormationEnergyPerAtom,
		Volume:                 *rec.Volume,
	}, nil
}
