package classify

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// wireResult mirrors ClassificationResult with pointer fields so absent keys
// can be told apart from zero values.
type wireResult struct {
	FileKey              *string     `json:"file_key"`
	Label                *string     `json:"label"`
	Confidence           *float64    `json:"confidence"`
	PortionEstimateGrams *int        `json:"portion_estimate_grams"`
	Macros               *wireMacros `json:"macros"`
}

type wireMacros struct {
	Kcal     *int     `json:"kcal"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

// ParseResult validates a raw task result and converts it to a ClassificationResult.
// Every failure wraps ErrMalformedResult.
func ParseResult(raw json.RawMessage) (*models.ClassificationResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResult)
	}

	var w wireResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	switch {
	case w.FileKey == nil || *w.FileKey == "":
		return nil, missing("file_key")
	case w.Label == nil || *w.Label == "":
		return nil, missing("label")
	case w.Confidence == nil:
		return nil, missing("confidence")
	case w.PortionEstimateGrams == nil:
		return nil, missing("portion_estimate_grams")
	case w.Macros == nil:
		return nil, missing("macros")
	case w.Macros.Kcal == nil:
		return nil, missing("macros.kcal")
	case w.Macros.ProteinG == nil:
		return nil, missing("macros.protein_g")
	case w.Macros.CarbsG == nil:
		return nil, missing("macros.carbs_g")
	case w.Macros.FatG == nil:
		return nil, missing("macros.fat_g")
	}

	if *w.Confidence < 0 || *w.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedResult, *w.Confidence)
	}
	if *w.PortionEstimateGrams < 0 {
		return nil, fmt.Errorf("%w: negative portion_estimate_grams", ErrMalformedResult)
	}
	m := w.Macros
	if *m.Kcal < 0 || *m.ProteinG < 0 || *m.CarbsG < 0 || *m.FatG < 0 {
		return nil, fmt.Errorf("%w: negative macro value", ErrMalformedResult)
	}

	return &models.ClassificationResult{
		FileKey:              *w.FileKey,
		Label:                *w.Label,
		Confidence:           *w.Confidence,
		PortionEstimateGrams: *w.PortionEstimateGrams,
		Macros: models.Macros{
			Kcal:     *m.Kcal,
			ProteinG: *m.ProteinG,
			CarbsG:   *m.CarbsG,
			FatG:     *m.FatG,
		},
	}, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedResult, field)
}
