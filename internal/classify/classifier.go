package classify

import (
	"context"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

// Classifier identifies the meal in an uploaded image.
type Classifier interface {
	Classify(ctx context.Context, fileKey string) (models.ClassificationResult, error)
}

// ClassifierFunc adapts a function into a Classifier.
type ClassifierFunc func(ctx context.Context, fileKey string) (models.ClassificationResult, error)

func (f ClassifierFunc) Classify(ctx context.Context, fileKey string) (models.ClassificationResult, error) {
	return f(ctx, fileKey)
}

// Placeholder returns the same estimate for every image. It stands in until a
// real model is wired up.
type Placeholder struct{}

var _ Classifier = Placeholder{}

func (Placeholder) Classify(ctx context.Context, fileKey string) (models.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ClassificationResult{}, err
	}
	return models.ClassificationResult{
		FileKey:              fileKey,
		Label:                "spaghetti bolognese",
		Confidence:           0.87,
		PortionEstimateGrams: 300,
		Macros: models.Macros{
			Kcal:     600,
			ProteinG: 25,
			CarbsG:   75,
			FatG:     20,
		},
	}, nil
}
