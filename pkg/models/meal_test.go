package models_test

import (
	"testing"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meal(label string, at time.Time, m models.Macros) *models.MealRecord {
	return &models.MealRecord{TaskID: label, Result: models.ClassificationResult{Label: label, Macros: m}, CreatedAt: at}
}

func TestSummarizeDay(t *testing.T) {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	meals := []*models.MealRecord{
		meal("dinner", day.Add(19*time.Hour), models.Macros{Kcal: 700, ProteinG: 40.1, CarbsG: 60, FatG: 22.2}),
		meal("breakfast", day.Add(7*time.Hour), models.Macros{Kcal: 350, ProteinG: 12.2, CarbsG: 55.55, FatG: 8}),
	}

	got := models.SummarizeDay(day, meals)

	assert.Equal(t, "2026-10-15", got.Date)
	assert.Equal(t, models.Macros{Kcal: 1050, ProteinG: 52.3, CarbsG: 115.55, FatG: 30.2}, got.TotalMacros)
	require.Len(t, got.Meals, 2)
	assert.Equal(t, "breakfast", got.Meals[0].Label)
	assert.Equal(t, "dinner", got.Meals[1].Label)
	assert.Equal(t, "dinner", meals[0].Result.Label, "input order is left alone")
}

func TestSummarizeDay_Empty(t *testing.T) {
	got := models.SummarizeDay(time.Date(2026, 1, 1, 23, 0, 0, 0, time.FixedZone("x", -5*3600)), nil)

	assert.Equal(t, "2026-01-02", got.Date)
	assert.NotNil(t, got.Meals)
	assert.Empty(t, got.Meals)
	assert.Zero(t, got.TotalMacros)
}
