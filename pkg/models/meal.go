package models

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used in meal routes.
const DateLayout = "2006-01-02"

// MealSummary is one meal inside a DailyNutrition.
type MealSummary struct {
	ID        uuid.UUID `json:"id"`
	TaskID    string    `json:"task_id"`
	Label     string    `json:"label"`
	Macros    Macros    `json:"macros"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyNutrition totals a user's classified meals for one UTC day.
type DailyNutrition struct {
	Date        string        `json:"date"`
	TotalMacros Macros        `json:"total_macros"`
	Meals       []MealSummary `json:"meals"`
}

// SummarizeDay lists meals oldest first and sums their macros.
func SummarizeDay(day time.Time, meals []*MealRecord) DailyNutrition {
	sorted := append([]*MealRecord(nil), meals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	out := DailyNutrition{
		Date:  day.UTC().Format(DateLayout),
		Meals: make([]MealSummary, 0, len(sorted)),
	}
	for _, m := range sorted {
		macros := m.Result.Macros
		out.Meals = append(out.Meals, MealSummary{
			ID:        m.ID,
			TaskID:    m.TaskID,
			Label:     m.Result.Label,
			Macros:    macros,
			CreatedAt: m.CreatedAt,
		})
		out.TotalMacros.Kcal += macros.Kcal
		out.TotalMacros.ProteinG += macros.ProteinG
		out.TotalMacros.CarbsG += macros.CarbsG
		out.TotalMacros.FatG += macros.FatG
	}

	out.TotalMacros.ProteinG = round2(out.TotalMacros.ProteinG)
	out.TotalMacros.CarbsG = round2(out.TotalMacros.CarbsG)
	out.TotalMacros.FatG = round2(out.TotalMacros.FatG)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
