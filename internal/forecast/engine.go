// Package forecast projects one-rep-max progress per exercise from a user's
// logged strength sets and active strength goals.
package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/pkg/models"
)

const (
	secondsPerDay = 86400
	// etaHorizonDays bounds how far from now a completion date may land.
	etaHorizonDays = 100 * 365
)

// Epley estimates a one-rep max from a set; zero or negative reps estimate 0.
// The reps == 1 case deliberately skips the formula, which would otherwise
// inflate a lifted single by a thirtieth.
func Epley(weightKg float64, reps int) float64 {
	switch {
	case reps <= 0:
		return 0
	case reps == 1:
		return weightKg
	}
	return weightKg * (1 + float64(reps)/30)
}

// Sample is one estimated 1RM at a point in time, in days since the Unix epoch.
type Sample struct {
	Day   float64
	OneRM float64
}

// Fit is a least-squares line over samples. Confidence is R² clamped to [0, 1].
type Fit struct {
	Slope      float64
	Intercept  float64
	Confidence float64
}

// FitLine fits value = Slope*day + Intercept. Fewer than two samples, or
// samples that all share one day, give the zero Fit.
func FitLine(samples []Sample) Fit {
	n := float64(len(samples))
	if len(samples) < 2 {
		return Fit{}
	}

	var sumX, sumY float64
	for _, s := range samples {
		sumX += s.Day
		sumY += s.OneRM
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy, ssTot float64
	for _, s := range samples {
		dx, dy := s.Day-meanX, s.OneRM-meanY
		sxx += dx * dx
		sxy += dx * dy
		ssTot += dy * dy
	}
	if sxx == 0 {
		return Fit{}
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX

	var ssRes float64
	for _, s := range samples {
		r := s.OneRM - (slope*s.Day + intercept)
		ssRes += r * r
	}

	var r2 float64
	if ssTot > 0 {
		r2 = clamp(1-ssRes/ssTot, 0, 1)
	}
	return Fit{Slope: slope, Intercept: intercept, Confidence: r2}
}

// EstimateCompletion solves the fit for target. It returns nil unless the
// trend is rising and the solution lies within the horizon of now. A solution
// already behind now is reported as now.
func EstimateCompletion(fit Fit, target float64, now time.Time) *time.Time {
	if fit.Slope <= 0 {
		return nil
	}
	day := (target - fit.Intercept) / fit.Slope
	nowDay := DaysSinceEpoch(now)
	if math.IsNaN(day) || math.IsInf(day, 0) || math.Abs(day-nowDay) > etaHorizonDays {
		return nil
	}
	if day < nowDay {
		day = nowDay
	}
	eta := time.Unix(int64(math.Round(day*secondsPerDay)), 0).UTC()
	return &eta
}

// DaysSinceEpoch converts t to fractional days since the Unix epoch in UTC.
func DaysSinceEpoch(t time.Time) float64 {
	return float64(t.UTC().Unix()) / secondsPerDay
}

type series struct {
	samples []Sample
	best    float64
	target  float64
	hasGoal bool
}

// Compute builds one forecast per exercise that has logged strength sets or an
// active strength goal, sorted by exercise name.
func Compute(userID string, workouts []*models.Workout, goals []*models.Goal, now time.Time) []models.StrengthForecast {
	now = now.UTC()
	byExercise := make(map[string]*series)
	get := func(name string) *series {
		s, ok := byExercise[name]
		if !ok {
			s = &series{}
			byExercise[name] = s
		}
		return s
	}

	for _, w := range workouts {
		day := DaysSinceEpoch(w.PerformedAt())
		for _, ex := range w.Exercises {
			name := strings.TrimSpace(ex.Name)
			if ex.ExerciseType != models.ExerciseStrength || name == "" {
				continue
			}
			for _, set := range ex.Sets {
				if set.Reps == nil || set.WeightKg == nil {
					continue
				}
				rm := Epley(*set.WeightKg, *set.Reps)
				s := get(name)
				if len(s.samples) == 0 || rm > s.best {
					s.best = rm
				}
				s.samples = append(s.samples, Sample{Day: day, OneRM: rm})
			}
		}
	}

	for _, g := range goals {
		if g.GoalType != models.GoalStrength || g.Status != models.GoalActive {
			continue
		}
		for _, sg := range g.StrengthGoals {
			name := strings.TrimSpace(sg.ExerciseName)
			target := Epley(sg.TargetWeightKg, sg.Reps())
			if name == "" || target <= 0 {
				continue
			}
			s := get(name)
			if !s.hasGoal || target > s.target {
				s.target = target
				s.hasGoal = true
			}
		}
	}

	names := make([]string, 0, len(byExercise))
	for name := range byExercise {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.StrengthForecast, 0, len(names))
	for _, name := range names {
		s := byExercise[name]
		fit := FitLine(s.samples)

		f := models.StrengthForecast{
			UserID:          userID,
			ExerciseName:    name,
			ConfidenceScore: round(fit.Confidence, 3),
			UpdatedAt:       now,
		}
		if len(s.samples) > 0 {
			f.Current1RMKg = ptr(round(s.best, 2))
		}
		if s.hasGoal {
			f.Target1RMKg = ptr(round(s.target, 2))
			f.EstimatedCompletionDate = EstimateCompletion(fit, s.target, now)
		}
		out = append(out, f)
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func ptr[T any](v T) *T { return &v }
