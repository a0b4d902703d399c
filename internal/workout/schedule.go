package workout

import (
	"math"
	"slices"
	"strings"
	"time"
)

const (
	daysPerWeek = 7
	day         = 24 * time.Hour
)

// CurrentWeek returns the 1-based program week for now.
//
// Elapsed days are rounded up and the result cycles through [1, totalWeeks] so that a program repeats once its
// nominal duration is over. A totalWeeks below one is treated as one.
func CurrentWeek(startDate time.Time, totalWeeks int, now time.Time) int {
	if totalWeeks < 1 {
		totalWeeks = 1
	}
	elapsed := now.Sub(startDate)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	days := int(math.Ceil(float64(elapsed) / float64(day)))
	rawWeek := days/daysPerWeek + 1
	return (rawWeek-1)%totalWeeks + 1
}

// SelectTemplate returns the template for dayIndex that is in effect in weekNumber: the one with the highest
// WeekNumber not after weekNumber. It reports false when no phase of that day has started yet.
func SelectTemplate(templates []WorkoutTemplate, weekNumber int, dayIndex int) (WorkoutTemplate, bool) {
	var (
		best  WorkoutTemplate
		found bool
	)
	for _, t := range templates {
		if t.DayIndex != dayIndex || t.WeekNumber > weekNumber {
			continue
		}
		if !found || t.WeekNumber > best.WeekNumber {
			best = t
			found = true
		}
	}
	return best, found
}

// RecommendedDay returns the rotation day that follows the last completed workout.
//
// The workout is matched to a template by exact name first and by substring containment in either direction
// second. Without a last workout, templates or a match the rotation starts over at day 0.
func RecommendedDay(templates []WorkoutTemplate, lastCompleted *Workout) int {
	if lastCompleted == nil || len(templates) == 0 {
		return 0
	}
	maxDayIndex := 0
	for _, t := range templates {
		maxDayIndex = max(maxDayIndex, t.DayIndex)
	}
	matched, ok := matchTemplateDay(templates, lastCompleted.Name)
	if !ok {
		return 0
	}
	return (matched + 1) % (maxDayIndex + 1)
}

func matchTemplateDay(templates []WorkoutTemplate, name string) (int, bool) {
	for _, t := range templates {
		if t.Name == name {
			return t.DayIndex, true
		}
	}
	if name == "" {
		return 0, false
	}
	for _, t := range templates {
		if t.Name == "" {
			continue
		}
		if strings.Contains(name, t.Name) || strings.Contains(t.Name, name) {
			return t.DayIndex, true
		}
	}
	return 0, false
}

// WeekTemplates returns the template in effect for each rotation day in weekNumber, ordered by dayIndex. Days
// without an active phase are left out.
func WeekTemplates(templates []WorkoutTemplate, weekNumber int) []WorkoutTemplate {
	seen := make(map[int]bool)
	var days []int
	for _, t := range templates {
		if !seen[t.DayIndex] {
			seen[t.DayIndex] = true
			days = append(days, t.DayIndex)
		}
	}
	slices.Sort(days)
	var week []WorkoutTemplate
	for _, d := range days {
		if t, ok := SelectTemplate(templates, weekNumber, d); ok {
			week = append(week, t)
		}
	}
	return week
}
