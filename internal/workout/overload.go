package workout

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/myrjola/liftlog/internal/ptr"
)

const (
	// overloadHistory is how many previous completed instances of an exercise the advisor looks at.
	overloadHistory = 3
	// consistentHits is how many of those must reach the top of the rep range before the range moves up.
	consistentHits = 2
	// repRangeStep is how much both ends of the rep range move up.
	repRangeStep = 2
)

//nolint:gochecknoglobals // compiled once.
var repRangePattern = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+)\s*$`)

// parseRepRange parses "low-high" rep targets such as "8-10".
func parseRepRange(targetReps string) (int, int, bool) {
	m := repRangePattern.FindStringSubmatch(targetReps)
	if m == nil {
		return 0, 0, false
	}
	low, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	high, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return low, high, true
}

// Advise proposes the next progression step from history, the last set of each recent completed instance of the
// exercise ordered newest first.
//
// Rules are tried in order. Reaching the top of the rep range in at least two of the sets moves the range up.
// Missing it in the latest set keeps everything as is. Reaching it only in the latest set increases the weight.
func Advise(history []SetRecord, targetReps string) Suggestion {
	if len(history) == 0 {
		return Suggestion{HasData: false, Reason: "No previous data"}
	}
	if len(history) > overloadHistory {
		history = history[:overloadHistory]
	}
	latest := history[0]
	s := Suggestion{
		HasData:    true,
		LastWeight: latest.WeightKg,
		LastReps:   latest.Reps,
	}

	low, high, ok := parseRepRange(targetReps)
	if !ok {
		s.Reason = fmt.Sprintf("Target %q is not a rep range, keep %s kg", targetReps, formatWeight(latest.WeightKg))
		return s
	}

	hits := 0
	for _, set := range history {
		if set.Reps >= high {
			hits++
		}
	}

	switch {
	case hits >= consistentHits:
		s.SuggestedReps = ptr.Ref(fmt.Sprintf("%d-%d", low+repRangeStep, high+repRangeStep))
		s.Reason = fmt.Sprintf("Reached %d reps in %d of the last %d workouts", high, hits, len(history))
	case latest.Reps < high:
		s.Reason = fmt.Sprintf("Last time %d of %d reps, stay at %s kg until you reach %d",
			latest.Reps, high, formatWeight(latest.WeightKg), high)
	default:
		next := roundToIncrement(latest.WeightKg * (1 + weightIncrease(latest.WeightKg)))
		s.SuggestedWeight = ptr.Ref(next)
		s.Reason = fmt.Sprintf("Reached %d reps at %s kg, try %s kg",
			latest.Reps, formatWeight(latest.WeightKg), formatWeight(next))
	}
	return s
}

// weightIncrease returns the relative increase for a load. Heavier loads get smaller relative jumps.
func weightIncrease(weight float64) float64 {
	switch {
	case weight < 50: //nolint:mnd // light load threshold in kg.
		return 0.05 //nolint:mnd // 5%.
	case weight < 150: //nolint:mnd // heavy load threshold in kg.
		return 0.0375 //nolint:mnd // 3.75%.
	default:
		return 0.025 //nolint:mnd // 2.5%.
	}
}

// roundToIncrement rounds to loadable weights: half kilos below 20 kg, whole kilos below 50 kg and half kilos from
// there on.
func roundToIncrement(weight float64) float64 {
	if weight >= 20 && weight < 50 {
		return math.Round(weight)
	}
	return math.Round(weight*2) / 2 //nolint:mnd // nearest 0.5.
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
