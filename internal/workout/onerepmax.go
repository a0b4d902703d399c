package workout

// Formula selects the one-rep-max estimation formula.
type Formula string

const (
	FormulaEpley   Formula = "epley"
	FormulaBrzycki Formula = "brzycki"
)

// brzyckiMaxReps is the first rep count where the Brzycki denominator (37 - reps) stops being positive.
const brzyckiMaxReps = 37

// EstimateOneRepMax estimates the single-rep maximum from a submaximal set.
//
// A single rep returns weight unchanged. Rep counts below one or non-positive weights estimate nothing and return 0.
// Brzycki is undefined from 37 reps upwards, so those sets are estimated with Epley instead.
func EstimateOneRepMax(weight float64, reps int, formula Formula) float64 {
	if reps == 1 {
		return weight
	}
	if reps < 1 || weight <= 0 {
		return 0
	}
	if formula == FormulaBrzycki && reps < brzyckiMaxReps {
		return weight * (36 / float64(brzyckiMaxReps-reps)) //nolint:mnd // Brzycki numerator.
	}
	return weight * (1 + float64(reps)/30) //nolint:mnd // Epley divisor.
}
