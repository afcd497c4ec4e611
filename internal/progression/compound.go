package progression

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCapital is returned for non-positive starting or negative current capital.
	ErrInvalidCapital = errors.New("invalid capital")
	// ErrInvalidPercent is returned for a non-positive target percent per unit.
	ErrInvalidPercent = errors.New("invalid target percent")
)

// floorEpsilon absorbs float error so an exact milestone is not floored away.
const floorEpsilon = 1e-9

func validateCompound(start, current, targetPercent float64) error {
	if start <= 0 || math.IsNaN(start) || math.IsInf(start, 0) {
		return fmt.Errorf("starting capital %v: %w", start, ErrInvalidCapital)
	}
	if current < 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		return fmt.Errorf("current capital %v: %w", current, ErrInvalidCapital)
	}
	if targetPercent <= 0 || math.IsNaN(targetPercent) || math.IsInf(targetPercent, 0) {
		return fmt.Errorf("target percent %v: %w", targetPercent, ErrInvalidPercent)
	}
	return nil
}

// UnitsCompleted reverse-derives how many compounding steps of targetPercent
// the capital has grown through: floor(log(current/start) / log(1+pct/100)),
// clamped to [0, totalUnits]. totalUnits <= 0 leaves the upper end open.
func UnitsCompleted(start, current, targetPercent float64, totalUnits int) (int, error) {
	if err := validateCompound(start, current, targetPercent); err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, nil
	}

	ratio := current / start
	units := int(math.Floor(math.Log(ratio)/math.Log1p(targetPercent/100) + floorEpsilon))
	if units < 0 {
		units = 0
	}
	if totalUnits > 0 && units > totalUnits {
		units = totalUnits
	}
	return units, nil
}

// UnitTargetCapital is the capital at which unit n is completed.
func UnitTargetCapital(start, targetPercent float64, n int) (float64, error) {
	if err := validateCompound(start, start, targetPercent); err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return start * math.Pow(1+targetPercent/100, float64(n)), nil
}

// UnitProgress returns how far, in percent, the capital has moved from the
// last completed unit toward the next one.
func UnitProgress(start, current, targetPercent float64, totalUnits int) (float64, error) {
	done, err := UnitsCompleted(start, current, targetPercent, totalUnits)
	if err != nil {
		return 0, err
	}
	if totalUnits > 0 && done >= totalUnits {
		return 100, nil
	}

	from, _ := UnitTargetCapital(start, targetPercent, done)
	to, _ := UnitTargetCapital(start, targetPercent, done+1)
	if current <= from {
		return 0, nil
	}
	return (current - from) / (to - from) * 100, nil
}
