package patient

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrNameRequired is returned when a patient is submitted without a name.
	ErrNameRequired = errors.New("name is required")

	// ErrAgeNotWhole is returned when a changed age has a fractional part.
	ErrAgeNotWhole = errors.New("age must be a whole number of years")
)

// RangeError reports a defined numeric field outside its accepted range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g, got %g", e.Field, e.Min, e.Max, e.Value)
}

// Field ranges accepted by Validate.
var (
	AgeRange    = [2]float64{0, 150}
	HeightRange = [2]float64{30, 250}
	WeightRange = [2]float64{1, 400}
)

// Validate checks a patient the way interactive callers do before adding it.
// The table operations never call it; undefined numbers pass.
func Validate(p Patient) error {
	return ValidateChange(Patient{}, p)
}

// ValidateChange checks an edit of before into after. The name is always
// required, but only numbers that changed are range checked, so stored
// values outside the ranges survive unrelated edits.
func ValidateChange(before, after Patient) error {
	if strings.TrimSpace(after.Name) == "" {
		return ErrNameRequired
	}

	if after.Age.Valid && !after.Age.Equal(before.Age) && after.Age.Float != math.Trunc(after.Age.Float) {
		return ErrAgeNotWhole
	}

	checks := []struct {
		field string
		old   Number
		value Number
		rng   [2]float64
	}{
		{"age", before.Age, after.Age, AgeRange},
		{"height_cm", before.HeightCM, after.HeightCM, HeightRange},
		{"weight_kg", before.WeightKG, after.WeightKG, WeightRange},
	}
	for _, c := range checks {
		if !c.value.Valid || c.value.Equal(c.old) {
			continue
		}
		if c.value.Float < c.rng[0] || c.value.Float > c.rng[1] {
			return &RangeError{Field: c.field, Value: c.value.Float, Min: c.rng[0], Max: c.rng[1]}
		}
	}
	return nil
}
