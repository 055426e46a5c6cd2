// Package mealtypes defines the shared types for the mealmind conversation core.
// This file contains the dietary profile model: the in-session draft, the
// persisted user record, and the BMI derivations both share.
package mealtypes

import (
	"fmt"
	"strings"
)

// Age, height, and weight bounds accepted for a profile.
const (
	MinAge    = 13
	MaxAge    = 120
	MinHeight = 50.0
	MaxHeight = 300.0
	MinWeight = 20.0
	MaxWeight = 500.0
)

// ConditionIntensity is the severity of a disclosed medical condition.
type ConditionIntensity string

const (
	IntensityMild     ConditionIntensity = "mild"
	IntensityModerate ConditionIntensity = "moderate"
	IntensitySevere   ConditionIntensity = "severe"
)

// ValidIntensity reports whether s names a known condition intensity.
func ValidIntensity(s string) bool {
	switch ConditionIntensity(strings.ToLower(strings.TrimSpace(s))) {
	case IntensityMild, IntensityModerate, IntensitySevere:
		return true
	}
	return false
}

// MedicalCondition is one disclosed condition with its intensity.
type MedicalCondition struct {
	Condition string             `json:"condition"`
	Intensity ConditionIntensity `json:"intensity"`
}

// MealTime names a meal slot the user may be planning for.
type MealTime string

const (
	Breakfast MealTime = "breakfast"
	Lunch     MealTime = "lunch"
	Dinner    MealTime = "dinner"
	Snack     MealTime = "snack"
)

// ProfileDraft is the in-progress profile accumulated during profile
// collection. Height and Weight are pointers because a persisted profile may
// legitimately omit them; the first-time onboarding gate still requires both
// (see IsComplete).
type ProfileDraft struct {
	Name             string             `json:"name,omitempty"`
	Age              int                `json:"age,omitempty"`
	Height           *float64           `json:"height,omitempty"`
	Weight           *float64           `json:"weight,omitempty"`
	Conditions       []MedicalCondition `json:"medical_conditions"`
	PrimaryCuisine   string             `json:"primary_cuisine,omitempty"`
	SecondaryCuisine string             `json:"secondary_cuisine,omitempty"`
}

// NewProfileDraft returns an empty draft with a non-nil conditions list.
func NewProfileDraft() ProfileDraft {
	return ProfileDraft{Conditions: []MedicalCondition{}}
}

// IsComplete reports whether onboarding has gathered everything it requires:
// name, age, primary cuisine, height, and weight all present, and the
// conditions list initialized (an empty list counts). Height and weight are
// intentionally required here even though the persisted record treats them as
// optional; returning users matched by name bypass this gate.
func (d ProfileDraft) IsComplete() bool {
	return d.Name != "" &&
		d.Age != 0 &&
		d.PrimaryCuisine != "" &&
		d.Height != nil &&
		d.Weight != nil &&
		d.Conditions != nil
}

// BMI returns the body mass index when both height and weight are known.
func (d ProfileDraft) BMI() (float64, bool) {
	return bmi(d.Height, d.Weight)
}

// UserRecord is a persisted user profile, owned by the user store.
type UserRecord struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Age              int                `json:"age"`
	Height           *float64           `json:"height,omitempty"`
	Weight           *float64           `json:"weight,omitempty"`
	Conditions       []MedicalCondition `json:"medical_conditions"`
	PrimaryCuisine   string             `json:"primary_cuisine"`
	SecondaryCuisine string             `json:"secondary_cuisine,omitempty"`
}

// BMI returns the body mass index when both height and weight are known.
func (u UserRecord) BMI() (float64, bool) {
	return bmi(u.Height, u.Weight)
}

// HasCondition reports whether the record lists the named condition,
// compared case-insensitively.
func (u UserRecord) HasCondition(condition string) bool {
	for _, c := range u.Conditions {
		if strings.EqualFold(c.Condition, condition) {
			return true
		}
	}
	return false
}

// ConditionIntensity returns the intensity recorded for the named condition.
func (u UserRecord) ConditionIntensity(condition string) (ConditionIntensity, bool) {
	for _, c := range u.Conditions {
		if strings.EqualFold(c.Condition, condition) {
			return c.Intensity, true
		}
	}
	return "", false
}

// Draft converts a stored record back into a draft, used when a returning
// user is matched during profile collection.
func (u UserRecord) Draft() ProfileDraft {
	conditions := make([]MedicalCondition, len(u.Conditions))
	copy(conditions, u.Conditions)
	return ProfileDraft{
		Name:             u.Name,
		Age:              u.Age,
		Height:           u.Height,
		Weight:           u.Weight,
		Conditions:       conditions,
		PrimaryCuisine:   u.PrimaryCuisine,
		SecondaryCuisine: u.SecondaryCuisine,
	}
}

// BMICategory maps a BMI value onto the standard WHO cutoffs.
func BMICategory(v float64) string {
	switch {
	case v < 18.5:
		return "underweight"
	case v < 25:
		return "normal"
	case v < 30:
		return "overweight"
	default:
		return "obese"
	}
}

// FormatBMI renders a BMI value the way prompts and summaries display it.
// Callers that want the category append BMICategory themselves.
func FormatBMI(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func bmi(height, weight *float64) (float64, bool) {
	if height == nil || weight == nil || *height == 0 {
		return 0, false
	}
	m := *height / 100
	return *weight / (m * m), true
}
