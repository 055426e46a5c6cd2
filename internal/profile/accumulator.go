// Package profile merges structured fields extracted from conversation turns
// into a profile draft and decides when the draft is complete.
package profile

import (
	"strings"

	"mealmind/pkg/mealtypes"
)

// Extraction carries the fields pulled out of one user turn. Nil fields were
// not mentioned. Conditions append to the draft; every other field overwrites,
// except the name, which is first-write-wins.
type Extraction struct {
	Name             *string
	Age              *int
	Height           *float64
	Weight           *float64
	Conditions       []mealtypes.MedicalCondition
	PrimaryCuisine   *string
	SecondaryCuisine *string
}

// Empty reports whether the extraction mentions no fields at all.
func (e Extraction) Empty() bool {
	return e.Name == nil && e.Age == nil && e.Height == nil && e.Weight == nil &&
		len(e.Conditions) == 0 && e.PrimaryCuisine == nil && e.SecondaryCuisine == nil
}

// Merge folds an extraction into a draft and returns the result. Fields that
// fail validation are rejected individually; the rest of the merge proceeds.
// Medical conditions are appended, never replaced, because users disclose
// them across multiple turns.
func Merge(draft mealtypes.ProfileDraft, ex Extraction) mealtypes.ProfileDraft {
	if ex.Name != nil && draft.Name == "" {
		if name := strings.TrimSpace(*ex.Name); name != "" {
			draft.Name = name
		}
	}
	if ex.Age != nil && validAge(*ex.Age) {
		draft.Age = *ex.Age
	}
	if ex.Height != nil && validHeight(*ex.Height) {
		v := *ex.Height
		draft.Height = &v
	}
	if ex.Weight != nil && validWeight(*ex.Weight) {
		v := *ex.Weight
		draft.Weight = &v
	}
	if ex.PrimaryCuisine != nil {
		if c := strings.TrimSpace(*ex.PrimaryCuisine); c != "" {
			draft.PrimaryCuisine = c
		}
	}
	if ex.SecondaryCuisine != nil {
		if c := strings.TrimSpace(*ex.SecondaryCuisine); c != "" {
			draft.SecondaryCuisine = c
		}
	}

	if draft.Conditions == nil {
		draft.Conditions = []mealtypes.MedicalCondition{}
	} else {
		conditions := make([]mealtypes.MedicalCondition, len(draft.Conditions))
		copy(conditions, draft.Conditions)
		draft.Conditions = conditions
	}
	for _, c := range ex.Conditions {
		name := strings.TrimSpace(c.Condition)
		intensity := strings.ToLower(strings.TrimSpace(string(c.Intensity)))
		if name == "" || !mealtypes.ValidIntensity(intensity) {
			continue
		}
		draft.Conditions = append(draft.Conditions, mealtypes.MedicalCondition{
			Condition: name,
			Intensity: mealtypes.ConditionIntensity(intensity),
		})
	}

	return draft
}

func validAge(age int) bool {
	return age >= mealtypes.MinAge && age <= mealtypes.MaxAge
}

func validHeight(h float64) bool {
	return h >= mealtypes.MinHeight && h <= mealtypes.MaxHeight
}

func validWeight(w float64) bool {
	return w >= mealtypes.MinWeight && w <= mealtypes.MaxWeight
}
