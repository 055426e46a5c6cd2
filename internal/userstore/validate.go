package userstore

import (
	"fmt"
	"strings"

	"mealmind/pkg/mealtypes"
)

// validateDraft rejects drafts that must never reach persistence. The
// accumulator already drops out-of-range fields turn by turn; this is the
// last check before a row is written.
func validateDraft(profile mealtypes.ProfileDraft) error {
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("name is required: %w", mealtypes.ErrValidation)
	}
	if profile.Age < mealtypes.MinAge || profile.Age > mealtypes.MaxAge {
		return fmt.Errorf("age %d out of range [%d, %d]: %w",
			profile.Age, mealtypes.MinAge, mealtypes.MaxAge, mealtypes.ErrValidation)
	}
	if profile.Height != nil && (*profile.Height < mealtypes.MinHeight || *profile.Height > mealtypes.MaxHeight) {
		return fmt.Errorf("height %.1f out of range [%.1f, %.1f]: %w",
			*profile.Height, mealtypes.MinHeight, mealtypes.MaxHeight, mealtypes.ErrValidation)
	}
	if profile.Weight != nil && (*profile.Weight < mealtypes.MinWeight || *profile.Weight > mealtypes.MaxWeight) {
		return fmt.Errorf("weight %.1f out of range [%.1f, %.1f]: %w",
			*profile.Weight, mealtypes.MinWeight, mealtypes.MaxWeight, mealtypes.ErrValidation)
	}
	return nil
}
