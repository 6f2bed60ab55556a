// Package budget holds the pure rules of the budgeting engine: allocation
// checks across sibling fields, month aggregation and recurring templates.
// Nothing here performs I/O.
package budget

import (
	"errors"
	"fmt"
	"math"

	"finanzas/internal/core"
)

// MaxAllocation is the ceiling for the sum of field percentages.
const MaxAllocation = 100.0

var ErrAllocationExceeded = errors.New("allocation exceeds 100%")

// AllocationCheck is the outcome of validating a proposed percentage.
type AllocationCheck struct {
	OtherFieldsTotal float64 `json:"otherFieldsTotal"`
	ProjectedTotal   float64 `json:"projectedTotal"`
	IsOverLimit      bool    `json:"isOverLimit"`
	// AvailableSpace is negative when other fields already exceed the ceiling.
	AvailableSpace float64 `json:"availableSpace"`
}

// ValidateAllocation computes what the total allocation would be if the
// field editedID were set to proposed. An editedID not present in fields is
// treated as a new field.
func ValidateAllocation(fields []core.Field, editedID string, proposed float64) AllocationCheck {
	var others float64
	for _, f := range fields {
		if f.ID == editedID {
			continue
		}
		others += f.Percentage
	}
	projected := others + proposed
	return AllocationCheck{
		OtherFieldsTotal: others,
		ProjectedTotal:   projected,
		IsOverLimit:      projected > MaxAllocation,
		AvailableSpace:   MaxAllocation - others,
	}
}

// CommitField replaces the field with edited.ID (or appends it) and returns
// the new tree. The commit is refused while the allocation is over the
// limit; fields is never modified.
func CommitField(fields []core.Field, edited core.Field) ([]core.Field, AllocationCheck, error) {
	if math.IsNaN(edited.Percentage) || math.IsInf(edited.Percentage, 0) {
		return fields, AllocationCheck{}, fmt.Errorf("%w: %v", core.ErrInvalidPercentage, edited.Percentage)
	}
	check := ValidateAllocation(fields, edited.ID, edited.Percentage)
	if check.IsOverLimit {
		return fields, check, fmt.Errorf("%w: projected %.2f%%, available %.2f%%", ErrAllocationExceeded, check.ProjectedTotal, check.AvailableSpace)
	}

	out := core.CloneFields(fields)
	if i := core.FindField(out, edited.ID); i >= 0 {
		out[i] = edited
	} else {
		out = append(out, edited)
	}
	if err := core.ValidateTree(out); err != nil {
		return fields, check, err
	}
	return out, check, nil
}

// DeleteField removes the field with id. It succeeds whatever the current
// totals are, and does not redistribute the freed percentage.
func DeleteField(fields []core.Field, id string) ([]core.Field, error) {
	i := core.FindField(fields, id)
	if i < 0 {
		return fields, fmt.Errorf("%w: %s", core.ErrFieldNotFound, id)
	}
	out := make([]core.Field, 0, len(fields)-1)
	out = append(out, core.CloneFields(fields[:i])...)
	out = append(out, core.CloneFields(fields[i+1:])...)
	return out, nil
}
