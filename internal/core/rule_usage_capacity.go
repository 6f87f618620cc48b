package core

import (
	"context"
	"fmt"
	"time"

	"labcore/pkg/domain"
)

// UsageCapacityRule blocks commits that would leave a piece of equipment with
// more concurrently active usage records than the allowed maximum. The
// transactional store enforces the cap on StartUsage; this rule backstops
// snapshot imports and mutators that reopen ended records.
type UsageCapacityRule struct {
	clock func() time.Time
}

// NewUsageCapacityRule constructs the capacity rule with the given time
// source (defaults to UTC now).
func NewUsageCapacityRule(clock func() time.Time) *UsageCapacityRule {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &UsageCapacityRule{clock: clock}
}

// Name identifies the rule in violations.
func (r *UsageCapacityRule) Name() string { return "usage_capacity" }

// Evaluate counts active usage records per equipment in the pending state.
func (r *UsageCapacityRule) Evaluate(_ context.Context, view domain.RuleView, _ []Change) (Result, error) {
	today := domain.DateOf(r.clock())
	active := make(map[int64]int)
	for _, usage := range view.ListUsage() {
		if usage.ActiveAt(today) {
			active[usage.EquipmentID]++
		}
	}

	var result Result
	for equipmentID, count := range active {
		if count <= domain.MaxActiveEquipmentUsers {
			continue
		}
		result.Violations = append(result.Violations, Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("equipment has %d active usage records, maximum is %d", count, domain.MaxActiveEquipmentUsers),
			Entity:   domain.EntityEquipment,
			EntityID: equipmentID,
		})
	}
	return result, nil
}
