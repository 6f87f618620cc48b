package core

import (
	"context"
	"fmt"

	"labcore/pkg/domain"
)

// CascadeNoticeRule surfaces a warning for every parent delete in a
// transaction that swept dependent rows with it, so callers can report the
// blast radius of the delete they just committed.
type CascadeNoticeRule struct{}

// NewCascadeNoticeRule constructs the cascade notice rule.
func NewCascadeNoticeRule() *CascadeNoticeRule { return &CascadeNoticeRule{} }

// Name identifies the rule in violations.
func (r *CascadeNoticeRule) Name() string { return "cascade_notice" }

var parentEntities = map[domain.EntityType]bool{
	domain.EntityMember:      true,
	domain.EntityProject:     true,
	domain.EntityEquipment:   true,
	domain.EntityGrant:       true,
	domain.EntityPublication: true,
}

// Evaluate inspects the change set for parent deletes accompanied by
// dependent-row deletes.
func (r *CascadeNoticeRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	dependents := 0
	var parents []Change
	for _, change := range changes {
		if change.Action != domain.ActionDelete {
			continue
		}
		if parentEntities[change.Entity] {
			parents = append(parents, change)
		} else {
			dependents++
		}
	}
	if len(parents) == 0 || dependents == 0 {
		return Result{}, nil
	}

	var result Result
	for _, parent := range parents {
		result.Violations = append(result.Violations, Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("deleting %s removed %d dependent row(s)", parent.Entity, dependents),
			Entity:   parent.Entity,
			EntityID: entityID(parent.Before),
		})
	}
	return result, nil
}

func entityID(record any) int64 {
	switch v := record.(type) {
	case LabMember:
		return v.ID
	case Project:
		return v.ID
	case Equipment:
		return v.ID
	case Grant:
		return v.ID
	case Publication:
		return v.ID
	}
	return 0
}
