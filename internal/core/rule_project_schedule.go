package core

import (
	"context"
	"time"

	"labcore/pkg/domain"
)

// ProjectScheduleRule warns about projects whose status disagrees with their
// schedule: still Active past their end date, or Completed with no end date.
type ProjectScheduleRule struct {
	clock func() time.Time
}

// NewProjectScheduleRule constructs the schedule rule with the given time
// source (defaults to UTC now).
func NewProjectScheduleRule(clock func() time.Time) *ProjectScheduleRule {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ProjectScheduleRule{clock: clock}
}

// Name identifies the rule in violations.
func (r *ProjectScheduleRule) Name() string { return "project_schedule" }

// Evaluate scans the pending project set for schedule anomalies.
func (r *ProjectScheduleRule) Evaluate(_ context.Context, view domain.RuleView, _ []Change) (Result, error) {
	today := domain.DateOf(r.clock())
	var result Result
	for _, project := range view.ListProjects() {
		switch project.Status {
		case domain.ProjectActive:
			if project.EndDate != nil && project.EndDate.Before(today) {
				result.Violations = append(result.Violations, Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  "project is Active but its end date has passed",
					Entity:   domain.EntityProject,
					EntityID: project.ID,
				})
			}
		case domain.ProjectCompleted:
			if project.EndDate == nil {
				result.Violations = append(result.Violations, Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  "project is Completed but has no end date",
					Entity:   domain.EntityProject,
					EntityID: project.ID,
				})
			}
		}
	}
	return result, nil
}

// NewDefaultRulesEngine wires the standard rule set evaluated on every commit.
func NewDefaultRulesEngine(clock func() time.Time) *RulesEngine {
	return domain.NewRulesEngine(
		NewUsageCapacityRule(clock),
		NewCascadeNoticeRule(),
		NewProjectScheduleRule(clock),
	)
}
