package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"labcore/internal/infra/persistence/memory"
	"labcore/pkg/domain"
)

func TestUsageCapacityRuleBlocksImportedOverCapacity(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine(serviceClock))
	store.SetNowFunc(serviceClock)

	snapshot := memory.Snapshot{
		Equipment: []domain.Equipment{{
			ID:           1,
			Name:         "Shared Laser",
			Type:         "Laser",
			PurchaseDate: domain.NewDate(2020, time.January, 1),
			Status:       domain.EquipmentInUse,
		}},
	}
	for i := int64(1); i <= 4; i++ {
		snapshot.Members = append(snapshot.Members, domain.LabMember{
			ID:       i,
			Name:     "Member",
			JoinDate: domain.NewDate(2023, time.January, 1),
			Type:     domain.MemberFaculty,
			Detail:   domain.FacultyDetail{Department: "Physics"},
		})
		snapshot.Usage = append(snapshot.Usage, domain.UsageRecord{
			MemberID:    i,
			EquipmentID: 1,
			StartDate:   domain.NewDate(2024, time.June, 1),
			Purpose:     "Experiment",
		})
	}
	store.ImportState(snapshot)

	// Any commit over the imported state re-evaluates the capacity rule.
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateEquipment(1, func(*domain.Equipment) error { return nil })
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	blocking := false
	for _, v := range violation.Result.Violations {
		if v.Rule == "usage_capacity" && v.Severity == domain.SeverityBlock && v.EntityID == 1 {
			blocking = true
		}
	}
	if !blocking {
		t.Fatalf("missing usage_capacity block: %+v", violation.Result)
	}
}

func TestCascadeNoticeRuleIgnoresPlainDeletes(t *testing.T) {
	rule := NewCascadeNoticeRule()
	changes := []Change{{
		Entity: domain.EntityEquipment,
		Action: domain.ActionDelete,
		Before: domain.Equipment{ID: 7},
	}}
	res, err := rule.Evaluate(context.Background(), nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("delete without dependents should not warn: %+v", res)
	}

	changes = append(changes, Change{
		Entity: domain.EntityUsage,
		Action: domain.ActionDelete,
		Before: domain.UsageRecord{EquipmentID: 7},
	})
	res, err = rule.Evaluate(context.Background(), nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].EntityID != 7 {
		t.Fatalf("expected one warning for equipment 7, got %+v", res)
	}
	if res.HasBlocking() {
		t.Fatalf("cascade notices must not block: %+v", res)
	}
}

func TestProjectScheduleRuleWarnings(t *testing.T) {
	rule := NewProjectScheduleRule(serviceClock)
	past := domain.NewDate(2024, time.January, 31)
	view := stubRuleView{projects: []domain.Project{
		{ID: 1, Title: "Overdue", StartDate: domain.NewDate(2023, time.January, 1), EndDate: &past, Status: domain.ProjectActive},
		{ID: 2, Title: "Unclosed", StartDate: domain.NewDate(2023, time.January, 1), Status: domain.ProjectCompleted},
		{ID: 3, Title: "Healthy", StartDate: domain.NewDate(2024, time.January, 1), Status: domain.ProjectActive},
	}}
	res, err := rule.Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", res)
	}
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityWarn {
			t.Fatalf("schedule anomalies must warn, not block: %+v", v)
		}
	}
}

// stubRuleView satisfies RuleView with fixed projects and empty everything
// else.
type stubRuleView struct {
	projects []domain.Project
}

func (v stubRuleView) ListMembers() []domain.LabMember           { return nil }
func (v stubRuleView) FindMember(int64) (domain.LabMember, bool) { return domain.LabMember{}, false }
func (v stubRuleView) ListProjects() []domain.Project            { return v.projects }
func (v stubRuleView) FindProject(int64) (domain.Project, bool)  { return domain.Project{}, false }
func (v stubRuleView) ListAssignments() []domain.Assignment      { return nil }
func (v stubRuleView) FindAssignment(domain.AssignmentKey) (domain.Assignment, bool) {
	return domain.Assignment{}, false
}
func (v stubRuleView) ListEquipment() []domain.Equipment            { return nil }
func (v stubRuleView) FindEquipment(int64) (domain.Equipment, bool) { return domain.Equipment{}, false }
func (v stubRuleView) ListUsage() []domain.UsageRecord              { return nil }
func (v stubRuleView) FindUsage(domain.UsageKey) (domain.UsageRecord, bool) {
	return domain.UsageRecord{}, false
}
func (v stubRuleView) ListGrants() []domain.Grant             { return nil }
func (v stubRuleView) FindGrant(int64) (domain.Grant, bool)   { return domain.Grant{}, false }
func (v stubRuleView) ListFunding() []domain.FundingLink      { return nil }
func (v stubRuleView) ListPublications() []domain.Publication { return nil }
func (v stubRuleView) FindPublication(int64) (domain.Publication, bool) {
	return domain.Publication{}, false
}
func (v stubRuleView) ListAuthorships() []domain.Authorship { return nil }
func (v stubRuleView) ListMentorships() []domain.Mentorship { return nil }
func (v stubRuleView) FindMentorship(domain.MentorshipKey) (domain.Mentorship, bool) {
	return domain.Mentorship{}, false
}
