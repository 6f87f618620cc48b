package memory

import (
	"context"
	"testing"
	"time"

	"labcore/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(nil)
	store.SetNowFunc(func() time.Time {
		return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	})
	return store
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func seedMember(t *testing.T, store *Store, name string, detail domain.MemberDetail) domain.LabMember {
	t.Helper()
	var created domain.LabMember
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateMember(domain.LabMember{
			Name:     name,
			Type:     detail.Kind(),
			JoinDate: domain.NewDate(2023, time.January, 10),
			Detail:   detail,
		})
		return err
	})
	mustNoErr(t, err)
	return created
}

func seedProject(t *testing.T, store *Store, title string, leaderID int64) domain.Project {
	t.Helper()
	var created domain.Project
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateProject(domain.Project{
			Title:          title,
			StartDate:      domain.NewDate(2024, time.January, 1),
			DurationMonths: 12,
			Status:         domain.ProjectActive,
			LeaderID:       &leaderID,
		})
		return err
	})
	mustNoErr(t, err)
	return created
}

func seedEquipment(t *testing.T, store *Store, name string) domain.Equipment {
	t.Helper()
	var created domain.Equipment
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateEquipment(domain.Equipment{
			Name:         name,
			Type:         "Microscope",
			PurchaseDate: domain.NewDate(2022, time.March, 1),
			Status:       domain.EquipmentAvailable,
		})
		return err
	})
	mustNoErr(t, err)
	return created
}

func TestCreateMemberAssignsSequentialIDs(t *testing.T) {
	store := newTestStore(t)
	first := seedMember(t, store, "Alice", domain.FacultyDetail{Department: "Biology"})
	second := seedMember(t, store, "Bob", domain.StudentDetail{StudentID: "S-1", Level: domain.LevelSenior, Major: "Biology"})
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected sequential ids, got %d and %d", first.ID, second.ID)
	}
}

func TestCreateMemberRejectsMismatchedDetail(t *testing.T) {
	store := newTestStore(t)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateMember(domain.LabMember{
			Name:     "Mismatch",
			Type:     domain.MemberFaculty,
			JoinDate: domain.NewDate(2023, time.May, 1),
			Detail:   domain.StudentDetail{StudentID: "S-9", Level: domain.LevelJunior, Major: "CS"},
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateMemberSwapsDetailVariant(t *testing.T) {
	store := newTestStore(t)
	member := seedMember(t, store, "Casey", domain.StudentDetail{StudentID: "S-2", Level: domain.LevelGraduate, Major: "Physics"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateMember(member.ID, func(m *domain.LabMember) error {
			m.Type = domain.MemberFaculty
			m.Detail = domain.FacultyDetail{Department: "Physics"}
			return nil
		})
		return err
	})
	mustNoErr(t, err)

	err = store.View(context.Background(), func(view TransactionView) error {
		got, ok := view.FindMember(member.ID)
		if !ok {
			t.Fatal("member missing after update")
		}
		if got.Type != domain.MemberFaculty {
			t.Fatalf("type not swapped: %s", got.Type)
		}
		if _, ok := got.Detail.(domain.FacultyDetail); !ok {
			t.Fatalf("detail not swapped: %T", got.Detail)
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := newTestStore(t)
	member := seedMember(t, store, "Dana", domain.FacultyDetail{Department: "Chemistry"})
	project := seedProject(t, store, "Catalysis", member.ID)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Lead", WeeklyHours: 10}); err != nil {
			return err
		}
		// Second statement targets a missing project; the assignment above
		// must not survive the abort.
		_, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: 999, Role: "Lead", WeeklyHours: 5})
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	err = store.View(context.Background(), func(view TransactionView) error {
		if len(view.ListAssignments()) != 0 {
			t.Fatal("aborted transaction leaked state")
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestPutAssignmentUpsertsOnConflict(t *testing.T) {
	store := newTestStore(t)
	member := seedMember(t, store, "Eve", domain.FacultyDetail{Department: "Math"})
	project := seedProject(t, store, "Topology", member.ID)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Advisor", WeeklyHours: 4}); err != nil {
			return err
		}
		_, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Lead", WeeklyHours: 12})
		return err
	})
	mustNoErr(t, err)

	err = store.View(context.Background(), func(view TransactionView) error {
		rows := view.ListAssignments()
		if len(rows) != 1 {
			t.Fatalf("expected single row after upsert, got %d", len(rows))
		}
		if rows[0].Role != "Lead" || rows[0].WeeklyHours != 12 {
			t.Fatalf("upsert did not replace values: %+v", rows[0])
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestPutAssignmentRejectsHoursOverWeek(t *testing.T) {
	store := newTestStore(t)
	member := seedMember(t, store, "Overbooked", domain.FacultyDetail{Department: "CS"})
	project := seedProject(t, store, "Scheduling", member.ID)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Lead", WeeklyHours: 500})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for 500 weekly hours, got %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Lead", WeeklyHours: domain.MaxWeeklyAssignmentHours})
		return err
	})
	mustNoErr(t, err)
}

func TestCreateProjectRejectsZeroDuration(t *testing.T) {
	store := newTestStore(t)
	leader := seedMember(t, store, "PI", domain.FacultyDetail{Department: "CS"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateProject(domain.Project{
			Title:          "Instant",
			StartDate:      domain.NewDate(2024, time.January, 1),
			DurationMonths: 0,
			Status:         domain.ProjectActive,
			LeaderID:       &leader.ID,
		})
		return err
	})
	if !domain.IsInvalidRange(err) {
		t.Fatalf("expected invalid range for zero duration, got %v", err)
	}
}

func TestCreateProjectRequiresLeader(t *testing.T) {
	store := newTestStore(t)
	seedMember(t, store, "PI", domain.FacultyDetail{Department: "CS"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateProject(domain.Project{
			Title:          "Headless",
			StartDate:      domain.NewDate(2024, time.January, 1),
			DurationMonths: 6,
			Status:         domain.ProjectActive,
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for missing leader, got %v", err)
	}
}

func TestStartUsageEnforcesCapacity(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Confocal A")
	var members []domain.LabMember
	for _, name := range []string{"M1", "M2", "M3", "M4"} {
		members = append(members, seedMember(t, store, name, domain.FacultyDetail{Department: "Biology"}))
	}

	start := domain.NewDate(2024, time.June, 1)
	for i := 0; i < 3; i++ {
		_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
			_, err := tx.StartUsage(domain.UsageRecord{
				MemberID:    members[i].ID,
				EquipmentID: equipment.ID,
				StartDate:   start,
				Purpose:     "imaging",
			})
			return err
		})
		mustNoErr(t, err)
	}

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{
			MemberID:    members[3].ID,
			EquipmentID: equipment.ID,
			StartDate:   start,
			Purpose:     "imaging",
		})
		return err
	})
	if !domain.IsCapacityExceeded(err) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	// Ending one active record frees a slot for the fourth member.
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.EndUsage(domain.UsageKey{MemberID: members[0].ID, EquipmentID: equipment.ID, StartDate: start}, domain.NewDate(2024, time.June, 10))
		return err
	})
	mustNoErr(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{
			MemberID:    members[3].ID,
			EquipmentID: equipment.ID,
			StartDate:   domain.NewDate(2024, time.June, 12),
			Purpose:     "imaging",
		})
		return err
	})
	mustNoErr(t, err)
}

func TestStartUsageCapacityCountsRecordsNotMembers(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Confocal B")
	heavy := seedMember(t, store, "Heavy", domain.FacultyDetail{Department: "Biology"})
	other := seedMember(t, store, "Other", domain.FacultyDetail{Department: "Biology"})
	late := seedMember(t, store, "Late", domain.FacultyDetail{Department: "Biology"})

	// Two open records for the same member plus one for another fill all
	// three slots even though only two members are involved.
	starts := []domain.UsageRecord{
		{MemberID: heavy.ID, EquipmentID: equipment.ID, StartDate: domain.NewDate(2024, time.June, 1), Purpose: "imaging"},
		{MemberID: heavy.ID, EquipmentID: equipment.ID, StartDate: domain.NewDate(2024, time.June, 2), Purpose: "calibration"},
		{MemberID: other.ID, EquipmentID: equipment.ID, StartDate: domain.NewDate(2024, time.June, 3), Purpose: "imaging"},
	}
	for _, u := range starts {
		record := u
		_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
			_, err := tx.StartUsage(record)
			return err
		})
		mustNoErr(t, err)
	}

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{
			MemberID:    late.ID,
			EquipmentID: equipment.ID,
			StartDate:   domain.NewDate(2024, time.June, 4),
			Purpose:     "imaging",
		})
		return err
	})
	if !domain.IsCapacityExceeded(err) {
		t.Fatalf("expected capacity error for fourth active record, got %v", err)
	}
}

func TestHistoricalUsageDoesNotCountAgainstCapacity(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Sequencer")
	member := seedMember(t, store, "Past", domain.FacultyDetail{Department: "Genomics"})

	end := domain.NewDate(2024, time.February, 1)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{
			MemberID:    member.ID,
			EquipmentID: equipment.ID,
			StartDate:   domain.NewDate(2024, time.January, 1),
			EndDate:     &end,
			Purpose:     "sequencing",
		})
		return err
	})
	mustNoErr(t, err)

	err = store.View(context.Background(), func(view TransactionView) error {
		records := view.ListUsage()
		if len(records) != 1 {
			t.Fatalf("expected record persisted, got %d", len(records))
		}
		if records[0].ActiveAt(domain.NewDate(2024, time.June, 15)) {
			t.Fatal("ended record should not be active")
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestEndUsageRejectsEndBeforeStart(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Laser")
	member := seedMember(t, store, "F", domain.FacultyDetail{Department: "Optics"})
	start := domain.NewDate(2024, time.June, 1)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.StartUsage(domain.UsageRecord{MemberID: member.ID, EquipmentID: equipment.ID, StartDate: start, Purpose: "alignment"}); err != nil {
			return err
		}
		_, err := tx.EndUsage(domain.UsageKey{MemberID: member.ID, EquipmentID: equipment.ID, StartDate: start}, domain.NewDate(2024, time.May, 1))
		return err
	})
	if !domain.IsInvalidRange(err) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestStartUsageRejectsRetiredEquipment(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Old Microscope")
	member := seedMember(t, store, "H", domain.FacultyDetail{Department: "Biology"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateEquipment(equipment.ID, func(e *domain.Equipment) error {
			e.Status = domain.EquipmentRetired
			return nil
		})
		return err
	})
	mustNoErr(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{
			MemberID:    member.ID,
			EquipmentID: equipment.ID,
			StartDate:   domain.NewDate(2024, time.June, 1),
			Purpose:     "imaging",
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for retired equipment, got %v", err)
	}
}

func TestUpdateUsageGuardsKeyAndRange(t *testing.T) {
	store := newTestStore(t)
	equipment := seedEquipment(t, store, "Cryostat")
	member := seedMember(t, store, "G", domain.FacultyDetail{Department: "Physics"})
	start := domain.NewDate(2024, time.June, 1)
	key := domain.UsageKey{MemberID: member.ID, EquipmentID: equipment.ID, StartDate: start}

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.StartUsage(domain.UsageRecord{MemberID: member.ID, EquipmentID: equipment.ID, StartDate: start, Purpose: "cooldown"})
		return err
	})
	mustNoErr(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		updated, err := tx.UpdateUsage(key, func(u *domain.UsageRecord) error {
			u.Purpose = "warmup"
			return nil
		})
		if err != nil {
			return err
		}
		if updated.Purpose != "warmup" {
			t.Fatalf("purpose not updated: %+v", updated)
		}
		return nil
	})
	mustNoErr(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateUsage(key, func(u *domain.UsageRecord) error {
			u.StartDate = domain.NewDate(2024, time.July, 1)
			return nil
		})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for key mutation, got %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateUsage(key, func(u *domain.UsageRecord) error {
			end := domain.NewDate(2024, time.May, 1)
			u.EndDate = &end
			return nil
		})
		return err
	})
	if !domain.IsInvalidRange(err) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestDeleteMemberCascades(t *testing.T) {
	store := newTestStore(t)
	leader := seedMember(t, store, "Lead", domain.FacultyDetail{Department: "Biology"})
	mentee := seedMember(t, store, "Mentee", domain.StudentDetail{StudentID: "S-5", Level: domain.LevelJunior, Major: "Biology"})
	project := seedProject(t, store, "Wetlands", leader.ID)
	equipment := seedEquipment(t, store, "Drone")

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.PutAssignment(domain.Assignment{MemberID: leader.ID, ProjectID: project.ID, Role: "PI", WeeklyHours: 20}); err != nil {
			return err
		}
		if _, err := tx.StartUsage(domain.UsageRecord{MemberID: leader.ID, EquipmentID: equipment.ID, StartDate: domain.NewDate(2024, time.June, 1), Purpose: "survey"}); err != nil {
			return err
		}
		pub, err := tx.CreatePublication(domain.Publication{Title: "Wetland Survey", Date: domain.NewDate(2024, time.March, 1), Venue: "EcoJournal"})
		if err != nil {
			return err
		}
		if _, err := tx.LinkAuthorship(domain.Authorship{MemberID: leader.ID, PublicationID: pub.ID}); err != nil {
			return err
		}
		_, err = tx.CreateMentorship(domain.Mentorship{MentorID: leader.ID, MenteeID: mentee.ID, StartDate: domain.NewDate(2024, time.January, 1)})
		return err
	})
	mustNoErr(t, err)

	var summary domain.CascadeSummary
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteMember(leader.ID)
		return err
	})
	mustNoErr(t, err)

	if summary.Assignments != 1 || summary.Usage != 1 || summary.Authorships != 1 || summary.Mentorships != 1 || summary.LedProjects != 1 {
		t.Fatalf("unexpected cascade summary: %+v", summary)
	}

	err = store.View(context.Background(), func(view TransactionView) error {
		if _, ok := view.FindMember(leader.ID); ok {
			t.Fatal("member still present")
		}
		got, ok := view.FindProject(project.ID)
		if !ok {
			t.Fatal("project removed by member delete")
		}
		if got.LeaderID != nil {
			t.Fatal("leader reference not cleared")
		}
		if len(view.ListAssignments()) != 0 || len(view.ListUsage()) != 0 || len(view.ListAuthorships()) != 0 || len(view.ListMentorships()) != 0 {
			t.Fatal("dependent rows survived cascade")
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestDeleteProjectCascadesLinks(t *testing.T) {
	store := newTestStore(t)
	member := seedMember(t, store, "G", domain.FacultyDetail{Department: "CS"})
	project := seedProject(t, store, "Compilers", member.ID)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.PutAssignment(domain.Assignment{MemberID: member.ID, ProjectID: project.ID, Role: "Lead", WeeklyHours: 8}); err != nil {
			return err
		}
		grant, err := tx.CreateGrant(domain.Grant{Source: "NSF", StartDate: domain.NewDate(2024, time.January, 1), DurationMonths: 24})
		if err != nil {
			return err
		}
		_, err = tx.LinkFunding(domain.FundingLink{GrantID: grant.ID, ProjectID: project.ID})
		return err
	})
	mustNoErr(t, err)

	var summary domain.CascadeSummary
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteProject(project.ID)
		return err
	})
	mustNoErr(t, err)
	if summary.Assignments != 1 || summary.Funding != 1 {
		t.Fatalf("unexpected cascade summary: %+v", summary)
	}

	err = store.View(context.Background(), func(view TransactionView) error {
		if len(view.ListGrants()) != 1 {
			t.Fatal("grant should survive project delete")
		}
		if len(view.ListFunding()) != 0 {
			t.Fatal("funding link survived cascade")
		}
		return nil
	})
	mustNoErr(t, err)
}

func TestMentorshipRejectsSelfAndDuplicates(t *testing.T) {
	store := newTestStore(t)
	mentor := seedMember(t, store, "Mentor", domain.FacultyDetail{Department: "Biology"})
	mentee := seedMember(t, store, "Mentee", domain.StudentDetail{StudentID: "S-3", Level: domain.LevelSophomore, Major: "Biology"})

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateMentorship(domain.Mentorship{MentorID: mentor.ID, MenteeID: mentor.ID, StartDate: domain.NewDate(2024, time.January, 1)})
		return err
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for self-mentorship, got %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateMentorship(domain.Mentorship{MentorID: mentor.ID, MenteeID: mentee.ID, StartDate: domain.NewDate(2024, time.January, 1)})
		return err
	})
	mustNoErr(t, err)

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateMentorship(domain.Mentorship{MentorID: mentor.ID, MenteeID: mentee.ID, StartDate: domain.NewDate(2024, time.February, 1)})
		return err
	})
	if !domain.IsConstraint(err) {
		t.Fatalf("expected constraint error for duplicate pair, got %v", err)
	}
}

func TestLinkFundingRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	leader := seedMember(t, store, "PI", domain.FacultyDetail{Department: "Energy"})
	project := seedProject(t, store, "Funding Target", leader.ID)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		grant, err := tx.CreateGrant(domain.Grant{Source: "DOE", StartDate: domain.NewDate(2024, time.January, 1), DurationMonths: 12})
		if err != nil {
			return err
		}
		if _, err := tx.LinkFunding(domain.FundingLink{GrantID: grant.ID, ProjectID: project.ID}); err != nil {
			return err
		}
		_, err = tx.LinkFunding(domain.FundingLink{GrantID: grant.ID, ProjectID: project.ID})
		return err
	})
	if !domain.IsConstraint(err) {
		t.Fatalf("expected constraint error, got %v", err)
	}
}

func TestSnapshotRoundTripPreservesSequences(t *testing.T) {
	store := newTestStore(t)
	first := seedMember(t, store, "A", domain.FacultyDetail{Department: "Biology"})
	seedMember(t, store, "B", domain.FacultyDetail{Department: "Chemistry"})
	seedProject(t, store, "P1", first.ID)

	snapshot := store.ExportState()
	restored := newTestStore(t)
	restored.ImportState(snapshot)

	next := seedMember(t, restored, "C", domain.FacultyDetail{Department: "Physics"})
	if next.ID != 3 {
		t.Fatalf("sequence not recomputed from snapshot: got id %d", next.ID)
	}
}

func TestImportStatePrunesOrphans(t *testing.T) {
	store := newTestStore(t)
	missing := int64(42)
	store.ImportState(Snapshot{
		Members: []LabMember{{ID: 1, Name: "Kept", Type: domain.MemberFaculty, JoinDate: domain.NewDate(2023, time.January, 1), Detail: domain.FacultyDetail{Department: "Bio"}}},
		Projects: []Project{
			{ID: 1, Title: "Kept", StartDate: domain.NewDate(2024, time.January, 1), Status: domain.ProjectActive, LeaderID: &missing},
		},
		Assignments: []Assignment{
			{MemberID: 1, ProjectID: 1, Role: "Lead", WeeklyHours: 5},
			{MemberID: 9, ProjectID: 1, Role: "Ghost", WeeklyHours: 5},
		},
		Mentorships: []Mentorship{
			{MentorID: 1, MenteeID: 1, StartDate: domain.NewDate(2024, time.January, 1)},
		},
	})

	err := store.View(context.Background(), func(view TransactionView) error {
		if len(view.ListAssignments()) != 1 {
			t.Fatal("orphan assignment not pruned")
		}
		if len(view.ListMentorships()) != 0 {
			t.Fatal("self mentorship not pruned")
		}
		project, ok := view.FindProject(1)
		if !ok {
			t.Fatal("project missing")
		}
		if project.LeaderID != nil {
			t.Fatal("dangling leader reference not cleared")
		}
		return nil
	})
	mustNoErr(t, err)
}
