package reports

import (
	"context"
	"sort"
	"strings"

	"labcore/pkg/domain"
)

// EquipmentRow summarizes a piece of equipment with its count of currently
// active usage records.
type EquipmentRow struct {
	ID           int64
	Name         string
	Type         string
	PurchaseDate domain.Date
	Status       domain.EquipmentStatus
	ActiveUsers  int
}

// Equipment returns the roster ordered by equipment id.
func (e *Engine) Equipment(ctx context.Context) ([]EquipmentRow, error) {
	today := e.today()
	var rows []EquipmentRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, eq := range view.ListEquipment() {
			rows = append(rows, EquipmentRow{
				ID:           eq.ID,
				Name:         eq.Name,
				Type:         eq.Type,
				PurchaseDate: eq.PurchaseDate,
				Status:       eq.Status,
				ActiveUsers:  activeUsageCount(view, eq.ID, today),
			})
		}
		return nil
	})
	return rows, err
}

// EquipmentUserRow lists one currently active user of a piece of equipment.
type EquipmentUserRow struct {
	MemberID  int64
	Name      string
	StartDate domain.Date
	Purpose   string
}

// EquipmentOverview combines an equipment row with its active users and the
// concurrency limit.
type EquipmentOverview struct {
	Equipment   EquipmentRow
	ActiveUsers []EquipmentUserRow
	Limit       int
}

// EquipmentOverview returns the detail view for one piece of equipment; active
// users are ordered by usage start date then member id.
func (e *Engine) EquipmentOverview(ctx context.Context, id int64) (EquipmentOverview, error) {
	today := e.today()
	overview := EquipmentOverview{Limit: domain.MaxActiveEquipmentUsers}
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		eq, ok := view.FindEquipment(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityEquipment, ID: formatID(id)}
		}
		for _, u := range view.ListUsage() {
			if u.EquipmentID != id || !u.ActiveAt(today) {
				continue
			}
			member, ok := view.FindMember(u.MemberID)
			if !ok {
				continue
			}
			overview.ActiveUsers = append(overview.ActiveUsers, EquipmentUserRow{
				MemberID:  member.ID,
				Name:      member.Name,
				StartDate: u.StartDate,
				Purpose:   u.Purpose,
			})
		}
		overview.Equipment = EquipmentRow{
			ID:           eq.ID,
			Name:         eq.Name,
			Type:         eq.Type,
			PurchaseDate: eq.PurchaseDate,
			Status:       eq.Status,
			ActiveUsers:  len(overview.ActiveUsers),
		}
		return nil
	})
	sort.Slice(overview.ActiveUsers, func(i, j int) bool {
		if overview.ActiveUsers[i].StartDate != overview.ActiveUsers[j].StartDate {
			return overview.ActiveUsers[i].StartDate.Before(overview.ActiveUsers[j].StartDate)
		}
		return overview.ActiveUsers[i].MemberID < overview.ActiveUsers[j].MemberID
	})
	return overview, err
}

// EquipmentUsageRow correlates a member's equipment usage with the active
// projects they currently work on, titles deduplicated and sorted.
type EquipmentUsageRow struct {
	MemberID      int64
	MemberName    string
	EquipmentName string
	EquipmentType string
	Purpose       string
	ProjectTitles string
}

// EquipmentUsersProjects cross-references every currently active usage record
// with the active projects of its member, ordered by member name, equipment
// name, then purpose.
func (e *Engine) EquipmentUsersProjects(ctx context.Context) ([]EquipmentUsageRow, error) {
	type groupKey struct {
		memberID  int64
		equipment int64
		purpose   string
	}
	today := e.today()
	var rows []EquipmentUsageRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		activeTitles := map[int64][]string{}
		for _, a := range view.ListAssignments() {
			project, ok := view.FindProject(a.ProjectID)
			if !ok || project.Status != domain.ProjectActive {
				continue
			}
			activeTitles[a.MemberID] = append(activeTitles[a.MemberID], project.Title)
		}
		for id, titles := range activeTitles {
			sort.Strings(titles)
			activeTitles[id] = dedupSorted(titles)
		}
		grouped := map[groupKey]bool{}
		for _, u := range view.ListUsage() {
			if !u.ActiveAt(today) {
				continue
			}
			key := groupKey{memberID: u.MemberID, equipment: u.EquipmentID, purpose: u.Purpose}
			if grouped[key] {
				continue
			}
			grouped[key] = true
			member, ok := view.FindMember(u.MemberID)
			if !ok {
				continue
			}
			eq, ok := view.FindEquipment(u.EquipmentID)
			if !ok {
				continue
			}
			rows = append(rows, EquipmentUsageRow{
				MemberID:      member.ID,
				MemberName:    member.Name,
				EquipmentName: eq.Name,
				EquipmentType: eq.Type,
				Purpose:       u.Purpose,
				ProjectTitles: strings.Join(activeTitles[u.MemberID], ", "),
			})
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MemberName != rows[j].MemberName {
			return rows[i].MemberName < rows[j].MemberName
		}
		if rows[i].EquipmentName != rows[j].EquipmentName {
			return rows[i].EquipmentName < rows[j].EquipmentName
		}
		return rows[i].Purpose < rows[j].Purpose
	})
	return rows, err
}

func activeUsageCount(view domain.TransactionView, equipmentID int64, today domain.Date) int {
	count := 0
	for _, u := range view.ListUsage() {
		if u.EquipmentID == equipmentID && u.ActiveAt(today) {
			count++
		}
	}
	return count
}

func dedupSorted(sorted []string) []string {
	out := sorted[:0]
	var last string
	for i, s := range sorted {
		if i == 0 || s != last {
			out = append(out, s)
		}
		last = s
	}
	return out
}
