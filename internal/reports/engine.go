// Package reports implements the read-only query engine over the lab store.
// Every report is a pure function of a single store snapshot with
// deterministic ordering.
package reports

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"labcore/pkg/domain"
)

// Engine answers roster and analytics queries against a persistent store.
type Engine struct {
	store domain.PersistentStore
	clock func() time.Time
}

// NewEngine constructs a report engine over the given store.
func NewEngine(store domain.PersistentStore) *Engine {
	return &Engine{
		store: store,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the engine time source; tests pin the active-usage date.
func (e *Engine) SetClock(clock func() time.Time) {
	if clock != nil {
		e.clock = clock
	}
}

func (e *Engine) today() domain.Date { return domain.DateOf(e.clock()) }

// UnassignedLeader is rendered when a project has no leader on record.
const UnassignedLeader = "Unassigned"

// NoProjects is rendered when a grant funds no projects.
const NoProjects = "None"

// NoAuthors is rendered when a publication has no authors on record.
const NoAuthors = "No authors"

// MemberRow summarizes a member with the detail column coalesced across
// subtypes (department, major, or affiliation).
type MemberRow struct {
	ID       int64
	Name     string
	Type     domain.MemberType
	JoinDate domain.Date
	Details  string
}

func memberRow(m domain.LabMember) MemberRow {
	row := MemberRow{ID: m.ID, Name: m.Name, Type: m.Type, JoinDate: m.JoinDate}
	if m.Detail != nil {
		row.Details = m.Detail.Summary()
	}
	return row
}

// Members returns the full roster ordered by member id.
func (e *Engine) Members(ctx context.Context) ([]MemberRow, error) {
	var rows []MemberRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, m := range view.ListMembers() {
			rows = append(rows, memberRow(m))
		}
		return nil
	})
	return rows, err
}

// SearchMembersByName returns members whose name contains the query,
// case-insensitive, ordered by name then id.
func (e *Engine) SearchMembersByName(ctx context.Context, query string) ([]MemberRow, error) {
	needle := strings.ToLower(query)
	var rows []MemberRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, m := range view.ListMembers() {
			if strings.Contains(strings.ToLower(m.Name), needle) {
				rows = append(rows, memberRow(m))
			}
		}
		return nil
	})
	sortMemberRowsByName(rows)
	return rows, err
}

// MembersByType returns members of one subtype ordered by name then id.
func (e *Engine) MembersByType(ctx context.Context, memberType domain.MemberType) ([]MemberRow, error) {
	var rows []MemberRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, m := range view.ListMembers() {
			if m.Type == memberType {
				rows = append(rows, memberRow(m))
			}
		}
		return nil
	})
	sortMemberRowsByName(rows)
	return rows, err
}

// SearchMembersByDetail matches the coalesced detail column, case-insensitive,
// ordered by name then id.
func (e *Engine) SearchMembersByDetail(ctx context.Context, query string) ([]MemberRow, error) {
	needle := strings.ToLower(query)
	var rows []MemberRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, m := range view.ListMembers() {
			row := memberRow(m)
			if strings.Contains(strings.ToLower(row.Details), needle) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	sortMemberRowsByName(rows)
	return rows, err
}

func sortMemberRowsByName(rows []MemberRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
}

// MemberProjectRow lists one project a member works on.
type MemberProjectRow struct {
	ProjectID int64
	Title     string
	Status    domain.ProjectStatus
	Role      string
	Hours     float64
}

// MemberOverview combines a member row with the projects they work on,
// ordered by project status then title.
type MemberOverview struct {
	Member   MemberRow
	Projects []MemberProjectRow
}

// MemberOverview returns the detail view for a single member.
func (e *Engine) MemberOverview(ctx context.Context, id int64) (MemberOverview, error) {
	var overview MemberOverview
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		member, ok := view.FindMember(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(id)}
		}
		overview.Member = memberRow(member)
		for _, a := range view.ListAssignments() {
			if a.MemberID != id {
				continue
			}
			project, ok := view.FindProject(a.ProjectID)
			if !ok {
				continue
			}
			overview.Projects = append(overview.Projects, MemberProjectRow{
				ProjectID: project.ID,
				Title:     project.Title,
				Status:    project.Status,
				Role:      a.Role,
				Hours:     a.WeeklyHours,
			})
		}
		return nil
	})
	sort.Slice(overview.Projects, func(i, j int) bool {
		if overview.Projects[i].Status != overview.Projects[j].Status {
			return overview.Projects[i].Status < overview.Projects[j].Status
		}
		return overview.Projects[i].Title < overview.Projects[j].Title
	})
	return overview, err
}

// ProjectRow summarizes a project with its leader resolved to a name.
type ProjectRow struct {
	ID         int64
	Title      string
	StartDate  domain.Date
	EndDate    *domain.Date
	Status     domain.ProjectStatus
	LeaderName string
}

func projectRow(view domain.TransactionView, p domain.Project) ProjectRow {
	row := ProjectRow{
		ID:         p.ID,
		Title:      p.Title,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Status:     p.Status,
		LeaderName: UnassignedLeader,
	}
	if p.LeaderID != nil {
		if leader, ok := view.FindMember(*p.LeaderID); ok {
			row.LeaderName = leader.Name
		}
	}
	return row
}

// Projects returns the roster ordered by status then start date descending.
func (e *Engine) Projects(ctx context.Context) ([]ProjectRow, error) {
	var rows []ProjectRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		for _, p := range view.ListProjects() {
			rows = append(rows, projectRow(view, p))
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Status != rows[j].Status {
			return rows[i].Status < rows[j].Status
		}
		if rows[i].StartDate != rows[j].StartDate {
			return rows[i].StartDate.After(rows[j].StartDate)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, err
}

// TeamRow lists one member of a project team.
type TeamRow struct {
	MemberID int64
	Name     string
	Role     string
	Hours    float64
}

// ProjectOverview combines a project row with its team and funding rollup.
type ProjectOverview struct {
	Project     ProjectRow
	Team        []TeamRow
	Sources     []string
	TotalBudget float64
}

// ProjectOverview returns the detail view for a single project; the team is
// ordered by role then name, funding sources are deduplicated and sorted, and
// absent budgets count as zero.
func (e *Engine) ProjectOverview(ctx context.Context, id int64) (ProjectOverview, error) {
	var overview ProjectOverview
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		project, ok := view.FindProject(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(id)}
		}
		overview.Project = projectRow(view, project)
		for _, a := range view.ListAssignments() {
			if a.ProjectID != id {
				continue
			}
			member, ok := view.FindMember(a.MemberID)
			if !ok {
				continue
			}
			overview.Team = append(overview.Team, TeamRow{
				MemberID: member.ID,
				Name:     member.Name,
				Role:     a.Role,
				Hours:    a.WeeklyHours,
			})
		}
		seen := map[string]bool{}
		for _, link := range view.ListFunding() {
			if link.ProjectID != id {
				continue
			}
			grant, ok := view.FindGrant(link.GrantID)
			if !ok {
				continue
			}
			if !seen[grant.Source] {
				seen[grant.Source] = true
				overview.Sources = append(overview.Sources, grant.Source)
			}
			if grant.Budget != nil {
				overview.TotalBudget += *grant.Budget
			}
		}
		return nil
	})
	sort.Slice(overview.Team, func(i, j int) bool {
		if overview.Team[i].Role != overview.Team[j].Role {
			return overview.Team[i].Role < overview.Team[j].Role
		}
		return overview.Team[i].Name < overview.Team[j].Name
	})
	sort.Strings(overview.Sources)
	return overview, err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// round2 rounds to two decimal places, matching the report contract.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
