package reports

import (
	"context"
	"sort"
	"strings"

	"labcore/pkg/domain"
)

// TopContributorLimit caps the per-grant contributor ranking.
const TopContributorLimit = 3

// PublicationCountRow pairs a member with their distinct publication count.
type PublicationCountRow struct {
	MemberID     int64
	Name         string
	Type         domain.MemberType
	Publications int
}

// MostPublished returns every member holding the maximum publication count,
// including a zero maximum when nobody has published, ordered by name then id.
func (e *Engine) MostPublished(ctx context.Context) ([]PublicationCountRow, error) {
	var rows []PublicationCountRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		counts := publicationCounts(view)
		max := 0
		for _, m := range view.ListMembers() {
			if counts[m.ID] > max {
				max = counts[m.ID]
			}
		}
		for _, m := range view.ListMembers() {
			if counts[m.ID] == max {
				rows = append(rows, PublicationCountRow{MemberID: m.ID, Name: m.Name, Type: m.Type, Publications: max})
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows, err
}

// MajorAverageRow aggregates student publication output by declared major.
type MajorAverageRow struct {
	Major        string
	Students     int
	Publications int
	Average      float64
}

// AveragePublicationsByMajor averages distinct publication counts across the
// students of each major, rounded to two decimals, ordered by average
// descending then major ascending.
func (e *Engine) AveragePublicationsByMajor(ctx context.Context) ([]MajorAverageRow, error) {
	var rows []MajorAverageRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		counts := publicationCounts(view)
		byMajor := map[string]*MajorAverageRow{}
		for _, m := range view.ListMembers() {
			student, ok := m.Detail.(domain.StudentDetail)
			if !ok {
				continue
			}
			row := byMajor[student.Major]
			if row == nil {
				row = &MajorAverageRow{Major: student.Major}
				byMajor[student.Major] = row
			}
			row.Students++
			row.Publications += counts[m.ID]
		}
		for _, row := range byMajor {
			row.Average = round2(float64(row.Publications) / float64(row.Students))
			rows = append(rows, *row)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Average != rows[j].Average {
			return rows[i].Average > rows[j].Average
		}
		return rows[i].Major < rows[j].Major
	})
	return rows, err
}

// FundedProjectRow lists one project funded during a reporting period with
// its deduplicated grant sources.
type FundedProjectRow struct {
	ProjectID int64
	Title     string
	StartDate domain.Date
	EndDate   *domain.Date
	Status    domain.ProjectStatus
	Sources   string
}

// FundedProjectsReport carries the period roster and its distinct project
// count.
type FundedProjectsReport struct {
	Count int
	Rows  []FundedProjectRow
}

// FundedProjectsInPeriod returns projects holding at least one grant whose
// active interval overlaps [start, end], deduplicated and ordered by title.
func (e *Engine) FundedProjectsInPeriod(ctx context.Context, start, end domain.Date) (FundedProjectsReport, error) {
	if end.Before(start) {
		return FundedProjectsReport{}, domain.ErrInvalidRange{Field: "period", Reason: "end precedes start"}
	}
	var report FundedProjectsReport
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		sources := map[int64][]string{}
		for _, link := range view.ListFunding() {
			grant, ok := view.FindGrant(link.GrantID)
			if !ok {
				continue
			}
			sources[link.ProjectID] = append(sources[link.ProjectID], grant.Source)
		}
		for _, p := range view.ListProjects() {
			grantSources, funded := sources[p.ID]
			if !funded || !p.OverlapsPeriod(start, end) {
				continue
			}
			sort.Strings(grantSources)
			report.Rows = append(report.Rows, FundedProjectRow{
				ProjectID: p.ID,
				Title:     p.Title,
				StartDate: p.StartDate,
				EndDate:   p.EndDate,
				Status:    p.Status,
				Sources:   strings.Join(dedupSorted(grantSources), ", "),
			})
		}
		return nil
	})
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Title != report.Rows[j].Title {
			return report.Rows[i].Title < report.Rows[j].Title
		}
		return report.Rows[i].ProjectID < report.Rows[j].ProjectID
	})
	report.Count = len(report.Rows)
	return report, err
}

// TopContributorsByGrant ranks the members assigned to a grant's projects by
// distinct publication count descending, member id ascending on ties,
// truncated to TopContributorLimit.
func (e *Engine) TopContributorsByGrant(ctx context.Context, grantID int64) ([]PublicationCountRow, error) {
	var rows []PublicationCountRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindGrant(grantID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityGrant, ID: formatID(grantID)}
		}
		projects := map[int64]bool{}
		for _, link := range view.ListFunding() {
			if link.GrantID == grantID {
				projects[link.ProjectID] = true
			}
		}
		members := map[int64]bool{}
		for _, a := range view.ListAssignments() {
			if projects[a.ProjectID] {
				members[a.MemberID] = true
			}
		}
		counts := publicationCounts(view)
		for _, m := range view.ListMembers() {
			if members[m.ID] {
				rows = append(rows, PublicationCountRow{MemberID: m.ID, Name: m.Name, Type: m.Type, Publications: counts[m.ID]})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Publications != rows[j].Publications {
			return rows[i].Publications > rows[j].Publications
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	if len(rows) > TopContributorLimit {
		rows = rows[:TopContributorLimit]
	}
	return rows, nil
}

// GrantMemberRow pairs a member with the funded project they work on.
type GrantMemberRow struct {
	MemberID     int64
	MemberName   string
	ProjectTitle string
	Role         string
}

// MembersByGrant lists every member assigned to a project the grant funds,
// ordered by project title then member name.
func (e *Engine) MembersByGrant(ctx context.Context, grantID int64) ([]GrantMemberRow, error) {
	var rows []GrantMemberRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindGrant(grantID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityGrant, ID: formatID(grantID)}
		}
		funded := map[int64]bool{}
		for _, link := range view.ListFunding() {
			if link.GrantID == grantID {
				funded[link.ProjectID] = true
			}
		}
		for _, a := range view.ListAssignments() {
			if !funded[a.ProjectID] {
				continue
			}
			member, ok := view.FindMember(a.MemberID)
			if !ok {
				continue
			}
			project, ok := view.FindProject(a.ProjectID)
			if !ok {
				continue
			}
			rows = append(rows, GrantMemberRow{
				MemberID:     member.ID,
				MemberName:   member.Name,
				ProjectTitle: project.Title,
				Role:         a.Role,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProjectTitle != rows[j].ProjectTitle {
			return rows[i].ProjectTitle < rows[j].ProjectTitle
		}
		if rows[i].MemberName != rows[j].MemberName {
			return rows[i].MemberName < rows[j].MemberName
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows, nil
}

// ProjectMentorshipRow lists one mentorship whose parties both work on the
// project.
type ProjectMentorshipRow struct {
	MentorID   int64
	MentorName string
	MentorType domain.MemberType
	MenteeID   int64
	MenteeName string
	MenteeType domain.MemberType
	StartDate  domain.Date
	EndDate    *domain.Date
}

// MentorshipsByProject returns mentorships where mentor and mentee are both
// assigned to the project, ordered by mentor name then mentee name.
func (e *Engine) MentorshipsByProject(ctx context.Context, projectID int64) ([]ProjectMentorshipRow, error) {
	var rows []ProjectMentorshipRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindProject(projectID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(projectID)}
		}
		assigned := map[int64]bool{}
		for _, a := range view.ListAssignments() {
			if a.ProjectID == projectID {
				assigned[a.MemberID] = true
			}
		}
		for _, m := range view.ListMentorships() {
			if !assigned[m.MentorID] || !assigned[m.MenteeID] {
				continue
			}
			mentor, ok := view.FindMember(m.MentorID)
			if !ok {
				continue
			}
			mentee, ok := view.FindMember(m.MenteeID)
			if !ok {
				continue
			}
			rows = append(rows, ProjectMentorshipRow{
				MentorID:   mentor.ID,
				MentorName: mentor.Name,
				MentorType: mentor.Type,
				MenteeID:   mentee.ID,
				MenteeName: mentee.Name,
				MenteeType: mentee.Type,
				StartDate:  m.StartDate,
				EndDate:    m.EndDate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MentorName != rows[j].MentorName {
			return rows[i].MentorName < rows[j].MentorName
		}
		return rows[i].MenteeName < rows[j].MenteeName
	})
	return rows, nil
}

// publicationCounts tallies distinct publications per member.
func publicationCounts(view domain.TransactionView) map[int64]int {
	counts := map[int64]int{}
	for _, a := range view.ListAuthorships() {
		counts[a.MemberID]++
	}
	return counts
}
