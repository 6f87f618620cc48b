package reports

import (
	"context"
	"sort"
	"strings"

	"labcore/pkg/domain"
)

// GrantRow summarizes a grant with the titles of the projects it funds.
type GrantRow struct {
	ID             int64
	Source         string
	Budget         *float64
	StartDate      domain.Date
	DurationMonths int
	Projects       string
}

// Grants returns the roster ordered by start date descending then id; funded
// project titles are deduplicated and sorted, with NoProjects when the grant
// funds nothing.
func (e *Engine) Grants(ctx context.Context) ([]GrantRow, error) {
	var rows []GrantRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		titles := map[int64][]string{}
		for _, link := range view.ListFunding() {
			project, ok := view.FindProject(link.ProjectID)
			if !ok {
				continue
			}
			titles[link.GrantID] = append(titles[link.GrantID], project.Title)
		}
		for _, g := range view.ListGrants() {
			projects := NoProjects
			if funded := titles[g.ID]; len(funded) > 0 {
				sort.Strings(funded)
				projects = strings.Join(dedupSorted(funded), ", ")
			}
			rows = append(rows, GrantRow{
				ID:             g.ID,
				Source:         g.Source,
				Budget:         g.Budget,
				StartDate:      g.StartDate,
				DurationMonths: g.DurationMonths,
				Projects:       projects,
			})
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StartDate != rows[j].StartDate {
			return rows[i].StartDate.After(rows[j].StartDate)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, err
}

// PublicationRow summarizes a publication with its author names joined.
type PublicationRow struct {
	ID      int64
	Title   string
	Date    domain.Date
	Venue   string
	Authors string
}

// Publications returns the roster ordered by publication date descending then
// id; author names are sorted, with NoAuthors when none are recorded.
func (e *Engine) Publications(ctx context.Context) ([]PublicationRow, error) {
	var rows []PublicationRow
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		names := map[int64][]string{}
		for _, a := range view.ListAuthorships() {
			member, ok := view.FindMember(a.MemberID)
			if !ok {
				continue
			}
			names[a.PublicationID] = append(names[a.PublicationID], member.Name)
		}
		for _, p := range view.ListPublications() {
			authors := NoAuthors
			if authored := names[p.ID]; len(authored) > 0 {
				sort.Strings(authored)
				authors = strings.Join(authored, ", ")
			}
			rows = append(rows, PublicationRow{
				ID:      p.ID,
				Title:   p.Title,
				Date:    p.Date,
				Venue:   p.Venue,
				Authors: authors,
			})
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, err
}
