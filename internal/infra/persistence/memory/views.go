package memory

import (
	"sort"

	"labcore/pkg/domain"
)

// Listings return sorted copies so callers and rules iterate deterministically.

func (s *labState) listMembers() []LabMember {
	out := make([]LabMember, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, cloneMember(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *labState) findMember(id int64) (LabMember, bool) {
	m, ok := s.members[id]
	if !ok {
		return LabMember{}, false
	}
	return cloneMember(m), true
}

func (s *labState) listProjects() []Project {
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, cloneProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *labState) findProject(id int64) (Project, bool) {
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (s *labState) listAssignments() []Assignment {
	out := make([]Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return lessAssignment(out[i], out[j]) })
	return out
}

func (s *labState) findAssignment(key domain.AssignmentKey) (Assignment, bool) {
	a, ok := s.assignments[key]
	return a, ok
}

func (s *labState) listEquipment() []Equipment {
	out := make([]Equipment, 0, len(s.equipment))
	for _, e := range s.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *labState) findEquipment(id int64) (Equipment, bool) {
	e, ok := s.equipment[id]
	return e, ok
}

func (s *labState) listUsage() []UsageRecord {
	out := make([]UsageRecord, 0, len(s.usage))
	for _, u := range s.usage {
		out = append(out, cloneUsage(u))
	}
	sort.Slice(out, func(i, j int) bool { return lessUsage(out[i], out[j]) })
	return out
}

func (s *labState) findUsage(key domain.UsageKey) (UsageRecord, bool) {
	u, ok := s.usage[key]
	if !ok {
		return UsageRecord{}, false
	}
	return cloneUsage(u), true
}

func (s *labState) listGrants() []Grant {
	out := make([]Grant, 0, len(s.grants))
	for _, g := range s.grants {
		out = append(out, cloneGrant(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *labState) findGrant(id int64) (Grant, bool) {
	g, ok := s.grants[id]
	if !ok {
		return Grant{}, false
	}
	return cloneGrant(g), true
}

func (s *labState) listFunding() []FundingLink {
	out := make([]FundingLink, 0, len(s.funding))
	for link := range s.funding {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return lessFunding(out[i], out[j]) })
	return out
}

func (s *labState) listPublications() []Publication {
	out := make([]Publication, 0, len(s.publications))
	for _, p := range s.publications {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *labState) findPublication(id int64) (Publication, bool) {
	p, ok := s.publications[id]
	return p, ok
}

func (s *labState) listAuthorships() []Authorship {
	out := make([]Authorship, 0, len(s.authorships))
	for link := range s.authorships {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return lessAuthorship(out[i], out[j]) })
	return out
}

func (s *labState) listMentorships() []Mentorship {
	out := make([]Mentorship, 0, len(s.mentorships))
	for _, m := range s.mentorships {
		out = append(out, cloneMentorship(m))
	}
	sort.Slice(out, func(i, j int) bool { return lessMentorship(out[i], out[j]) })
	return out
}

func (s *labState) findMentorship(key domain.MentorshipKey) (Mentorship, bool) {
	m, ok := s.mentorships[key]
	if !ok {
		return Mentorship{}, false
	}
	return cloneMentorship(m), true
}

// ListMembers returns all members within the snapshot.
func (v transactionView) ListMembers() []LabMember { return v.state.listMembers() }

// FindMember retrieves a member by ID from the snapshot.
func (v transactionView) FindMember(id int64) (LabMember, bool) { return v.state.findMember(id) }

// ListProjects returns all projects within the snapshot.
func (v transactionView) ListProjects() []Project { return v.state.listProjects() }

// FindProject retrieves a project by ID from the snapshot.
func (v transactionView) FindProject(id int64) (Project, bool) { return v.state.findProject(id) }

// ListAssignments returns all assignment rows within the snapshot.
func (v transactionView) ListAssignments() []Assignment { return v.state.listAssignments() }

// FindAssignment retrieves an assignment row by its composite key.
func (v transactionView) FindAssignment(key domain.AssignmentKey) (Assignment, bool) {
	return v.state.findAssignment(key)
}

// ListEquipment returns all equipment within the snapshot.
func (v transactionView) ListEquipment() []Equipment { return v.state.listEquipment() }

// FindEquipment retrieves an equipment record by ID from the snapshot.
func (v transactionView) FindEquipment(id int64) (Equipment, bool) { return v.state.findEquipment(id) }

// ListUsage returns all usage records within the snapshot.
func (v transactionView) ListUsage() []UsageRecord { return v.state.listUsage() }

// FindUsage retrieves a usage record by its composite key.
func (v transactionView) FindUsage(key domain.UsageKey) (UsageRecord, bool) {
	return v.state.findUsage(key)
}

// ListGrants returns all grants within the snapshot.
func (v transactionView) ListGrants() []Grant { return v.state.listGrants() }

// FindGrant retrieves a grant by ID from the snapshot.
func (v transactionView) FindGrant(id int64) (Grant, bool) { return v.state.findGrant(id) }

// ListFunding returns all funding links within the snapshot.
func (v transactionView) ListFunding() []FundingLink { return v.state.listFunding() }

// ListPublications returns all publications within the snapshot.
func (v transactionView) ListPublications() []Publication { return v.state.listPublications() }

// FindPublication retrieves a publication by ID from the snapshot.
func (v transactionView) FindPublication(id int64) (Publication, bool) {
	return v.state.findPublication(id)
}

// ListAuthorships returns all authorship links within the snapshot.
func (v transactionView) ListAuthorships() []Authorship { return v.state.listAuthorships() }

// ListMentorships returns all mentorships within the snapshot.
func (v transactionView) ListMentorships() []Mentorship { return v.state.listMentorships() }

// FindMentorship retrieves a mentorship by its composite key.
func (v transactionView) FindMentorship(key domain.MentorshipKey) (Mentorship, bool) {
	return v.state.findMentorship(key)
}

// ListMembers exposes the member listing within the transaction scope.
func (tx *transaction) ListMembers() []LabMember { return tx.state.listMembers() }

// FindMember exposes member lookup within the transaction scope.
func (tx *transaction) FindMember(id int64) (LabMember, bool) { return tx.state.findMember(id) }

// ListProjects exposes the project listing within the transaction scope.
func (tx *transaction) ListProjects() []Project { return tx.state.listProjects() }

// FindProject exposes project lookup within the transaction scope.
func (tx *transaction) FindProject(id int64) (Project, bool) { return tx.state.findProject(id) }

// ListAssignments exposes the assignment listing within the transaction scope.
func (tx *transaction) ListAssignments() []Assignment { return tx.state.listAssignments() }

// FindAssignment exposes assignment lookup within the transaction scope.
func (tx *transaction) FindAssignment(key domain.AssignmentKey) (Assignment, bool) {
	return tx.state.findAssignment(key)
}

// ListEquipment exposes the equipment listing within the transaction scope.
func (tx *transaction) ListEquipment() []Equipment { return tx.state.listEquipment() }

// FindEquipment exposes equipment lookup within the transaction scope.
func (tx *transaction) FindEquipment(id int64) (Equipment, bool) { return tx.state.findEquipment(id) }

// ListUsage exposes the usage listing within the transaction scope.
func (tx *transaction) ListUsage() []UsageRecord { return tx.state.listUsage() }

// FindUsage exposes usage lookup within the transaction scope.
func (tx *transaction) FindUsage(key domain.UsageKey) (UsageRecord, bool) {
	return tx.state.findUsage(key)
}

// ListGrants exposes the grant listing within the transaction scope.
func (tx *transaction) ListGrants() []Grant { return tx.state.listGrants() }

// FindGrant exposes grant lookup within the transaction scope.
func (tx *transaction) FindGrant(id int64) (Grant, bool) { return tx.state.findGrant(id) }

// ListFunding exposes the funding listing within the transaction scope.
func (tx *transaction) ListFunding() []FundingLink { return tx.state.listFunding() }

// ListPublications exposes the publication listing within the transaction scope.
func (tx *transaction) ListPublications() []Publication { return tx.state.listPublications() }

// FindPublication exposes publication lookup within the transaction scope.
func (tx *transaction) FindPublication(id int64) (Publication, bool) {
	return tx.state.findPublication(id)
}

// ListAuthorships exposes the authorship listing within the transaction scope.
func (tx *transaction) ListAuthorships() []Authorship { return tx.state.listAuthorships() }

// ListMentorships exposes the mentorship listing within the transaction scope.
func (tx *transaction) ListMentorships() []Mentorship { return tx.state.listMentorships() }

// FindMentorship exposes mentorship lookup within the transaction scope.
func (tx *transaction) FindMentorship(key domain.MentorshipKey) (Mentorship, bool) {
	return tx.state.findMentorship(key)
}
