// Package memory provides the authoritative in-memory transactional store for
// the lab domain. Durable backends wrap it and persist snapshots on commit.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"labcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// LabMember aliases domain.LabMember for in-memory persistence operations.
	LabMember = domain.LabMember
	// Project aliases domain.Project.
	Project = domain.Project
	// Assignment aliases domain.Assignment.
	Assignment = domain.Assignment
	// Equipment aliases domain.Equipment.
	Equipment = domain.Equipment
	// UsageRecord aliases domain.UsageRecord.
	UsageRecord = domain.UsageRecord
	// Grant aliases domain.Grant.
	Grant = domain.Grant
	// FundingLink aliases domain.FundingLink.
	FundingLink = domain.FundingLink
	// Publication aliases domain.Publication.
	Publication = domain.Publication
	// Authorship aliases domain.Authorship.
	Authorship = domain.Authorship
	// Mentorship aliases domain.Mentorship.
	Mentorship = domain.Mentorship
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type labState struct {
	members      map[int64]LabMember
	projects     map[int64]Project
	assignments  map[domain.AssignmentKey]Assignment
	equipment    map[int64]Equipment
	usage        map[domain.UsageKey]UsageRecord
	grants       map[int64]Grant
	funding      map[FundingLink]struct{}
	publications map[int64]Publication
	authorships  map[Authorship]struct{}
	mentorships  map[domain.MentorshipKey]Mentorship

	seq map[domain.EntityType]int64
}

// Snapshot captures a point-in-time clone of the store state. Link rows are
// serialized as slices because their composite keys cannot be JSON map keys.
type Snapshot struct {
	Members      []LabMember   `json:"members"`
	Projects     []Project     `json:"projects"`
	Assignments  []Assignment  `json:"assignments"`
	Equipment    []Equipment   `json:"equipment"`
	Usage        []UsageRecord `json:"usage"`
	Grants       []Grant       `json:"grants"`
	Funding      []FundingLink `json:"funding"`
	Publications []Publication `json:"publications"`
	Authorships  []Authorship  `json:"authorships"`
	Mentorships  []Mentorship  `json:"mentorships"`
}

func newLabState() labState {
	return labState{
		members:      make(map[int64]LabMember),
		projects:     make(map[int64]Project),
		assignments:  make(map[domain.AssignmentKey]Assignment),
		equipment:    make(map[int64]Equipment),
		usage:        make(map[domain.UsageKey]UsageRecord),
		grants:       make(map[int64]Grant),
		funding:      make(map[FundingLink]struct{}),
		publications: make(map[int64]Publication),
		authorships:  make(map[Authorship]struct{}),
		mentorships:  make(map[domain.MentorshipKey]Mentorship),
		seq:          make(map[domain.EntityType]int64),
	}
}

func cloneMember(m LabMember) LabMember {
	cp := m
	if d, ok := m.Detail.(domain.CollaboratorDetail); ok {
		if d.Biography != nil {
			bio := *d.Biography
			d.Biography = &bio
		}
		cp.Detail = d
	}
	return cp
}

func cloneProject(p Project) Project {
	cp := p
	if p.EndDate != nil {
		end := *p.EndDate
		cp.EndDate = &end
	}
	if p.LeaderID != nil {
		leader := *p.LeaderID
		cp.LeaderID = &leader
	}
	return cp
}

func cloneUsage(u UsageRecord) UsageRecord {
	cp := u
	if u.EndDate != nil {
		end := *u.EndDate
		cp.EndDate = &end
	}
	return cp
}

func cloneGrant(g Grant) Grant {
	cp := g
	if g.Budget != nil {
		budget := *g.Budget
		cp.Budget = &budget
	}
	return cp
}

func cloneMentorship(m Mentorship) Mentorship {
	cp := m
	if m.EndDate != nil {
		end := *m.EndDate
		cp.EndDate = &end
	}
	return cp
}

func (s labState) clone() labState {
	cloned := newLabState()
	for k, v := range s.members {
		cloned.members[k] = cloneMember(v)
	}
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.assignments {
		cloned.assignments[k] = v
	}
	for k, v := range s.equipment {
		cloned.equipment[k] = v
	}
	for k, v := range s.usage {
		cloned.usage[k] = cloneUsage(v)
	}
	for k, v := range s.grants {
		cloned.grants[k] = cloneGrant(v)
	}
	for k := range s.funding {
		cloned.funding[k] = struct{}{}
	}
	for k, v := range s.publications {
		cloned.publications[k] = v
	}
	for k := range s.authorships {
		cloned.authorships[k] = struct{}{}
	}
	for k, v := range s.mentorships {
		cloned.mentorships[k] = cloneMentorship(v)
	}
	for k, v := range s.seq {
		cloned.seq[k] = v
	}
	return cloned
}

func snapshotFromLabState(state labState) Snapshot {
	var s Snapshot
	for _, v := range state.members {
		s.Members = append(s.Members, cloneMember(v))
	}
	for _, v := range state.projects {
		s.Projects = append(s.Projects, cloneProject(v))
	}
	for _, v := range state.assignments {
		s.Assignments = append(s.Assignments, v)
	}
	for _, v := range state.equipment {
		s.Equipment = append(s.Equipment, v)
	}
	for _, v := range state.usage {
		s.Usage = append(s.Usage, cloneUsage(v))
	}
	for _, v := range state.grants {
		s.Grants = append(s.Grants, cloneGrant(v))
	}
	for link := range state.funding {
		s.Funding = append(s.Funding, link)
	}
	for _, v := range state.publications {
		s.Publications = append(s.Publications, v)
	}
	for link := range state.authorships {
		s.Authorships = append(s.Authorships, link)
	}
	for _, v := range state.mentorships {
		s.Mentorships = append(s.Mentorships, cloneMentorship(v))
	}
	sort.Slice(s.Members, func(i, j int) bool { return s.Members[i].ID < s.Members[j].ID })
	sort.Slice(s.Projects, func(i, j int) bool { return s.Projects[i].ID < s.Projects[j].ID })
	sort.Slice(s.Assignments, func(i, j int) bool { return lessAssignment(s.Assignments[i], s.Assignments[j]) })
	sort.Slice(s.Equipment, func(i, j int) bool { return s.Equipment[i].ID < s.Equipment[j].ID })
	sort.Slice(s.Usage, func(i, j int) bool { return lessUsage(s.Usage[i], s.Usage[j]) })
	sort.Slice(s.Grants, func(i, j int) bool { return s.Grants[i].ID < s.Grants[j].ID })
	sort.Slice(s.Funding, func(i, j int) bool { return lessFunding(s.Funding[i], s.Funding[j]) })
	sort.Slice(s.Publications, func(i, j int) bool { return s.Publications[i].ID < s.Publications[j].ID })
	sort.Slice(s.Authorships, func(i, j int) bool { return lessAuthorship(s.Authorships[i], s.Authorships[j]) })
	sort.Slice(s.Mentorships, func(i, j int) bool { return lessMentorship(s.Mentorships[i], s.Mentorships[j]) })
	return s
}

func lessAssignment(a, b Assignment) bool {
	if a.MemberID != b.MemberID {
		return a.MemberID < b.MemberID
	}
	return a.ProjectID < b.ProjectID
}

func lessUsage(a, b UsageRecord) bool {
	if a.EquipmentID != b.EquipmentID {
		return a.EquipmentID < b.EquipmentID
	}
	if a.MemberID != b.MemberID {
		return a.MemberID < b.MemberID
	}
	return a.StartDate.Before(b.StartDate)
}

func lessFunding(a, b FundingLink) bool {
	if a.GrantID != b.GrantID {
		return a.GrantID < b.GrantID
	}
	return a.ProjectID < b.ProjectID
}

func lessAuthorship(a, b Authorship) bool {
	if a.MemberID != b.MemberID {
		return a.MemberID < b.MemberID
	}
	return a.PublicationID < b.PublicationID
}

func lessMentorship(a, b Mentorship) bool {
	if a.MentorID != b.MentorID {
		return a.MentorID < b.MentorID
	}
	return a.MenteeID < b.MenteeID
}

func labStateFromSnapshot(s Snapshot) labState {
	state := newLabState()
	for _, v := range s.Members {
		state.members[v.ID] = cloneMember(v)
	}
	for _, v := range s.Projects {
		state.projects[v.ID] = cloneProject(v)
	}
	for _, v := range s.Assignments {
		state.assignments[v.Key()] = v
	}
	for _, v := range s.Equipment {
		state.equipment[v.ID] = v
	}
	for _, v := range s.Usage {
		state.usage[v.Key()] = cloneUsage(v)
	}
	for _, v := range s.Grants {
		state.grants[v.ID] = cloneGrant(v)
	}
	for _, link := range s.Funding {
		state.funding[link] = struct{}{}
	}
	for _, v := range s.Publications {
		state.publications[v.ID] = v
	}
	for _, link := range s.Authorships {
		state.authorships[link] = struct{}{}
	}
	for _, v := range s.Mentorships {
		state.mentorships[v.Key()] = cloneMentorship(v)
	}
	state.seq[domain.EntityMember] = maxMemberID(state)
	state.seq[domain.EntityProject] = maxProjectID(state)
	state.seq[domain.EntityEquipment] = maxEquipmentID(state)
	state.seq[domain.EntityGrant] = maxGrantID(state)
	state.seq[domain.EntityPublication] = maxPublicationID(state)
	return state
}

func maxMemberID(state labState) int64 {
	var max int64
	for id := range state.members {
		if id > max {
			max = id
		}
	}
	return max
}

func maxProjectID(state labState) int64 {
	var max int64
	for id := range state.projects {
		if id > max {
			max = id
		}
	}
	return max
}

func maxEquipmentID(state labState) int64 {
	var max int64
	for id := range state.equipment {
		if id > max {
			max = id
		}
	}
	return max
}

func maxGrantID(state labState) int64 {
	var max int64
	for id := range state.grants {
		if id > max {
			max = id
		}
	}
	return max
}

func maxPublicationID(state labState) int64 {
	var max int64
	for id := range state.publications {
		if id > max {
			max = id
		}
	}
	return max
}

// migrateSnapshot prunes rows whose parents are missing so older snapshots
// load without dangling references.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	members := make(map[int64]struct{}, len(snapshot.Members))
	for _, m := range snapshot.Members {
		members[m.ID] = struct{}{}
	}
	projects := make(map[int64]struct{}, len(snapshot.Projects))
	for _, p := range snapshot.Projects {
		projects[p.ID] = struct{}{}
	}
	equipment := make(map[int64]struct{}, len(snapshot.Equipment))
	for _, e := range snapshot.Equipment {
		equipment[e.ID] = struct{}{}
	}
	grants := make(map[int64]struct{}, len(snapshot.Grants))
	for _, g := range snapshot.Grants {
		grants[g.ID] = struct{}{}
	}
	publications := make(map[int64]struct{}, len(snapshot.Publications))
	for _, p := range snapshot.Publications {
		publications[p.ID] = struct{}{}
	}

	memberExists := func(id int64) bool { _, ok := members[id]; return ok }
	projectExists := func(id int64) bool { _, ok := projects[id]; return ok }

	for i, p := range snapshot.Projects {
		if p.LeaderID != nil && !memberExists(*p.LeaderID) {
			p.LeaderID = nil
			snapshot.Projects[i] = p
		}
	}

	var assignments []Assignment
	for _, a := range snapshot.Assignments {
		if memberExists(a.MemberID) && projectExists(a.ProjectID) {
			assignments = append(assignments, a)
		}
	}
	snapshot.Assignments = assignments

	var usage []UsageRecord
	for _, u := range snapshot.Usage {
		if _, ok := equipment[u.EquipmentID]; ok && memberExists(u.MemberID) {
			usage = append(usage, u)
		}
	}
	snapshot.Usage = usage

	var funding []FundingLink
	for _, f := range snapshot.Funding {
		if _, ok := grants[f.GrantID]; ok && projectExists(f.ProjectID) {
			funding = append(funding, f)
		}
	}
	snapshot.Funding = funding

	var authorships []Authorship
	for _, a := range snapshot.Authorships {
		if _, ok := publications[a.PublicationID]; ok && memberExists(a.MemberID) {
			authorships = append(authorships, a)
		}
	}
	snapshot.Authorships = authorships

	var mentorships []Mentorship
	for _, m := range snapshot.Mentorships {
		if memberExists(m.MentorID) && memberExists(m.MenteeID) && m.MentorID != m.MenteeID {
			mentorships = append(mentorships, m)
		}
	}
	snapshot.Mentorships = mentorships

	return snapshot
}

// Store provides an in-memory transactional store for the lab domain.
type Store struct {
	mu     sync.RWMutex
	state  labState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newLabState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the store's time provider; tests use this to pin the
// capacity check date.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromLabState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = labStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Close releases the store; the in-memory backend holds no resources.
func (s *Store) Close() error { return nil }

type transaction struct {
	store   *Store
	state   labState
	changes []Change
	today   domain.Date
}

type transactionView struct {
	state *labState
}

func newTransactionView(state *labState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		today: domain.DateOf(s.nowFn()),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) nextID(entity domain.EntityType) int64 {
	tx.state.seq[entity]++
	return tx.state.seq[entity]
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func validateMember(m LabMember) error {
	if m.Name == "" {
		return domain.ErrValidation{Reason: "member requires a name"}
	}
	if !m.Type.Valid() {
		return domain.ErrValidation{Reason: "member has an unknown type"}
	}
	if m.JoinDate.IsZero() {
		return domain.ErrValidation{Reason: "member requires a join date"}
	}
	if m.Detail == nil {
		return domain.ErrValidation{Reason: "member requires a detail record"}
	}
	if m.Detail.Kind() != m.Type {
		return domain.ErrValidation{Reason: "member detail does not match member type"}
	}
	return m.Detail.Validate()
}

// CreateMember stores a new lab member with its detail variant.
func (tx *transaction) CreateMember(m LabMember) (LabMember, error) {
	if err := validateMember(m); err != nil {
		return LabMember{}, err
	}
	if m.ID == 0 {
		m.ID = tx.nextID(domain.EntityMember)
	} else if _, exists := tx.state.members[m.ID]; exists {
		return LabMember{}, domain.ErrConstraint{Constraint: "member_pk", Reason: "member id already exists"}
	} else if m.ID > tx.state.seq[domain.EntityMember] {
		tx.state.seq[domain.EntityMember] = m.ID
	}
	tx.state.members[m.ID] = cloneMember(m)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionCreate, After: cloneMember(m)})
	return cloneMember(m), nil
}

// UpdateMember mutates an existing member; type changes swap the detail
// variant in the same commit.
func (tx *transaction) UpdateMember(id int64, mutate func(*LabMember) error) (LabMember, error) {
	current, ok := tx.state.members[id]
	if !ok {
		return LabMember{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(id)}
	}
	before := cloneMember(current)
	if err := mutate(&current); err != nil {
		return LabMember{}, err
	}
	current.ID = id
	if err := validateMember(current); err != nil {
		return LabMember{}, err
	}
	tx.state.members[id] = cloneMember(current)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionUpdate, Before: before, After: cloneMember(current)})
	return cloneMember(current), nil
}

// DeleteMember removes a member along with its dependent rows and clears
// leadership of any project the member led.
func (tx *transaction) DeleteMember(id int64) (domain.CascadeSummary, error) {
	current, ok := tx.state.members[id]
	if !ok {
		return domain.CascadeSummary{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(id)}
	}

	summary := domain.CascadeSummary{DetailRows: 1}

	for key, a := range tx.state.assignments {
		if key.MemberID == id {
			delete(tx.state.assignments, key)
			tx.recordChange(Change{Entity: domain.EntityAssignment, Action: domain.ActionDelete, Before: a})
			summary.Assignments++
		}
	}
	for key, u := range tx.state.usage {
		if key.MemberID == id {
			delete(tx.state.usage, key)
			tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionDelete, Before: cloneUsage(u)})
			summary.Usage++
		}
	}
	for link := range tx.state.authorships {
		if link.MemberID == id {
			delete(tx.state.authorships, link)
			tx.recordChange(Change{Entity: domain.EntityAuthorship, Action: domain.ActionDelete, Before: link})
			summary.Authorships++
		}
	}
	for key, m := range tx.state.mentorships {
		if key.MentorID == id || key.MenteeID == id {
			delete(tx.state.mentorships, key)
			tx.recordChange(Change{Entity: domain.EntityMentorship, Action: domain.ActionDelete, Before: cloneMentorship(m)})
			summary.Mentorships++
		}
	}
	for pid, p := range tx.state.projects {
		if p.LeaderID != nil && *p.LeaderID == id {
			before := cloneProject(p)
			p.LeaderID = nil
			tx.state.projects[pid] = p
			tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(p)})
			summary.LedProjects++
		}
	}

	delete(tx.state.members, id)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionDelete, Before: cloneMember(current)})
	return summary, nil
}

func (tx *transaction) validateProject(p Project) error {
	if p.Title == "" {
		return domain.ErrValidation{Reason: "project requires a title"}
	}
	if p.StartDate.IsZero() {
		return domain.ErrValidation{Reason: "project requires a start date"}
	}
	if !p.Status.Valid() {
		return domain.ErrValidation{Reason: "project has an unknown status"}
	}
	if p.DurationMonths < 1 {
		return domain.ErrInvalidRange{Field: "expected_duration_months", Reason: "must be at least one month"}
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	if p.LeaderID != nil {
		leader, ok := tx.state.members[*p.LeaderID]
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(*p.LeaderID)}
		}
		if leader.Type != domain.MemberFaculty {
			return domain.ErrValidation{Reason: "project leader must be a faculty member"}
		}
	}
	return nil
}

// CreateProject stores a new project. A faculty leader is required at
// creation; the reference only becomes empty when that member is later
// deleted.
func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.LeaderID == nil {
		return Project{}, domain.ErrValidation{Reason: "project requires a faculty leader"}
	}
	if err := tx.validateProject(p); err != nil {
		return Project{}, err
	}
	if p.ID == 0 {
		p.ID = tx.nextID(domain.EntityProject)
	} else if _, exists := tx.state.projects[p.ID]; exists {
		return Project{}, domain.ErrConstraint{Constraint: "project_pk", Reason: "project id already exists"}
	} else if p.ID > tx.state.seq[domain.EntityProject] {
		tx.state.seq[domain.EntityProject] = p.ID
	}
	tx.state.projects[p.ID] = cloneProject(p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)})
	return cloneProject(p), nil
}

// UpdateProject mutates an existing project.
func (tx *transaction) UpdateProject(id int64, mutate func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return Project{}, domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(id)}
	}
	before := cloneProject(current)
	if err := mutate(&current); err != nil {
		return Project{}, err
	}
	current.ID = id
	if err := tx.validateProject(current); err != nil {
		return Project{}, err
	}
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// DeleteProject removes a project along with its assignments and funding links.
func (tx *transaction) DeleteProject(id int64) (domain.CascadeSummary, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return domain.CascadeSummary{}, domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(id)}
	}

	var summary domain.CascadeSummary
	for key, a := range tx.state.assignments {
		if key.ProjectID == id {
			delete(tx.state.assignments, key)
			tx.recordChange(Change{Entity: domain.EntityAssignment, Action: domain.ActionDelete, Before: a})
			summary.Assignments++
		}
	}
	for link := range tx.state.funding {
		if link.ProjectID == id {
			delete(tx.state.funding, link)
			tx.recordChange(Change{Entity: domain.EntityFunding, Action: domain.ActionDelete, Before: link})
			summary.Funding++
		}
	}

	delete(tx.state.projects, id)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: cloneProject(current)})
	return summary, nil
}

// PutAssignment creates or replaces the assignment row for the pair.
func (tx *transaction) PutAssignment(a Assignment) (Assignment, error) {
	if _, ok := tx.state.members[a.MemberID]; !ok {
		return Assignment{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(a.MemberID)}
	}
	if _, ok := tx.state.projects[a.ProjectID]; !ok {
		return Assignment{}, domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(a.ProjectID)}
	}
	if a.Role == "" {
		return Assignment{}, domain.ErrValidation{Reason: "assignment requires a role"}
	}
	if a.WeeklyHours < 0 || a.WeeklyHours > domain.MaxWeeklyAssignmentHours {
		return Assignment{}, domain.ErrValidation{Reason: "weekly hours must be between 0 and 168"}
	}
	key := a.Key()
	if existing, ok := tx.state.assignments[key]; ok {
		tx.state.assignments[key] = a
		tx.recordChange(Change{Entity: domain.EntityAssignment, Action: domain.ActionUpdate, Before: existing, After: a})
	} else {
		tx.state.assignments[key] = a
		tx.recordChange(Change{Entity: domain.EntityAssignment, Action: domain.ActionCreate, After: a})
	}
	return a, nil
}

// DeleteAssignment removes the assignment row for the pair.
func (tx *transaction) DeleteAssignment(key domain.AssignmentKey) error {
	current, ok := tx.state.assignments[key]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityAssignment, ID: formatID(key.MemberID) + "/" + formatID(key.ProjectID)}
	}
	delete(tx.state.assignments, key)
	tx.recordChange(Change{Entity: domain.EntityAssignment, Action: domain.ActionDelete, Before: current})
	return nil
}

func validateEquipment(e Equipment) error {
	if e.Name == "" {
		return domain.ErrValidation{Reason: "equipment requires a name"}
	}
	if e.Type == "" {
		return domain.ErrValidation{Reason: "equipment requires a type"}
	}
	if !e.Status.Valid() {
		return domain.ErrValidation{Reason: "equipment has an unknown status"}
	}
	return nil
}

// CreateEquipment stores a new equipment record.
func (tx *transaction) CreateEquipment(e Equipment) (Equipment, error) {
	if err := validateEquipment(e); err != nil {
		return Equipment{}, err
	}
	if e.ID == 0 {
		e.ID = tx.nextID(domain.EntityEquipment)
	} else if _, exists := tx.state.equipment[e.ID]; exists {
		return Equipment{}, domain.ErrConstraint{Constraint: "equipment_pk", Reason: "equipment id already exists"}
	} else if e.ID > tx.state.seq[domain.EntityEquipment] {
		tx.state.seq[domain.EntityEquipment] = e.ID
	}
	tx.state.equipment[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionCreate, After: e})
	return e, nil
}

// UpdateEquipment mutates an existing equipment record.
func (tx *transaction) UpdateEquipment(id int64, mutate func(*Equipment) error) (Equipment, error) {
	current, ok := tx.state.equipment[id]
	if !ok {
		return Equipment{}, domain.ErrNotFound{Entity: domain.EntityEquipment, ID: formatID(id)}
	}
	before := current
	if err := mutate(&current); err != nil {
		return Equipment{}, err
	}
	current.ID = id
	if err := validateEquipment(current); err != nil {
		return Equipment{}, err
	}
	tx.state.equipment[id] = current
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteEquipment removes an equipment record along with its usage history.
func (tx *transaction) DeleteEquipment(id int64) (domain.CascadeSummary, error) {
	current, ok := tx.state.equipment[id]
	if !ok {
		return domain.CascadeSummary{}, domain.ErrNotFound{Entity: domain.EntityEquipment, ID: formatID(id)}
	}

	var summary domain.CascadeSummary
	for key, u := range tx.state.usage {
		if key.EquipmentID == id {
			delete(tx.state.usage, key)
			tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionDelete, Before: cloneUsage(u)})
			summary.Usage++
		}
	}

	delete(tx.state.equipment, id)
	tx.recordChange(Change{Entity: domain.EntityEquipment, Action: domain.ActionDelete, Before: current})
	return summary, nil
}

func (tx *transaction) activeUsageCount(equipmentID int64) int {
	count := 0
	for key, u := range tx.state.usage {
		if key.EquipmentID == equipmentID && u.ActiveAt(tx.today) {
			count++
		}
	}
	return count
}

// StartUsage records a member beginning to use equipment, enforcing the cap
// on concurrently active records.
func (tx *transaction) StartUsage(u UsageRecord) (UsageRecord, error) {
	if _, ok := tx.state.members[u.MemberID]; !ok {
		return UsageRecord{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(u.MemberID)}
	}
	equipment, ok := tx.state.equipment[u.EquipmentID]
	if !ok {
		return UsageRecord{}, domain.ErrNotFound{Entity: domain.EntityEquipment, ID: formatID(u.EquipmentID)}
	}
	if equipment.Status == domain.EquipmentRetired {
		return UsageRecord{}, domain.ErrValidation{Reason: "equipment is retired"}
	}
	if u.StartDate.IsZero() {
		return UsageRecord{}, domain.ErrValidation{Reason: "usage requires a start date"}
	}
	if u.EndDate != nil && u.EndDate.Before(u.StartDate) {
		return UsageRecord{}, domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	key := u.Key()
	if _, exists := tx.state.usage[key]; exists {
		return UsageRecord{}, domain.ErrConstraint{Constraint: "usage_pk", Reason: "usage record already exists for member, equipment, and start date"}
	}
	if u.ActiveAt(tx.today) && tx.activeUsageCount(u.EquipmentID) >= domain.MaxActiveEquipmentUsers {
		return UsageRecord{}, domain.ErrCapacityExceeded{
			Entity:   domain.EntityEquipment,
			ID:       formatID(u.EquipmentID),
			Capacity: domain.MaxActiveEquipmentUsers,
		}
	}
	tx.state.usage[key] = cloneUsage(u)
	tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionCreate, After: cloneUsage(u)})
	return cloneUsage(u), nil
}

// EndUsage closes an open usage record.
func (tx *transaction) EndUsage(key domain.UsageKey, end domain.Date) (UsageRecord, error) {
	current, ok := tx.state.usage[key]
	if !ok {
		return UsageRecord{}, domain.ErrNotFound{Entity: domain.EntityUsage, ID: formatID(key.MemberID) + "/" + formatID(key.EquipmentID)}
	}
	if end.Before(current.StartDate) {
		return UsageRecord{}, domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	before := cloneUsage(current)
	current.EndDate = &end
	tx.state.usage[key] = cloneUsage(current)
	tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionUpdate, Before: before, After: cloneUsage(current)})
	return cloneUsage(current), nil
}

// UpdateUsage mutates an existing usage record in place. The composite key
// is immutable; reopening a closed record is subject to the capacity rule at
// commit.
func (tx *transaction) UpdateUsage(key domain.UsageKey, mutate func(*UsageRecord) error) (UsageRecord, error) {
	current, ok := tx.state.usage[key]
	if !ok {
		return UsageRecord{}, domain.ErrNotFound{Entity: domain.EntityUsage, ID: formatID(key.MemberID) + "/" + formatID(key.EquipmentID)}
	}
	before := cloneUsage(current)
	if err := mutate(&current); err != nil {
		return UsageRecord{}, err
	}
	if current.Key() != key {
		return UsageRecord{}, domain.ErrValidation{Reason: "usage key is immutable"}
	}
	if current.EndDate != nil && current.EndDate.Before(current.StartDate) {
		return UsageRecord{}, domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	tx.state.usage[key] = cloneUsage(current)
	tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionUpdate, Before: before, After: cloneUsage(current)})
	return cloneUsage(current), nil
}

// DeleteUsage removes a usage record outright.
func (tx *transaction) DeleteUsage(key domain.UsageKey) error {
	current, ok := tx.state.usage[key]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityUsage, ID: formatID(key.MemberID) + "/" + formatID(key.EquipmentID)}
	}
	delete(tx.state.usage, key)
	tx.recordChange(Change{Entity: domain.EntityUsage, Action: domain.ActionDelete, Before: cloneUsage(current)})
	return nil
}

func validateGrant(g Grant) error {
	if g.Source == "" {
		return domain.ErrValidation{Reason: "grant requires a source"}
	}
	if g.StartDate.IsZero() {
		return domain.ErrValidation{Reason: "grant requires a start date"}
	}
	if g.DurationMonths < 0 {
		return domain.ErrInvalidRange{Field: "duration_months", Reason: "must not be negative"}
	}
	if g.Budget != nil && *g.Budget < 0 {
		return domain.ErrInvalidRange{Field: "budget", Reason: "must not be negative"}
	}
	return nil
}

// CreateGrant stores a new grant.
func (tx *transaction) CreateGrant(g Grant) (Grant, error) {
	if err := validateGrant(g); err != nil {
		return Grant{}, err
	}
	if g.ID == 0 {
		g.ID = tx.nextID(domain.EntityGrant)
	} else if _, exists := tx.state.grants[g.ID]; exists {
		return Grant{}, domain.ErrConstraint{Constraint: "grant_pk", Reason: "grant id already exists"}
	} else if g.ID > tx.state.seq[domain.EntityGrant] {
		tx.state.seq[domain.EntityGrant] = g.ID
	}
	tx.state.grants[g.ID] = cloneGrant(g)
	tx.recordChange(Change{Entity: domain.EntityGrant, Action: domain.ActionCreate, After: cloneGrant(g)})
	return cloneGrant(g), nil
}

// UpdateGrant mutates an existing grant.
func (tx *transaction) UpdateGrant(id int64, mutate func(*Grant) error) (Grant, error) {
	current, ok := tx.state.grants[id]
	if !ok {
		return Grant{}, domain.ErrNotFound{Entity: domain.EntityGrant, ID: formatID(id)}
	}
	before := cloneGrant(current)
	if err := mutate(&current); err != nil {
		return Grant{}, err
	}
	current.ID = id
	if err := validateGrant(current); err != nil {
		return Grant{}, err
	}
	tx.state.grants[id] = cloneGrant(current)
	tx.recordChange(Change{Entity: domain.EntityGrant, Action: domain.ActionUpdate, Before: before, After: cloneGrant(current)})
	return cloneGrant(current), nil
}

// DeleteGrant removes a grant along with its funding links.
func (tx *transaction) DeleteGrant(id int64) (domain.CascadeSummary, error) {
	current, ok := tx.state.grants[id]
	if !ok {
		return domain.CascadeSummary{}, domain.ErrNotFound{Entity: domain.EntityGrant, ID: formatID(id)}
	}

	var summary domain.CascadeSummary
	for link := range tx.state.funding {
		if link.GrantID == id {
			delete(tx.state.funding, link)
			tx.recordChange(Change{Entity: domain.EntityFunding, Action: domain.ActionDelete, Before: link})
			summary.Funding++
		}
	}

	delete(tx.state.grants, id)
	tx.recordChange(Change{Entity: domain.EntityGrant, Action: domain.ActionDelete, Before: cloneGrant(current)})
	return summary, nil
}

// LinkFunding ties a grant to a project.
func (tx *transaction) LinkFunding(link FundingLink) (FundingLink, error) {
	if _, ok := tx.state.grants[link.GrantID]; !ok {
		return FundingLink{}, domain.ErrNotFound{Entity: domain.EntityGrant, ID: formatID(link.GrantID)}
	}
	if _, ok := tx.state.projects[link.ProjectID]; !ok {
		return FundingLink{}, domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(link.ProjectID)}
	}
	if _, exists := tx.state.funding[link]; exists {
		return FundingLink{}, domain.ErrConstraint{Constraint: "funding_pk", Reason: "grant already funds project"}
	}
	tx.state.funding[link] = struct{}{}
	tx.recordChange(Change{Entity: domain.EntityFunding, Action: domain.ActionCreate, After: link})
	return link, nil
}

// UnlinkFunding removes a grant-to-project link.
func (tx *transaction) UnlinkFunding(link FundingLink) error {
	if _, ok := tx.state.funding[link]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityFunding, ID: formatID(link.GrantID) + "/" + formatID(link.ProjectID)}
	}
	delete(tx.state.funding, link)
	tx.recordChange(Change{Entity: domain.EntityFunding, Action: domain.ActionDelete, Before: link})
	return nil
}

func validatePublication(p Publication) error {
	if p.Title == "" {
		return domain.ErrValidation{Reason: "publication requires a title"}
	}
	if p.Date.IsZero() {
		return domain.ErrValidation{Reason: "publication requires a date"}
	}
	return nil
}

// CreatePublication stores a new publication.
func (tx *transaction) CreatePublication(p Publication) (Publication, error) {
	if err := validatePublication(p); err != nil {
		return Publication{}, err
	}
	if p.ID == 0 {
		p.ID = tx.nextID(domain.EntityPublication)
	} else if _, exists := tx.state.publications[p.ID]; exists {
		return Publication{}, domain.ErrConstraint{Constraint: "publication_pk", Reason: "publication id already exists"}
	} else if p.ID > tx.state.seq[domain.EntityPublication] {
		tx.state.seq[domain.EntityPublication] = p.ID
	}
	tx.state.publications[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPublication, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePublication mutates an existing publication.
func (tx *transaction) UpdatePublication(id int64, mutate func(*Publication) error) (Publication, error) {
	current, ok := tx.state.publications[id]
	if !ok {
		return Publication{}, domain.ErrNotFound{Entity: domain.EntityPublication, ID: formatID(id)}
	}
	before := current
	if err := mutate(&current); err != nil {
		return Publication{}, err
	}
	current.ID = id
	if err := validatePublication(current); err != nil {
		return Publication{}, err
	}
	tx.state.publications[id] = current
	tx.recordChange(Change{Entity: domain.EntityPublication, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeletePublication removes a publication along with its authorships.
func (tx *transaction) DeletePublication(id int64) (domain.CascadeSummary, error) {
	current, ok := tx.state.publications[id]
	if !ok {
		return domain.CascadeSummary{}, domain.ErrNotFound{Entity: domain.EntityPublication, ID: formatID(id)}
	}

	var summary domain.CascadeSummary
	for link := range tx.state.authorships {
		if link.PublicationID == id {
			delete(tx.state.authorships, link)
			tx.recordChange(Change{Entity: domain.EntityAuthorship, Action: domain.ActionDelete, Before: link})
			summary.Authorships++
		}
	}

	delete(tx.state.publications, id)
	tx.recordChange(Change{Entity: domain.EntityPublication, Action: domain.ActionDelete, Before: current})
	return summary, nil
}

// LinkAuthorship ties a member to a publication.
func (tx *transaction) LinkAuthorship(link Authorship) (Authorship, error) {
	if _, ok := tx.state.members[link.MemberID]; !ok {
		return Authorship{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(link.MemberID)}
	}
	if _, ok := tx.state.publications[link.PublicationID]; !ok {
		return Authorship{}, domain.ErrNotFound{Entity: domain.EntityPublication, ID: formatID(link.PublicationID)}
	}
	if _, exists := tx.state.authorships[link]; exists {
		return Authorship{}, domain.ErrConstraint{Constraint: "authorship_pk", Reason: "member already listed as author"}
	}
	tx.state.authorships[link] = struct{}{}
	tx.recordChange(Change{Entity: domain.EntityAuthorship, Action: domain.ActionCreate, After: link})
	return link, nil
}

// UnlinkAuthorship removes a member-to-publication link.
func (tx *transaction) UnlinkAuthorship(link Authorship) error {
	if _, ok := tx.state.authorships[link]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityAuthorship, ID: formatID(link.MemberID) + "/" + formatID(link.PublicationID)}
	}
	delete(tx.state.authorships, link)
	tx.recordChange(Change{Entity: domain.EntityAuthorship, Action: domain.ActionDelete, Before: link})
	return nil
}

// CreateMentorship records a mentoring relation between two members.
func (tx *transaction) CreateMentorship(m Mentorship) (Mentorship, error) {
	if m.MentorID == m.MenteeID {
		return Mentorship{}, domain.ErrValidation{Reason: "mentor and mentee must differ"}
	}
	if _, ok := tx.state.members[m.MentorID]; !ok {
		return Mentorship{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(m.MentorID)}
	}
	if _, ok := tx.state.members[m.MenteeID]; !ok {
		return Mentorship{}, domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(m.MenteeID)}
	}
	if m.StartDate.IsZero() {
		return Mentorship{}, domain.ErrValidation{Reason: "mentorship requires a start date"}
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return Mentorship{}, domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	key := m.Key()
	if _, exists := tx.state.mentorships[key]; exists {
		return Mentorship{}, domain.ErrConstraint{Constraint: "mentorship_pk", Reason: "mentorship already recorded for pair"}
	}
	tx.state.mentorships[key] = cloneMentorship(m)
	tx.recordChange(Change{Entity: domain.EntityMentorship, Action: domain.ActionCreate, After: cloneMentorship(m)})
	return cloneMentorship(m), nil
}

// EndMentorship closes an open mentorship.
func (tx *transaction) EndMentorship(key domain.MentorshipKey, end domain.Date) (Mentorship, error) {
	current, ok := tx.state.mentorships[key]
	if !ok {
		return Mentorship{}, domain.ErrNotFound{Entity: domain.EntityMentorship, ID: formatID(key.MentorID) + "/" + formatID(key.MenteeID)}
	}
	if end.Before(current.StartDate) {
		return Mentorship{}, domain.ErrInvalidRange{Field: "end_date", Reason: "precedes start date"}
	}
	before := cloneMentorship(current)
	current.EndDate = &end
	tx.state.mentorships[key] = cloneMentorship(current)
	tx.recordChange(Change{Entity: domain.EntityMentorship, Action: domain.ActionUpdate, Before: before, After: cloneMentorship(current)})
	return cloneMentorship(current), nil
}

// DeleteMentorship removes a mentorship outright.
func (tx *transaction) DeleteMentorship(key domain.MentorshipKey) error {
	current, ok := tx.state.mentorships[key]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityMentorship, ID: formatID(key.MentorID) + "/" + formatID(key.MenteeID)}
	}
	delete(tx.state.mentorships, key)
	tx.recordChange(Change{Entity: domain.EntityMentorship, Action: domain.ActionDelete, Before: cloneMentorship(current)})
	return nil
}
