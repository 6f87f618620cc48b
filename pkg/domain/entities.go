// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by labcore.
package domain

import "encoding/json"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityMember identifies a lab member record.
	EntityMember EntityType = "lab_member"
	// EntityProject identifies a research project record.
	EntityProject EntityType = "project"
	// EntityAssignment identifies a project work assignment row.
	EntityAssignment EntityType = "assignment"
	// EntityEquipment identifies an equipment record.
	EntityEquipment EntityType = "equipment"
	// EntityUsage identifies an equipment usage record.
	EntityUsage EntityType = "usage_record"
	// EntityGrant identifies a grant record.
	EntityGrant EntityType = "grant"
	// EntityFunding identifies a grant-to-project funding link.
	EntityFunding EntityType = "funding_link"
	// EntityPublication identifies a publication record.
	EntityPublication EntityType = "publication"
	// EntityAuthorship identifies a member-to-publication authorship link.
	EntityAuthorship EntityType = "authorship"
	// EntityMentorship identifies a mentor/mentee relation.
	EntityMentorship EntityType = "mentorship"
)

// MemberType discriminates the three disjoint member subtypes.
type MemberType string

// Canonical member types; each selects exactly one detail variant.
const (
	MemberFaculty      MemberType = "Faculty"
	MemberStudent      MemberType = "Student"
	MemberCollaborator MemberType = "Collaborator"
)

// Valid reports whether the member type is one of the canonical values.
func (t MemberType) Valid() bool {
	switch t {
	case MemberFaculty, MemberStudent, MemberCollaborator:
		return true
	}
	return false
}

// StudentLevel enumerates academic standing for student members.
type StudentLevel string

// Canonical student levels.
const (
	LevelFreshman  StudentLevel = "Freshman"
	LevelSophomore StudentLevel = "Sophomore"
	LevelJunior    StudentLevel = "Junior"
	LevelSenior    StudentLevel = "Senior"
	LevelGraduate  StudentLevel = "Graduate"
)

// Valid reports whether the level is one of the canonical values.
func (l StudentLevel) Valid() bool {
	switch l {
	case LevelFreshman, LevelSophomore, LevelJunior, LevelSenior, LevelGraduate:
		return true
	}
	return false
}

// ProjectStatus enumerates project workflow states.
type ProjectStatus string

// Canonical project statuses.
const (
	ProjectActive    ProjectStatus = "Active"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectPaused    ProjectStatus = "Paused"
)

// Valid reports whether the status is one of the canonical values.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectPaused:
		return true
	}
	return false
}

// EquipmentStatus enumerates equipment availability states.
type EquipmentStatus string

// Canonical equipment statuses.
const (
	EquipmentAvailable EquipmentStatus = "Available"
	EquipmentInUse     EquipmentStatus = "In Use"
	EquipmentRetired   EquipmentStatus = "Retired"
)

// Valid reports whether the status is one of the canonical values.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentInUse, EquipmentRetired:
		return true
	}
	return false
}

// MaxActiveEquipmentUsers caps concurrently active usage records per equipment.
const MaxActiveEquipmentUsers = 3

// MaxWeeklyAssignmentHours bounds assignment hours to the hours in a week.
const MaxWeeklyAssignmentHours = 168

// MemberDetail is the sealed variant carried by a lab member; exactly one
// variant, matching the member's type, is present once creation completes.
type MemberDetail interface {
	// Kind returns the member type the variant belongs to.
	Kind() MemberType
	// Summary returns the single display/search column coalesced across
	// variants (department, major, or affiliation).
	Summary() string
	// Validate checks the variant's required fields.
	Validate() error
}

// FacultyDetail carries faculty-specific attributes.
type FacultyDetail struct {
	Department string `json:"department"`
}

// Kind returns MemberFaculty.
func (FacultyDetail) Kind() MemberType { return MemberFaculty }

// Summary returns the department.
func (d FacultyDetail) Summary() string { return d.Department }

// Validate checks required faculty fields.
func (d FacultyDetail) Validate() error {
	if d.Department == "" {
		return ErrValidation{Reason: "faculty detail requires a department"}
	}
	return nil
}

// StudentDetail carries student-specific attributes.
type StudentDetail struct {
	StudentID string       `json:"student_id"`
	Level     StudentLevel `json:"level"`
	Major     string       `json:"major"`
}

// Kind returns MemberStudent.
func (StudentDetail) Kind() MemberType { return MemberStudent }

// Summary returns the major.
func (d StudentDetail) Summary() string { return d.Major }

// Validate checks required student fields.
func (d StudentDetail) Validate() error {
	if d.StudentID == "" {
		return ErrValidation{Reason: "student detail requires a student id"}
	}
	if !d.Level.Valid() {
		return ErrValidation{Reason: "student detail has an unknown level"}
	}
	if d.Major == "" {
		return ErrValidation{Reason: "student detail requires a major"}
	}
	return nil
}

// CollaboratorDetail carries external-collaborator attributes.
type CollaboratorDetail struct {
	Affiliation string  `json:"affiliation"`
	Biography   *string `json:"biography,omitempty"`
}

// Kind returns MemberCollaborator.
func (CollaboratorDetail) Kind() MemberType { return MemberCollaborator }

// Summary returns the affiliation.
func (d CollaboratorDetail) Summary() string { return d.Affiliation }

// Validate checks required collaborator fields.
func (d CollaboratorDetail) Validate() error {
	if d.Affiliation == "" {
		return ErrValidation{Reason: "collaborator detail requires an affiliation"}
	}
	return nil
}

// LabMember represents a person tracked by the lab: faculty, student, or
// external collaborator. The Detail variant always matches Type.
type LabMember struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Type     MemberType   `json:"member_type"`
	JoinDate Date         `json:"join_date"`
	Detail   MemberDetail `json:"-"`
}

type memberAlias LabMember

type memberPayload struct {
	memberAlias
	Faculty      *FacultyDetail      `json:"faculty,omitempty"`
	Student      *StudentDetail      `json:"student,omitempty"`
	Collaborator *CollaboratorDetail `json:"collaborator,omitempty"`
}

// MarshalJSON serializes the detail variant into its own keyed object so the
// stored payload mirrors the one-table-per-variant schema.
func (m LabMember) MarshalJSON() ([]byte, error) {
	payload := memberPayload{memberAlias: memberAlias(m)}
	switch d := m.Detail.(type) {
	case FacultyDetail:
		payload.Faculty = &d
	case StudentDetail:
		payload.Student = &d
	case CollaboratorDetail:
		payload.Collaborator = &d
	}
	return json.Marshal(payload)
}

// UnmarshalJSON hydrates the detail variant from its keyed object.
func (m *LabMember) UnmarshalJSON(data []byte) error {
	var aux memberPayload
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = LabMember(aux.memberAlias)
	switch {
	case aux.Faculty != nil:
		m.Detail = *aux.Faculty
	case aux.Student != nil:
		m.Detail = *aux.Student
	case aux.Collaborator != nil:
		m.Detail = *aux.Collaborator
	default:
		m.Detail = nil
	}
	return nil
}

// Project captures a research project and its schedule.
type Project struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	StartDate      Date          `json:"start_date"`
	EndDate        *Date         `json:"end_date,omitempty"`
	DurationMonths int           `json:"expected_duration_months"`
	Status         ProjectStatus `json:"status"`
	LeaderID       *int64        `json:"leader_id,omitempty"`
}

// OverlapsPeriod reports whether the project's active interval intersects
// [periodStart, periodEnd]; an absent end date means the project is ongoing.
func (p Project) OverlapsPeriod(periodStart, periodEnd Date) bool {
	if p.StartDate.After(periodEnd) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(periodStart)
}

// AssignmentKey identifies an assignment row by its composite key.
type AssignmentKey struct {
	MemberID  int64
	ProjectID int64
}

// Assignment links a member to a project with a role and weekly commitment.
// At most one row exists per (member, project) pair; re-assigning updates it.
type Assignment struct {
	MemberID    int64   `json:"member_id"`
	ProjectID   int64   `json:"project_id"`
	Role        string  `json:"role"`
	WeeklyHours float64 `json:"weekly_hours"`
}

// Key returns the row's composite key.
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{MemberID: a.MemberID, ProjectID: a.ProjectID}
}

// Equipment captures a piece of lab equipment.
type Equipment struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"equipment_type"`
	PurchaseDate Date            `json:"purchase_date"`
	Status       EquipmentStatus `json:"status"`
}

// UsageKey identifies a usage record by its composite key.
type UsageKey struct {
	MemberID    int64
	EquipmentID int64
	StartDate   Date
}

// UsageRecord captures a member's use of a piece of equipment over a period;
// an absent end date means the usage is ongoing.
type UsageRecord struct {
	MemberID    int64  `json:"member_id"`
	EquipmentID int64  `json:"equipment_id"`
	StartDate   Date   `json:"start_date"`
	EndDate     *Date  `json:"end_date,omitempty"`
	Purpose     string `json:"purpose"`
}

// Key returns the record's composite key.
func (u UsageRecord) Key() UsageKey {
	return UsageKey{MemberID: u.MemberID, EquipmentID: u.EquipmentID, StartDate: u.StartDate}
}

// ActiveAt reports whether the record counts against the equipment's
// concurrent-user capacity on the given date.
func (u UsageRecord) ActiveAt(today Date) bool {
	return u.EndDate == nil || !u.EndDate.Before(today)
}

// Grant captures an external funding award. A nil budget is treated as zero
// in funding rollups.
type Grant struct {
	ID             int64    `json:"id"`
	Source         string   `json:"source"`
	Budget         *float64 `json:"budget,omitempty"`
	StartDate      Date     `json:"start_date"`
	DurationMonths int      `json:"duration_months"`
}

// FundingLink ties a grant to a project it funds (many-to-many).
type FundingLink struct {
	GrantID   int64 `json:"grant_id"`
	ProjectID int64 `json:"project_id"`
}

// Publication captures a published work attributed to lab members.
type Publication struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  Date   `json:"publication_date"`
	Venue string `json:"venue"`
}

// Authorship ties a member to a publication (many-to-many).
type Authorship struct {
	MemberID      int64 `json:"member_id"`
	PublicationID int64 `json:"publication_id"`
}

// MentorshipKey identifies a mentorship by its mentor/mentee pair.
type MentorshipKey struct {
	MentorID int64
	MenteeID int64
}

// Mentorship records a mentoring relation between two members.
type Mentorship struct {
	MentorID  int64 `json:"mentor_id"`
	MenteeID  int64 `json:"mentee_id"`
	StartDate Date  `json:"start_date"`
	EndDate   *Date `json:"end_date,omitempty"`
}

// Key returns the relation's composite key.
func (m Mentorship) Key() MentorshipKey {
	return MentorshipKey{MentorID: m.MentorID, MenteeID: m.MenteeID}
}

// CascadeSummary enumerates the dependent rows removed alongside a parent
// delete, so callers can warn or confirm before committing.
type CascadeSummary struct {
	DetailRows  int `json:"detail_rows"`
	Assignments int `json:"assignments"`
	Usage       int `json:"usage_records"`
	Funding     int `json:"funding_links"`
	Authorships int `json:"authorships"`
	Mentorships int `json:"mentorships"`
	LedProjects int `json:"led_projects"`
	Artifacts   int `json:"artifacts"`
}

// Total returns the number of dependent rows affected.
func (c CascadeSummary) Total() int {
	return c.DetailRows + c.Assignments + c.Usage + c.Funding + c.Authorships + c.Mentorships + c.LedProjects + c.Artifacts
}

// Empty reports whether the delete touches no dependent rows.
func (c CascadeSummary) Empty() bool { return c.Total() == 0 }

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Warnings returns the subset of violations at warn severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
