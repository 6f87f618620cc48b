package domain

import (
	"context"
	"fmt"
)

// Transaction exposes transactional mutation operations over the lab store.
// Mutations accumulate in the transaction and become visible on commit; any
// returned error aborts the transaction.
type Transaction interface {
	TransactionView

	// CreateMember stores a new lab member with exactly one detail variant.
	CreateMember(member LabMember) (LabMember, error)
	// UpdateMember applies a mutation to an existing member. Changing the
	// member type swaps the detail variant atomically.
	UpdateMember(id int64, mutate func(*LabMember) error) (LabMember, error)
	// DeleteMember removes a member and its dependent rows, and clears
	// leadership of projects the member led.
	DeleteMember(id int64) (CascadeSummary, error)

	// CreateProject stores a new project. A faculty leader is required.
	CreateProject(project Project) (Project, error)
	// UpdateProject applies a mutation to an existing project.
	UpdateProject(id int64, mutate func(*Project) error) (Project, error)
	// DeleteProject removes a project and its dependent rows.
	DeleteProject(id int64) (CascadeSummary, error)

	// PutAssignment creates or updates the assignment row for the
	// (member, project) pair, replacing role and hours on conflict.
	PutAssignment(assignment Assignment) (Assignment, error)
	// DeleteAssignment removes the assignment row for the pair.
	DeleteAssignment(key AssignmentKey) error

	// CreateEquipment stores a new equipment record.
	CreateEquipment(equipment Equipment) (Equipment, error)
	// UpdateEquipment applies a mutation to an existing equipment record.
	UpdateEquipment(id int64, mutate func(*Equipment) error) (Equipment, error)
	// DeleteEquipment removes an equipment record and its usage history.
	DeleteEquipment(id int64) (CascadeSummary, error)

	// StartUsage records a member beginning to use equipment. Fails when the
	// equipment already has MaxActiveEquipmentUsers concurrently active
	// usage records.
	StartUsage(usage UsageRecord) (UsageRecord, error)
	// UpdateUsage applies a mutation to an existing usage record. The
	// composite key is immutable.
	UpdateUsage(key UsageKey, mutate func(*UsageRecord) error) (UsageRecord, error)
	// EndUsage closes an open usage record with the given end date.
	EndUsage(key UsageKey, end Date) (UsageRecord, error)
	// DeleteUsage removes a usage record outright.
	DeleteUsage(key UsageKey) error

	// CreateGrant stores a new grant.
	CreateGrant(grant Grant) (Grant, error)
	// UpdateGrant applies a mutation to an existing grant.
	UpdateGrant(id int64, mutate func(*Grant) error) (Grant, error)
	// DeleteGrant removes a grant and its funding links.
	DeleteGrant(id int64) (CascadeSummary, error)

	// LinkFunding ties a grant to a project. Duplicate links are rejected.
	LinkFunding(link FundingLink) (FundingLink, error)
	// UnlinkFunding removes a grant-to-project link.
	UnlinkFunding(link FundingLink) error

	// CreatePublication stores a new publication.
	CreatePublication(publication Publication) (Publication, error)
	// UpdatePublication applies a mutation to an existing publication.
	UpdatePublication(id int64, mutate func(*Publication) error) (Publication, error)
	// DeletePublication removes a publication and its authorships.
	DeletePublication(id int64) (CascadeSummary, error)

	// LinkAuthorship ties a member to a publication. Duplicates are rejected.
	LinkAuthorship(link Authorship) (Authorship, error)
	// UnlinkAuthorship removes a member-to-publication link.
	UnlinkAuthorship(link Authorship) error

	// CreateMentorship records a mentoring relation. Self-mentorship and
	// duplicate pairs are rejected.
	CreateMentorship(mentorship Mentorship) (Mentorship, error)
	// EndMentorship closes an open mentorship with the given end date.
	EndMentorship(key MentorshipKey, end Date) (Mentorship, error)
	// DeleteMentorship removes a mentorship outright.
	DeleteMentorship(key MentorshipKey) error
}

// TransactionView provides read access to the lab store within a transaction
// or rule evaluation. Listings return stable copies ordered by identifier.
type TransactionView interface {
	ListMembers() []LabMember
	FindMember(id int64) (LabMember, bool)
	ListProjects() []Project
	FindProject(id int64) (Project, bool)
	ListAssignments() []Assignment
	FindAssignment(key AssignmentKey) (Assignment, bool)
	ListEquipment() []Equipment
	FindEquipment(id int64) (Equipment, bool)
	ListUsage() []UsageRecord
	FindUsage(key UsageKey) (UsageRecord, bool)
	ListGrants() []Grant
	FindGrant(id int64) (Grant, bool)
	ListFunding() []FundingLink
	ListPublications() []Publication
	FindPublication(id int64) (Publication, bool)
	ListAuthorships() []Authorship
	ListMentorships() []Mentorship
	FindMentorship(key MentorshipKey) (Mentorship, bool)
}

// PersistentStore provides atomic transactional mutation and read access to
// the lab data backed by a rules engine evaluated at commit time.
type PersistentStore interface {
	// RunInTransaction executes fn against a transactional view of the store.
	// Mutations commit only when fn returns nil and no blocking rule
	// violations exist; the returned Result carries warnings either way.
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	// View executes fn against a read-only snapshot of the store.
	View(ctx context.Context, fn func(TransactionView) error) error

	// Close releases resources held by the store.
	Close() error
}

// RuleView exposes the post-mutation state to rules during evaluation.
type RuleView = TransactionView

// Rule represents a commit-time invariant evaluated against the pending
// state and the set of changes in a transaction.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine evaluates an ordered set of rules.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine builds an engine from the provided rules.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: append([]Rule(nil), rules...)}
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	if e == nil {
		return nil
	}
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule and merges their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var aggregate Result
	if e == nil {
		return aggregate, nil
	}
	for _, rule := range e.rules {
		result, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		aggregate.Merge(result)
	}
	return aggregate, nil
}
