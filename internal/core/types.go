// Package core exposes the lab service layer: transactional mutation
// operations, cascade previews, commit-time rules, and observability hooks.
package core

import "labcore/pkg/domain"

// Type aliases keep service signatures in domain terms without forcing
// callers to import both packages.
type (
	// LabMember aliases domain.LabMember.
	LabMember = domain.LabMember
	// MemberDetail aliases domain.MemberDetail.
	MemberDetail = domain.MemberDetail
	// FacultyDetail aliases domain.FacultyDetail.
	FacultyDetail = domain.FacultyDetail
	// StudentDetail aliases domain.StudentDetail.
	StudentDetail = domain.StudentDetail
	// CollaboratorDetail aliases domain.CollaboratorDetail.
	CollaboratorDetail = domain.CollaboratorDetail
	// Project aliases domain.Project.
	Project = domain.Project
	// Assignment aliases domain.Assignment.
	Assignment = domain.Assignment
	// AssignmentKey aliases domain.AssignmentKey.
	AssignmentKey = domain.AssignmentKey
	// Equipment aliases domain.Equipment.
	Equipment = domain.Equipment
	// UsageRecord aliases domain.UsageRecord.
	UsageRecord = domain.UsageRecord
	// UsageKey aliases domain.UsageKey.
	UsageKey = domain.UsageKey
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
	// MentorshipKey aliases domain.MentorshipKey.
	MentorshipKey = domain.MentorshipKey
	// Date aliases domain.Date.
	Date = domain.Date
	// CascadeSummary aliases domain.CascadeSummary.
	CascadeSummary = domain.CascadeSummary
	// Change aliases domain.Change.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// Violation aliases domain.Violation.
	Violation = domain.Violation
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)
