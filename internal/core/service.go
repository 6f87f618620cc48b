package core

import (
	"context"
	"time"

	"labcore/internal/artifact"
	"labcore/pkg/domain"
)

// Service exposes transactional mutation operations over the lab store.
// Every operation runs inside a single store transaction; the returned Result
// carries rule warnings (cascade notices, schedule anomalies) for committed
// work.
type Service struct {
	store     PersistentStore
	artifacts artifact.Store
	metrics   MetricsRecorder
	tracer    Tracer
	clock     func() time.Time
}

// Option customizes service construction.
type Option func(*Service)

// WithMetricsRecorder attaches a metrics recorder to the service.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithArtifactStore attaches a publication artifact backend to the service.
func WithArtifactStore(store artifact.Store) Option {
	return func(s *Service) {
		s.artifacts = store
	}
}

// WithTracer attaches a tracer to the service.
func WithTracer(tr Tracer) Option {
	return func(s *Service) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithClock overrides the service time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// View runs fn against a read-only snapshot of the store.
func (s *Service) View(ctx context.Context, fn func(TransactionView) error) error {
	return s.observe(ctx, "view", func(ctx context.Context) error {
		return s.store.View(ctx, fn)
	})
}

func (s *Service) run(ctx context.Context, operation string, fn func(Transaction) error) (Result, error) {
	var result Result
	err := s.observe(ctx, operation, func(ctx context.Context) error {
		var err error
		result, err = s.store.RunInTransaction(ctx, fn)
		return err
	})
	return result, err
}

// CreateMember persists a new lab member with its detail variant.
func (s *Service) CreateMember(ctx context.Context, member LabMember) (LabMember, Result, error) {
	var created LabMember
	res, err := s.run(ctx, "create_member", func(tx Transaction) error {
		var err error
		created, err = tx.CreateMember(member)
		return err
	})
	return created, res, err
}

// UpdateMember mutates a member using the provided mutator.
func (s *Service) UpdateMember(ctx context.Context, id int64, mutate func(*LabMember) error) (LabMember, Result, error) {
	var updated LabMember
	res, err := s.run(ctx, "update_member", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateMember(id, mutate)
		return err
	})
	return updated, res, err
}

// DeleteMember removes a member; the summary reports dependent rows removed
// and led projects whose leadership was cleared.
func (s *Service) DeleteMember(ctx context.Context, id int64) (CascadeSummary, Result, error) {
	var summary CascadeSummary
	res, err := s.run(ctx, "delete_member", func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteMember(id)
		return err
	})
	return summary, res, err
}

// PreviewMemberDelete reports what a member delete would cascade to without
// committing anything.
func (s *Service) PreviewMemberDelete(ctx context.Context, id int64) (CascadeSummary, error) {
	var summary CascadeSummary
	err := s.observe(ctx, "preview_member_delete", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			if _, ok := view.FindMember(id); !ok {
				return domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(id)}
			}
			summary = domain.CascadeSummary{DetailRows: 1}
			for _, a := range view.ListAssignments() {
				if a.MemberID == id {
					summary.Assignments++
				}
			}
			for _, u := range view.ListUsage() {
				if u.MemberID == id {
					summary.Usage++
				}
			}
			for _, a := range view.ListAuthorships() {
				if a.MemberID == id {
					summary.Authorships++
				}
			}
			for _, m := range view.ListMentorships() {
				if m.MentorID == id || m.MenteeID == id {
					summary.Mentorships++
				}
			}
			for _, p := range view.ListProjects() {
				if p.LeaderID != nil && *p.LeaderID == id {
					summary.LedProjects++
				}
			}
			return nil
		})
	})
	return summary, err
}

// CreateProject persists a new project.
func (s *Service) CreateProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	res, err := s.run(ctx, "create_project", func(tx Transaction) error {
		var err error
		created, err = tx.CreateProject(project)
		return err
	})
	return created, res, err
}

// UpdateProject mutates a project using the provided mutator.
func (s *Service) UpdateProject(ctx context.Context, id int64, mutate func(*Project) error) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "update_project", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProject(id, mutate)
		return err
	})
	return updated, res, err
}

// DeleteProject removes a project and its dependent link rows.
func (s *Service) DeleteProject(ctx context.Context, id int64) (CascadeSummary, Result, error) {
	var summary CascadeSummary
	res, err := s.run(ctx, "delete_project", func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteProject(id)
		return err
	})
	return summary, res, err
}

// PreviewProjectDelete reports what a project delete would cascade to.
func (s *Service) PreviewProjectDelete(ctx context.Context, id int64) (CascadeSummary, error) {
	var summary CascadeSummary
	err := s.observe(ctx, "preview_project_delete", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			if _, ok := view.FindProject(id); !ok {
				return domain.ErrNotFound{Entity: domain.EntityProject, ID: formatID(id)}
			}
			for _, a := range view.ListAssignments() {
				if a.ProjectID == id {
					summary.Assignments++
				}
			}
			for _, f := range view.ListFunding() {
				if f.ProjectID == id {
					summary.Funding++
				}
			}
			return nil
		})
	})
	return summary, err
}

// AssignToProject creates or updates the assignment row for the pair.
func (s *Service) AssignToProject(ctx context.Context, assignment Assignment) (Assignment, Result, error) {
	var stored Assignment
	res, err := s.run(ctx, "assign_to_project", func(tx Transaction) error {
		var err error
		stored, err = tx.PutAssignment(assignment)
		return err
	})
	return stored, res, err
}

// RemoveFromProject deletes the assignment row for the pair.
func (s *Service) RemoveFromProject(ctx context.Context, key AssignmentKey) (Result, error) {
	return s.run(ctx, "remove_from_project", func(tx Transaction) error {
		return tx.DeleteAssignment(key)
	})
}

// SetProjectLeader updates a project's leader within a transaction that
// validates the member exists.
func (s *Service) SetProjectLeader(ctx context.Context, projectID, memberID int64) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "set_project_leader", func(tx Transaction) error {
		if _, ok := tx.FindMember(memberID); !ok {
			return domain.ErrNotFound{Entity: domain.EntityMember, ID: formatID(memberID)}
		}
		var err error
		updated, err = tx.UpdateProject(projectID, func(p *Project) error {
			p.LeaderID = &memberID
			return nil
		})
		return err
	})
	return updated, res, err
}

// CreateEquipment persists a new equipment record.
func (s *Service) CreateEquipment(ctx context.Context, equipment Equipment) (Equipment, Result, error) {
	var created Equipment
	res, err := s.run(ctx, "create_equipment", func(tx Transaction) error {
		var err error
		created, err = tx.CreateEquipment(equipment)
		return err
	})
	return created, res, err
}

// UpdateEquipment mutates an equipment record.
func (s *Service) UpdateEquipment(ctx context.Context, id int64, mutate func(*Equipment) error) (Equipment, Result, error) {
	var updated Equipment
	res, err := s.run(ctx, "update_equipment", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateEquipment(id, mutate)
		return err
	})
	return updated, res, err
}

// DeleteEquipment removes equipment and its usage history.
func (s *Service) DeleteEquipment(ctx context.Context, id int64) (CascadeSummary, Result, error) {
	var summary CascadeSummary
	res, err := s.run(ctx, "delete_equipment", func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteEquipment(id)
		return err
	})
	return summary, res, err
}

// PreviewEquipmentDelete reports how many usage records an equipment delete
// would cascade to.
func (s *Service) PreviewEquipmentDelete(ctx context.Context, id int64) (CascadeSummary, error) {
	var summary CascadeSummary
	err := s.observe(ctx, "preview_equipment_delete", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			if _, ok := view.FindEquipment(id); !ok {
				return domain.ErrNotFound{Entity: domain.EntityEquipment, ID: formatID(id)}
			}
			for _, u := range view.ListUsage() {
				if u.EquipmentID == id {
					summary.Usage++
				}
			}
			return nil
		})
	})
	return summary, err
}

// StartEquipmentUsage records the beginning of an equipment usage period.
func (s *Service) StartEquipmentUsage(ctx context.Context, usage UsageRecord) (UsageRecord, Result, error) {
	var created UsageRecord
	res, err := s.run(ctx, "start_equipment_usage", func(tx Transaction) error {
		var err error
		created, err = tx.StartUsage(usage)
		return err
	})
	return created, res, err
}

// UpdateUsagePurpose rewrites the purpose of an existing usage record.
func (s *Service) UpdateUsagePurpose(ctx context.Context, key UsageKey, purpose string) (UsageRecord, Result, error) {
	var updated UsageRecord
	res, err := s.run(ctx, "update_usage_purpose", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateUsage(key, func(u *UsageRecord) error {
			u.Purpose = purpose
			return nil
		})
		return err
	})
	return updated, res, err
}

// EndEquipmentUsage closes an open usage record.
func (s *Service) EndEquipmentUsage(ctx context.Context, key UsageKey, end Date) (UsageRecord, Result, error) {
	var updated UsageRecord
	res, err := s.run(ctx, "end_equipment_usage", func(tx Transaction) error {
		var err error
		updated, err = tx.EndUsage(key, end)
		return err
	})
	return updated, res, err
}

// CreateGrant persists a new grant.
func (s *Service) CreateGrant(ctx context.Context, grant Grant) (Grant, Result, error) {
	var created Grant
	res, err := s.run(ctx, "create_grant", func(tx Transaction) error {
		var err error
		created, err = tx.CreateGrant(grant)
		return err
	})
	return created, res, err
}

// UpdateGrant mutates a grant.
func (s *Service) UpdateGrant(ctx context.Context, id int64, mutate func(*Grant) error) (Grant, Result, error) {
	var updated Grant
	res, err := s.run(ctx, "update_grant", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateGrant(id, mutate)
		return err
	})
	return updated, res, err
}

// DeleteGrant removes a grant and its funding links.
func (s *Service) DeleteGrant(ctx context.Context, id int64) (CascadeSummary, Result, error) {
	var summary CascadeSummary
	res, err := s.run(ctx, "delete_grant", func(tx Transaction) error {
		var err error
		summary, err = tx.DeleteGrant(id)
		return err
	})
	return summary, res, err
}

// LinkFunding ties a grant to a project.
func (s *Service) LinkFunding(ctx context.Context, link FundingLink) (FundingLink, Result, error) {
	var stored FundingLink
	res, err := s.run(ctx, "link_funding", func(tx Transaction) error {
		var err error
		stored, err = tx.LinkFunding(link)
		return err
	})
	return stored, res, err
}

// UnlinkFunding removes a grant-to-project link.
func (s *Service) UnlinkFunding(ctx context.Context, link FundingLink) (Result, error) {
	return s.run(ctx, "unlink_funding", func(tx Transaction) error {
		return tx.UnlinkFunding(link)
	})
}

// CreatePublication persists a new publication.
func (s *Service) CreatePublication(ctx context.Context, publication Publication) (Publication, Result, error) {
	var created Publication
	res, err := s.run(ctx, "create_publication", func(tx Transaction) error {
		var err error
		created, err = tx.CreatePublication(publication)
		return err
	})
	return created, res, err
}

// UpdatePublication mutates a publication.
func (s *Service) UpdatePublication(ctx context.Context, id int64, mutate func(*Publication) error) (Publication, Result, error) {
	var updated Publication
	res, err := s.run(ctx, "update_publication", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePublication(id, mutate)
		return err
	})
	return updated, res, err
}

// DeletePublication removes a publication, its authorships, and any stored
// artifacts.
func (s *Service) DeletePublication(ctx context.Context, id int64) (CascadeSummary, Result, error) {
	var summary CascadeSummary
	res, err := s.run(ctx, "delete_publication", func(tx Transaction) error {
		var err error
		summary, err = tx.DeletePublication(id)
		return err
	})
	if err == nil && s.artifacts != nil {
		removed, artifactErr := s.removePublicationArtifacts(ctx, id)
		summary.Artifacts = removed
		if artifactErr != nil {
			err = artifactErr
		}
	}
	return summary, res, err
}

// RecordAuthorship ties a member to a publication.
func (s *Service) RecordAuthorship(ctx context.Context, link Authorship) (Authorship, Result, error) {
	var stored Authorship
	res, err := s.run(ctx, "record_authorship", func(tx Transaction) error {
		var err error
		stored, err = tx.LinkAuthorship(link)
		return err
	})
	return stored, res, err
}

// RemoveAuthorship removes a member-to-publication link.
func (s *Service) RemoveAuthorship(ctx context.Context, link Authorship) (Result, error) {
	return s.run(ctx, "remove_authorship", func(tx Transaction) error {
		return tx.UnlinkAuthorship(link)
	})
}

// StartMentorship records a mentoring relation.
func (s *Service) StartMentorship(ctx context.Context, mentorship Mentorship) (Mentorship, Result, error) {
	var created Mentorship
	res, err := s.run(ctx, "start_mentorship", func(tx Transaction) error {
		var err error
		created, err = tx.CreateMentorship(mentorship)
		return err
	})
	return created, res, err
}

// EndMentorship closes an open mentorship.
func (s *Service) EndMentorship(ctx context.Context, key MentorshipKey, end Date) (Mentorship, Result, error) {
	var updated Mentorship
	res, err := s.run(ctx, "end_mentorship", func(tx Transaction) error {
		var err error
		updated, err = tx.EndMentorship(key, end)
		return err
	})
	return updated, res, err
}
