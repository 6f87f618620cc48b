package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"labcore/internal/artifact"
	"labcore/pkg/domain"
)

// ErrNoArtifactStore is returned by artifact operations when the service was
// built without an artifact backend.
var ErrNoArtifactStore = errors.New("artifact store not configured")

// ArtifactStore returns the configured artifact backend, or nil.
func (s *Service) ArtifactStore() artifact.Store {
	return s.artifacts
}

func (s *Service) requireArtifacts() error {
	if s.artifacts == nil {
		return ErrNoArtifactStore
	}
	return nil
}

func (s *Service) requirePublication(ctx context.Context, id int64) error {
	return s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindPublication(id); !ok {
			return domain.ErrNotFound{Entity: domain.EntityPublication, ID: formatID(id)}
		}
		return nil
	})
}

// AttachPublicationArtifact stores a file under the publication's key prefix.
// The name must be a bare filename; attaching the same name twice fails.
func (s *Service) AttachPublicationArtifact(ctx context.Context, publicationID int64, filename, contentType string, r io.Reader) (artifact.Info, error) {
	var info artifact.Info
	err := s.observe(ctx, "attach_publication_artifact", func(ctx context.Context) error {
		if err := s.requireArtifacts(); err != nil {
			return err
		}
		key, err := artifact.PublicationKey(publicationID, filename)
		if err != nil {
			return domain.ErrValidation{Reason: err.Error()}
		}
		if err := s.requirePublication(ctx, publicationID); err != nil {
			return err
		}
		info, err = s.artifacts.Put(ctx, key, r, artifact.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"publication_id": formatID(publicationID)},
		})
		return err
	})
	return info, err
}

// PublicationArtifacts lists the files stored for a publication, ordered by
// key.
func (s *Service) PublicationArtifacts(ctx context.Context, publicationID int64) ([]artifact.Info, error) {
	var infos []artifact.Info
	err := s.observe(ctx, "publication_artifacts", func(ctx context.Context) error {
		if err := s.requireArtifacts(); err != nil {
			return err
		}
		if err := s.requirePublication(ctx, publicationID); err != nil {
			return err
		}
		var listErr error
		infos, listErr = s.artifacts.List(ctx, artifact.PublicationPrefix(publicationID))
		return listErr
	})
	return infos, err
}

// OpenPublicationArtifact returns the metadata and content of one stored
// file. The caller owns the returned reader.
func (s *Service) OpenPublicationArtifact(ctx context.Context, publicationID int64, filename string) (artifact.Info, io.ReadCloser, error) {
	var info artifact.Info
	var rc io.ReadCloser
	err := s.observe(ctx, "open_publication_artifact", func(ctx context.Context) error {
		if err := s.requireArtifacts(); err != nil {
			return err
		}
		key, err := artifact.PublicationKey(publicationID, filename)
		if err != nil {
			return domain.ErrValidation{Reason: err.Error()}
		}
		info, rc, err = s.artifacts.Get(ctx, key)
		return err
	})
	return info, rc, err
}

// DetachPublicationArtifact removes one stored file, reporting whether it
// existed.
func (s *Service) DetachPublicationArtifact(ctx context.Context, publicationID int64, filename string) (bool, error) {
	var removed bool
	err := s.observe(ctx, "detach_publication_artifact", func(ctx context.Context) error {
		if err := s.requireArtifacts(); err != nil {
			return err
		}
		key, err := artifact.PublicationKey(publicationID, filename)
		if err != nil {
			return domain.ErrValidation{Reason: err.Error()}
		}
		removed, err = s.artifacts.Delete(ctx, key)
		return err
	})
	return removed, err
}

// removePublicationArtifacts sweeps every stored file for a deleted
// publication, returning how many were removed.
func (s *Service) removePublicationArtifacts(ctx context.Context, publicationID int64) (int, error) {
	infos, err := s.artifacts.List(ctx, artifact.PublicationPrefix(publicationID))
	if err != nil {
		return 0, fmt.Errorf("list artifacts for publication %d: %w", publicationID, err)
	}
	removed := 0
	for _, info := range infos {
		ok, err := s.artifacts.Delete(ctx, info.Key)
		if err != nil {
			return removed, fmt.Errorf("delete artifact %s: %w", info.Key, err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
