package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"labcore/internal/artifact"
	"labcore/pkg/domain"
)

func seedPublication(t *testing.T, s *Service) Publication {
	t.Helper()
	pub, _, err := s.CreatePublication(context.Background(), domain.Publication{
		Title: "Attached Findings",
		Date:  domain.NewDate(2024, time.April, 10),
		Venue: "Lab Letters",
	})
	if err != nil {
		t.Fatalf("seed publication: %v", err)
	}
	return pub
}

func TestPublicationArtifactLifecycle(t *testing.T) {
	s := newTestService(t, WithArtifactStore(artifact.NewMemory()))
	ctx := context.Background()
	pub := seedPublication(t, s)

	info, err := s.AttachPublicationArtifact(ctx, pub.ID, "preprint.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if info.Key != "publications/1/preprint.pdf" {
		t.Fatalf("unexpected key %q", info.Key)
	}
	if _, err := s.AttachPublicationArtifact(ctx, pub.ID, "data.csv", "text/csv", strings.NewReader("a,b\n")); err != nil {
		t.Fatalf("attach second: %v", err)
	}

	infos, err := s.PublicationArtifacts(ctx, pub.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "publications/1/data.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	got, rc, err := s.OpenPublicationArtifact(ctx, pub.ID, "preprint.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "pdf-bytes" || got.ContentType != "application/pdf" {
		t.Fatalf("unexpected content %q info %+v", data, got)
	}

	removed, err := s.DetachPublicationArtifact(ctx, pub.ID, "data.csv")
	if err != nil || !removed {
		t.Fatalf("detach: %v removed=%v", err, removed)
	}
	infos, err = s.PublicationArtifacts(ctx, pub.ID)
	if err != nil || len(infos) != 1 {
		t.Fatalf("expected 1 artifact left, got %v %+v", err, infos)
	}
}

func TestAttachPublicationArtifactValidation(t *testing.T) {
	s := newTestService(t, WithArtifactStore(artifact.NewMemory()))
	ctx := context.Background()
	pub := seedPublication(t, s)

	if _, err := s.AttachPublicationArtifact(ctx, pub.ID, "nested/name.pdf", "", strings.NewReader("x")); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for path separators, got %v", err)
	}
	if _, err := s.AttachPublicationArtifact(ctx, 99, "preprint.pdf", "", strings.NewReader("x")); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for missing publication, got %v", err)
	}
}

func TestDeletePublicationSweepsArtifacts(t *testing.T) {
	store := artifact.NewMemory()
	s := newTestService(t, WithArtifactStore(store))
	ctx := context.Background()
	pub := seedPublication(t, s)

	for _, name := range []string{"preprint.pdf", "data.csv"} {
		if _, err := s.AttachPublicationArtifact(ctx, pub.ID, name, "", strings.NewReader("x")); err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
	}

	summary, _, err := s.DeletePublication(ctx, pub.ID)
	if err != nil {
		t.Fatalf("delete publication: %v", err)
	}
	if summary.Artifacts != 2 {
		t.Fatalf("expected 2 swept artifacts, got %+v", summary)
	}
	leftovers, err := store.List(ctx, artifact.PublicationPrefix(pub.ID))
	if err != nil || len(leftovers) != 0 {
		t.Fatalf("expected empty prefix, got %v %+v", err, leftovers)
	}
}

func TestArtifactOpsWithoutStore(t *testing.T) {
	s := newTestService(t)
	pub := seedPublication(t, s)
	if _, err := s.PublicationArtifacts(context.Background(), pub.ID); !errors.Is(err, ErrNoArtifactStore) {
		t.Fatalf("expected ErrNoArtifactStore, got %v", err)
	}
}
