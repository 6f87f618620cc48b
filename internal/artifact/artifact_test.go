package artifact

import (
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("LABCORE_ARTIFACT_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	t.Setenv("LABCORE_ARTIFACT_DRIVER", "fs")
	t.Setenv("LABCORE_ARTIFACT_FS_ROOT", t.TempDir())
	store, err = Open(context.Background())
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	t.Setenv("LABCORE_ARTIFACT_DRIVER", "bogus")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error for unknown driver")
	}

	// s3 without a bucket fails fast.
	t.Setenv("LABCORE_ARTIFACT_DRIVER", "s3")
	t.Setenv("LABCORE_ARTIFACT_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestPublicationKeys(t *testing.T) {
	key, err := PublicationKey(42, "preprint.pdf")
	if err != nil {
		t.Fatalf("publication key: %v", err)
	}
	if key != "publications/42/preprint.pdf" {
		t.Fatalf("unexpected key %q", key)
	}
	if PublicationPrefix(42) != "publications/42/" {
		t.Fatalf("unexpected prefix %q", PublicationPrefix(42))
	}

	for _, name := range []string{"", " ", "a/b", `a\b`, ".", ".."} {
		if _, err := PublicationKey(1, name); err == nil {
			t.Fatalf("filename %q should be rejected", name)
		}
	}
}
