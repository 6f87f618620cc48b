package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDomainImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"labcore/pkg/domain", true},
		{"example.com/mod/pkg/domain@v1", true},
		{"labcore/pkg/notdomain", false},
		{"labcore/internal/core", false},
	}
	for _, c := range cases {
		if got := DomainImportForbidden(c.in); got != c.want {
			t.Errorf("DomainImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbidden(t *testing.T) {
	if !InternalImportForbidden("labcore/internal/reports") {
		t.Error("internal path should be forbidden")
	}
	if InternalImportForbidden("labcore/pkg/domain") {
		t.Error("pkg path should be allowed")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := `package scratch

import (
	"fmt"
	bad "labcore/pkg/domain"
)

var _ = fmt.Sprint(bad.MaxActiveEquipmentUsers)
`
	if err := os.WriteFile(filepath.Join(dir, "scratch.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	// Test files are skipped.
	if err := os.WriteFile(filepath.Join(dir, "scratch_test.go"), []byte("package scratch\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	viols, err := directImportViolations(dir, DomainImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 {
		t.Fatalf("expected one violation, got %v", viols)
	}
}

func TestTransitiveViolationsParsesOutput(t *testing.T) {
	orig := goListDeps
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nlabcore/pkg/domain\nlabcore/internal/artifact/core\n"), nil
	}
	defer func() { goListDeps = orig }()

	viols, _, err := transitiveViolations("./...", DomainImportForbidden)
	if err != nil {
		t.Fatalf("transitive: %v", err)
	}
	if len(viols) != 1 || viols[0] != "labcore/pkg/domain" {
		t.Fatalf("unexpected violations: %v", viols)
	}
}
