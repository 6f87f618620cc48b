package sqlbundle

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite())
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestPostgresBundle(t *testing.T) {
	ddl := Postgres()
	if !strings.Contains(ddl, "CREATE TABLE") {
		t.Fatal("expected postgres DDL to contain CREATE TABLE")
	}
	for _, table := range []string{"lab_member", "works", "uses", "grant_award", "mentorship"} {
		if !strings.Contains(ddl, table) {
			t.Fatalf("postgres DDL missing table %q", table)
		}
	}
	if !strings.Contains(ddl, "mentor_id <> mentee_id") {
		t.Fatal("mentorship DDL missing distinct-pair check")
	}
}
