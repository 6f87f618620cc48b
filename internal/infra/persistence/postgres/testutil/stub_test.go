package testutil

import "testing"

func TestStubUpsertsStateBuckets(t *testing.T) {
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (bucket TEXT PRIMARY KEY, payload JSONB NOT NULL)`); err != nil {
		t.Fatalf("ddl exec: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, "members", []byte(`[]`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, "members", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("upsert replace: %v", err)
	}
	if string(conn.State["members"]) != `[{"id":1}]` {
		t.Fatalf("upsert did not replace payload: %s", conn.State["members"])
	}

	rows, err := db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	defer func() { _ = rows.Close() }()
	count := 0
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected one bucket row, got %d", count)
	}
}

func TestStubFailureHooks(t *testing.T) {
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	conn.FailPing = true
	if err := db.Ping(); err == nil {
		t.Fatal("expected ping failure")
	}
	conn.FailPing = false

	conn.FailExec = true
	if _, err := db.Exec(`CREATE TABLE x (y TEXT)`); err == nil {
		t.Fatal("expected exec failure")
	}
}
