// Package sqldocs exposes the lab schema SQL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the lab schema SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the lab schema Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
