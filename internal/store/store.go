// Package store is the daemon's Postgres-backed persistence layer: generic
// CRUD over every entity in internal/model, plus GenericFilter-driven reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nanocl-project/nanocld/internal/errors"
	"github.com/nanocl-project/nanocld/internal/filter"
)

// Store wraps the daemon's pooled database handle.
type Store struct {
	db *sqlx.DB
}

// Open establishes a PostgreSQL connection using dsn and verifies
// connectivity with a ping. The returned Store must be closed by the caller.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open sqlx.DB, for tests that hand in a sqlmock
// connection.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for packages (migrations) that need raw
// *sql.DB access.
func (s *Store) DB() *sql.DB { return s.db.DB }

// entity captures everything Store's generic helpers need to know about one
// table: its name, primary key column, and the column whitelist used to
// validate GenericFilter queries.
type entity struct {
	table  string
	pk     string
	schema filter.Schema
}

var (
	entNamespace = entity{table: "namespaces", pk: "name", schema: filter.Schema{
		"name": filter.TypeText, "created_at": filter.TypeTimestamptz,
	}}
	entSpec = entity{table: "specs", pk: "key", schema: filter.Schema{
		"key": filter.TypeUuid, "kind_name": filter.TypeText, "kind_key": filter.TypeText,
		"version": filter.TypeText, "data": filter.TypeJsonb, "metadata": filter.TypeJsonb,
		"created_at": filter.TypeTimestamptz,
	}}
	entCargo = entity{table: "cargoes", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "name": filter.TypeText, "namespace_name": filter.TypeText,
		"spec_key": filter.TypeUuid, "created_at": filter.TypeTimestamptz,
	}}
	entVm = entity{table: "vms", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "name": filter.TypeText, "namespace_name": filter.TypeText,
		"spec_key": filter.TypeUuid, "created_at": filter.TypeTimestamptz,
	}}
	entJob = entity{table: "jobs", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "data": filter.TypeJsonb, "metadata": filter.TypeJsonb,
		"created_at": filter.TypeTimestamptz, "updated_at": filter.TypeTimestamptz,
	}}
	entResource = entity{table: "resources", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "kind": filter.TypeText, "spec_key": filter.TypeUuid,
		"created_at": filter.TypeTimestamptz,
	}}
	entProcess = entity{table: "processes", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "name": filter.TypeText, "kind": filter.TypeText,
		"data": filter.TypeJsonb, "node_key": filter.TypeText, "kind_key": filter.TypeText,
		"created_at": filter.TypeTimestamptz, "updated_at": filter.TypeTimestamptz,
	}}
	entSecret = entity{table: "secrets", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "kind": filter.TypeText, "immutable": filter.TypeText,
		"data": filter.TypeJsonb, "metadata": filter.TypeJsonb,
		"created_at": filter.TypeTimestamptz, "updated_at": filter.TypeTimestamptz,
	}}
	entNode = entity{table: "nodes", pk: "name", schema: filter.Schema{
		"name": filter.TypeText, "ip_address": filter.TypeText, "created_at": filter.TypeTimestamptz,
	}}
	entObjStatus = entity{table: "obj_ps_statuses", pk: "key", schema: filter.Schema{
		"key": filter.TypeText, "wanted": filter.TypeText, "actual": filter.TypeText,
		"prev_wanted": filter.TypeText, "prev_actual": filter.TypeText,
		"updated_at": filter.TypeTimestamptz,
	}}
)

// translateNotFound maps sql.ErrNoRows to the daemon's NotFound taxonomy.
func translateNotFound(err error, kind, key string) error {
	if err == sql.ErrNoRows {
		return errors.NotFound(kind, key)
	}
	return err
}

// buildSelect renders "SELECT * FROM <table> WHERE <where> <order> <limit>"
// using GenericFilter f, validated against e's column whitelist.
func buildSelect(e entity, f filter.GenericFilter) (string, []any, error) {
	where, order, limitOffset, args, err := filter.Build(f, e.schema, 0)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", e.table, where)
	if order != "" {
		query += " " + order
	}
	query += " " + limitOffset
	return query, args, nil
}
