// Package store saves patient tables as snapshots in PostgreSQL and loads
// them back.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marshallshelly/patient-records/pkg/patient"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes one saved table.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
	HighRisk  int       `json:"high_risk"`
}

// Store persists table snapshots.
type Store struct {
	pool   *pgxpool.Pool
	lockID int64 // PostgreSQL advisory lock ID
}

// New creates a store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		lockID: 7_310_442, // Default lock ID
	}
}

// Connect opens a pool for url and verifies it.
func Connect(ctx context.Context, url string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(pool), nil
}

// WithLockID sets a custom advisory lock ID.
func (s *Store) WithLockID(lockID int64) *Store {
	s.lockID = lockID
	return s
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Initialize creates the snapshot tables if they don't exist.
func (s *Store) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS patient_snapshots (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			row_count INTEGER NOT NULL,
			high_risk_count INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS patient_rows (
			snapshot_id UUID NOT NULL REFERENCES patient_snapshots(id) ON DELETE CASCADE,
			patient_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			age DOUBLE PRECISION,
			height_cm DOUBLE PRECISION,
			weight_kg DOUBLE PRECISION,
			condition TEXT NOT NULL,
			bmi DOUBLE PRECISION,
			high_risk BOOLEAN NOT NULL,
			PRIMARY KEY (snapshot_id, patient_id)
		);

		CREATE INDEX IF NOT EXISTS idx_patient_snapshots_created
		ON patient_snapshots(created_at DESC);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create snapshot tables: %w", err)
	}
	return nil
}

// Save stores t as a new snapshot. Concurrent savers are serialized with an
// advisory lock held for the duration of the transaction.
func (s *Store) Save(ctx context.Context, t patient.Table) (Snapshot, error) {
	snap := Snapshot{
		ID:       uuid.New(),
		Rows:     t.Len(),
		HighRisk: patient.Summarize(t).HighRisk,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", s.lockID); err != nil {
		return Snapshot{}, fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}

	err = tx.QueryRow(ctx,
		"INSERT INTO patient_snapshots (id, row_count, high_risk_count) VALUES ($1, $2, $3) RETURNING created_at",
		snap.ID, snap.Rows, snap.HighRisk,
	).Scan(&snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to record snapshot: %w", err)
	}

	rows := t.Rows()
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"patient_rows"},
		rowColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rowValues(snap.ID, rows[i]), nil
		}),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to copy patient rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snap, nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	query := `
		SELECT id, created_at, row_count, high_risk_count
		FROM patient_snapshots
		ORDER BY created_at DESC, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.CreatedAt, &snap.Rows, &snap.HighRisk); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Latest loads the newest snapshot.
func (s *Store) Latest(ctx context.Context) (patient.Table, Snapshot, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM patient_snapshots ORDER BY created_at DESC, id LIMIT 1",
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return patient.Table{}, Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return patient.Table{}, Snapshot{}, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	return s.Load(ctx, id)
}

// Load reads a snapshot by ID. Derived columns are recomputed from the stored
// source fields rather than trusted.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (patient.Table, Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx,
		"SELECT id, created_at, row_count, high_risk_count FROM patient_snapshots WHERE id = $1",
		id,
	).Scan(&snap.ID, &snap.CreatedAt, &snap.Rows, &snap.HighRisk)
	if errors.Is(err, pgx.ErrNoRows) {
		return patient.Table{}, Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return patient.Table{}, Snapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT name, age, height_cm, weight_kg, condition
		FROM patient_rows
		WHERE snapshot_id = $1
		ORDER BY patient_id ASC
	`, id)
	if err != nil {
		return patient.Table{}, Snapshot{}, fmt.Errorf("failed to query patient rows: %w", err)
	}
	defer rows.Close()

	var ps []patient.Patient
	for rows.Next() {
		var p patient.Patient
		var age, height, weight *float64
		if err := rows.Scan(&p.Name, &age, &height, &weight, &p.Condition); err != nil {
			return patient.Table{}, Snapshot{}, fmt.Errorf("failed to scan patient row: %w", err)
		}
		p.Age, p.HeightCM, p.WeightKG = fromNullable(age), fromNullable(height), fromNullable(weight)
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return patient.Table{}, Snapshot{}, err
	}

	return patient.FromPatients(ps), snap, nil
}

// Delete removes a snapshot and its rows.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM patient_snapshots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return nil
}

var rowColumns = []string{
	"snapshot_id", "patient_id", "name", "age", "height_cm", "weight_kg", "condition", "bmi", "high_risk",
}

func rowValues(snapshotID uuid.UUID, r patient.Record) []any {
	return []any{
		snapshotID,
		int32(r.ID),
		r.Name,
		nullable(r.Age),
		nullable(r.HeightCM),
		nullable(r.WeightKG),
		r.Condition,
		nullable(r.BMI),
		r.HighRisk,
	}
}

func nullable(n patient.Number) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float
	return &f
}

func fromNullable(f *float64) patient.Number {
	if f == nil {
		return patient.Number{}
	}
	return patient.Num(*f)
}
