/*
Package sqlite provides a SQLite-backed implementation of the
membership storage interfaces.

PURPOSE:
  Implements membership.Store (members, plans, payments) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

AMOUNT STORAGE:
  Money columns are stored as decimal strings, never floats. They round
  -trip through shopspring/decimal so two-decimal currency arithmetic
  stays exact.

KEY TABLES:
  members:   Member records with join date, lifecycle status, plan ref
  plans:     Subscription plans (amount, cadence, active flag)
  payments:  Raw payments; the ledger is recomputed from these on
             every query, allocations are never persisted

INDEXES:
  idx_payments_member_paid_at covers the per-member fetch that feeds
  every reconciliation run (hot path).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/dues.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := membership.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - membership/types.go: Interface definitions
  - membership/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/memberly/dues-engine/dues"
	"github.com/memberly/dues-engine/membership"
)

// Store implements membership.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		cadence TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		join_date TEXT NOT NULL,
		status TEXT NOT NULL,
		plan_id TEXT REFERENCES plans(id),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_status ON members(status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		target_year INTEGER NOT NULL DEFAULT 0,
		target_month INTEGER NOT NULL DEFAULT 0,
		note TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: every reconciliation run fetches one member's payments.
	CREATE INDEX IF NOT EXISTS idx_payments_member_paid_at
		ON payments(member_id, paid_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBER STORE
// =============================================================================

// SaveMember inserts or updates a member.
func (s *Store) SaveMember(ctx context.Context, m membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO members (id, name, email, join_date, status, plan_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			join_date = excluded.join_date,
			status = excluded.status,
			plan_id = excluded.plan_id
	`

	var planID any
	if m.PlanID != "" {
		planID = m.PlanID
	}

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Email,
		m.JoinDate.UTC().Format(time.RFC3339),
		string(m.Status),
		planID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetMember retrieves a member by ID. Returns nil when absent.
func (s *Store) GetMember(ctx context.Context, id string) (*membership.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, join_date, status, plan_id, created_at FROM members WHERE id = ?",
		id,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembers returns all members ordered by ID.
func (s *Store) ListMembers(ctx context.Context) ([]membership.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, join_date, status, plan_id, created_at FROM members ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []membership.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*membership.Member, error) {
	var m membership.Member
	var email, planID sql.NullString
	var joinDate, status, createdAt string

	if err := row.Scan(&m.ID, &m.Name, &email, &joinDate, &status, &planID, &createdAt); err != nil {
		return nil, err
	}
	m.Email = email.String
	m.PlanID = planID.String
	m.Status = membership.Status(status)
	m.JoinDate, _ = time.Parse(time.RFC3339, joinDate)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

// SavePlan inserts or updates a plan.
func (s *Store) SavePlan(ctx context.Context, p membership.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO plans (id, name, amount, cadence, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			cadence = excluded.cadence,
			active = excluded.active
	`

	active := 0
	if p.Active {
		active = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Amount.String(), string(p.Cadence), active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetPlan retrieves a plan by ID. Returns nil when absent.
func (s *Store) GetPlan(ctx context.Context, id string) (*membership.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, amount, cadence, active, created_at FROM plans WHERE id = ?",
		id,
	)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlans returns all plans ordered by ID.
func (s *Store) ListPlans(ctx context.Context) ([]membership.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, amount, cadence, active, created_at FROM plans ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []membership.PlanRecord
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func scanPlan(row scanner) (*membership.PlanRecord, error) {
	var p membership.PlanRecord
	var amount, cadence, createdAt string
	var active int

	if err := row.Scan(&p.ID, &p.Name, &amount, &cadence, &active, &createdAt); err != nil {
		return nil, err
	}
	var err error
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for plan %s: %w", p.ID, err)
	}
	p.Cadence = dues.Cadence(cadence)
	p.Active = active != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

// AddPayment records a payment.
func (s *Store) AddPayment(ctx context.Context, p membership.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (id, member_id, amount, paid_at, target_year, target_month, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.MemberID, p.Amount.String(),
		p.PaidAt.UTC().Format(time.RFC3339),
		p.TargetYear, int(p.TargetMonth), p.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetPayment retrieves a payment by ID. Returns nil when absent.
func (s *Store) GetPayment(ctx context.Context, id string) (*membership.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, member_id, amount, paid_at, target_year, target_month, note, created_at FROM payments WHERE id = ?",
		id,
	)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePayment removes a mis-entered payment.
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	return err
}

// PaymentsByMember returns all payments for one member, paid-at
// ascending.
func (s *Store) PaymentsByMember(ctx context.Context, memberID string) ([]membership.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, amount, paid_at, target_year, target_month, note, created_at
		 FROM payments WHERE member_id = ? ORDER BY paid_at, id`,
		memberID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []membership.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row scanner) (*membership.PaymentRecord, error) {
	var p membership.PaymentRecord
	var amount, paidAt, createdAt string
	var note sql.NullString
	var targetMonth int

	if err := row.Scan(&p.ID, &p.MemberID, &amount, &paidAt, &p.TargetYear, &targetMonth, &note, &createdAt); err != nil {
		return nil, err
	}
	var err error
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for payment %s: %w", p.ID, err)
	}
	p.TargetMonth = time.Month(targetMonth)
	p.Note = note.String
	p.PaidAt, _ = time.Parse(time.RFC3339, paidAt)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// Reset clears all data. Dev/test only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payments", "members", "plans"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
