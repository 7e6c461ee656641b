package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
)

const uniqueViolation = "23505"

const appointmentColumns = `id, patient_id, doctor_id, scheduled_time, estimated_duration_minutes, status,
	symptoms, notes, latitude, longitude, address, fee, created_at, updated_at, payment_completed`

// pgxDB abstracts the pgx pool so tests can use pgxmock.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists appointments in the appointments table. Updates lock
// the row for the length of a transaction.
type PostgresStore struct {
	db    pgxDB
	clock clock.Clock
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, c clock.Clock) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return newPostgresStoreWithDB(pool, c)
}

func newPostgresStoreWithDB(db pgxDB, c clock.Clock) *PostgresStore {
	if db == nil {
		panic("appointments: db required")
	}
	if c == nil {
		c = clock.System()
	}
	return &PostgresStore{db: db, clock: c}
}

// Insert validates and inserts a new row.
func (s *PostgresStore) Insert(ctx context.Context, record *Appointment) (*Appointment, error) {
	a, err := prepareInsert(record, s.clock.Now())
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.Exec(ctx, query,
		a.ID,
		a.PatientID,
		a.DoctorID,
		a.ScheduledTime.UTC(),
		a.EstimatedDurationMinutes,
		string(a.Status),
		a.Symptoms,
		toPGText(a.Notes),
		a.Location.Latitude,
		a.Location.Longitude,
		a.Address,
		a.Fee,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
		a.PaymentCompleted,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrValidation, a.ID)
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return a, nil
}

// Get loads a single appointment.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// Update locks the row, applies mutate and writes the result back in one
// transaction.
func (s *PostgresStore) Update(ctx context.Context, id string, mutate Mutator) (*Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin update: %w", err)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	current, err := scanAppointment(tx.QueryRow(ctx, query, id))
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: lock row: %w", err)
	}

	next, err := applyMutation(current, mutate, s.clock.Now())
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	update := `
		UPDATE appointments
		SET scheduled_time = $2, estimated_duration_minutes = $3, status = $4, symptoms = $5,
			notes = $6, latitude = $7, longitude = $8, address = $9, updated_at = $10, payment_completed = $11
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update,
		next.ID,
		next.ScheduledTime.UTC(),
		next.EstimatedDurationMinutes,
		string(next.Status),
		next.Symptoms,
		toPGText(next.Notes),
		next.Location.Latitude,
		next.Location.Longitude,
		next.Address,
		next.UpdatedAt.UTC(),
		next.PaymentCompleted,
	); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("appointments: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit update: %w", err)
	}
	return next, nil
}

// ListByUser returns the user's appointments ordered by scheduled time.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, role directory.Role) ([]*Appointment, error) {
	if err := validateListArgs(userID, role); err != nil {
		return nil, err
	}
	column := "patient_id"
	if role == directory.RoleDoctor {
		column = "doctor_id"
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + column + ` = $1
		ORDER BY scheduled_time ASC, created_at ASC, id ASC`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by user: %w", err)
	}
	defer rows.Close()

	out := make([]*Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list by user: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
		notes  pgtype.Text
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledTime,
		&a.EstimatedDurationMinutes,
		&status,
		&a.Symptoms,
		&notes,
		&a.Location.Latitude,
		&a.Location.Longitude,
		&a.Address,
		&a.Fee,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.PaymentCompleted,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if notes.Valid {
		n := notes.String
		a.Notes = &n
	}
	return &a, nil
}

func toPGText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
