package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations, each inside its own transaction.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// NewMigratorWithMigrations creates a migrator with custom migrations.
func NewMigratorWithMigrations(conn *Connection, migrations []Migration) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: migrations,
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	return nil
}

// GetAppliedMigrations returns all applied migration versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time

		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}

		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations in order.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}

		if mig.UpSQL == "" {
			return fmt.Errorf("migration %d (%s): missing up SQL", mig.Version, mig.Name)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("execute migration %d: %w", mig.Version, err)
			}

			insertQuery := fmt.Sprintf(
				"INSERT INTO %s (version, name) VALUES ($1, $2)",
				m.tableName,
			)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}

		m.conn.log.Info("migration applied",
			logger.Int("version", mig.Version),
			logger.String("name", mig.Name),
		)
	}

	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}

	if lastVersion == 0 {
		return nil // nothing to roll back
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == lastVersion {
			migration = &m.migrations[i]
			break
		}
	}

	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("migration %d: missing down SQL", lastVersion)
	}

	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("rollback migration %d: %w", lastVersion, err)
		}

		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName)
		_, err := tx.Exec(ctx, deleteQuery, lastVersion)
		return err
	})
}

// Status returns every migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)

	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_reference_data",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_users_courses",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_enrollments_lessons_attendance",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "seed_reference_data",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: REFERENCE DATA
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Reference tables (roles, levels, attendance statuses, rooms, shifts)
-- Version: 001

CREATE TABLE IF NOT EXISTS roles (
    code VARCHAR(20) PRIMARY KEY,
    label VARCHAR(50) NOT NULL
);

CREATE TABLE IF NOT EXISTS levels (
    code VARCHAR(30) PRIMARY KEY,
    label VARCHAR(50) NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attendance_statuses (
    code VARCHAR(20) PRIMARY KEY,
    label VARCHAR(50) NOT NULL,
    counts_as_present BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS rooms (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    number VARCHAR(20) NOT NULL UNIQUE,
    capacity INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_capacity CHECK (capacity >= 0)
);

CREATE TABLE IF NOT EXISTS shifts (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(50) NOT NULL UNIQUE,
    start_minutes INTEGER NOT NULL,
    end_minutes INTEGER NOT NULL,

    CONSTRAINT valid_shift_window CHECK (start_minutes >= 0 AND end_minutes > start_minutes)
);
`

const migration001Down = `
DROP TABLE IF EXISTS shifts;
DROP TABLE IF EXISTS rooms;
DROP TABLE IF EXISTS attendance_statuses;
DROP TABLE IF EXISTS levels;
DROP TABLE IF EXISTS roles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: USERS & COURSES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Users and courses
-- Version: 002

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username VARCHAR(50) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL DEFAULT '',
    password_hash VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL REFERENCES roles(code),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Usernames are unique across all roles.
CREATE UNIQUE INDEX IF NOT EXISTS uq_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role) WHERE active;

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) NOT NULL,
    level VARCHAR(30) NOT NULL REFERENCES levels(code),
    room_id UUID NOT NULL REFERENCES rooms(id),
    shift_id UUID NOT NULL REFERENCES shifts(id),
    teacher_id UUID NOT NULL REFERENCES users(id),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- At most one ACTIVE course per (room, shift). Deactivated courses free
-- their slot, so the index is partial.
CREATE UNIQUE INDEX IF NOT EXISTS uq_courses_room_shift_active
    ON courses(room_id, shift_id) WHERE active;

CREATE INDEX IF NOT EXISTS idx_courses_teacher ON courses(teacher_id) WHERE active;
`

const migration002Down = `
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ENROLLMENTS, LESSONS, ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Enrollment ledger, lesson calendar, attendance records
-- Version: 003

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES users(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    attendance_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_percentage CHECK (attendance_percentage >= 0 AND attendance_percentage <= 100),
    UNIQUE(student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id);

CREATE TABLE IF NOT EXISTS lessons (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    course_id UUID NOT NULL REFERENCES courses(id),
    lesson_date DATE NOT NULL,
    topic VARCHAR(200) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(course_id, lesson_date)
);

CREATE INDEX IF NOT EXISTS idx_lessons_course_date ON lessons(course_id, lesson_date DESC);

CREATE TABLE IF NOT EXISTS attendances (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    lesson_id UUID NOT NULL REFERENCES lessons(id),
    student_id UUID NOT NULL REFERENCES users(id),
    status VARCHAR(20) NOT NULL REFERENCES attendance_statuses(code),
    marked_by UUID NOT NULL REFERENCES users(id),
    marked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(lesson_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_attendances_student ON attendances(student_id);
CREATE INDEX IF NOT EXISTS idx_attendances_lesson ON attendances(lesson_id);
`

const migration003Down = `
DROP TABLE IF EXISTS attendances;
DROP TABLE IF EXISTS lessons;
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: SEED REFERENCE DATA
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Seed fixed reference rows
-- Version: 004

INSERT INTO roles (code, label) VALUES
    ('superadmin', 'Superadmin'),
    ('admin', 'Admin'),
    ('teacher', 'Teacher'),
    ('student', 'Student')
ON CONFLICT (code) DO NOTHING;

INSERT INTO levels (code, label, sort_order) VALUES
    ('beginner', 'Beginner', 1),
    ('elementary', 'Elementary', 2),
    ('intermediate', 'Intermediate', 3),
    ('upper_intermediate', 'Upper Intermediate', 4),
    ('advanced', 'Advanced', 5)
ON CONFLICT (code) DO NOTHING;

INSERT INTO attendance_statuses (code, label, counts_as_present) VALUES
    ('present', 'Present', TRUE),
    ('absent', 'Absent', FALSE),
    ('late', 'Late', FALSE)
ON CONFLICT (code) DO NOTHING;

INSERT INTO rooms (number, capacity) VALUES
    ('101', 16),
    ('102', 16),
    ('201', 24),
    ('202', 24),
    ('301', 12)
ON CONFLICT (number) DO NOTHING;

INSERT INTO shifts (name, start_minutes, end_minutes) VALUES
    ('Morning', 540, 660),
    ('Midday', 720, 840),
    ('Afternoon', 900, 1020),
    ('Evening', 1080, 1200)
ON CONFLICT (name) DO NOTHING;
`

const migration004Down = `
DELETE FROM shifts WHERE name IN ('Morning', 'Midday', 'Afternoon', 'Evening');
DELETE FROM rooms WHERE number IN ('101', '102', '201', '202', '301');
DELETE FROM attendance_statuses WHERE code IN ('present', 'absent', 'late');
DELETE FROM levels WHERE code IN ('beginner', 'elementary', 'intermediate', 'upper_intermediate', 'advanced');
DELETE FROM roles WHERE code IN ('superadmin', 'admin', 'teacher', 'student');
`
