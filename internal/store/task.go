package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/hearth/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, family_id, title, frequency, points, amount_cents, requires_approval, is_active, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var freq string
	var points, amount sql.NullInt64
	var requiresApproval, isActive int

	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &freq, &points, &amount,
		&requiresApproval, &isActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f, ok := model.ParseFrequency(freq)
	if !ok {
		return nil, fmt.Errorf("task %s: invalid stored frequency %q", t.ID, freq)
	}
	t.Frequency = f
	t.RequiresApproval = requiresApproval != 0
	t.IsActive = isActive != 0
	if points.Valid {
		p := int(points.Int64)
		t.Points = &p
	}
	if amount.Valid {
		a := amount.Int64
		t.AmountCents = &a
	}
	return &t, nil
}

func (s *TaskStore) Create(familyID, title string, freq model.Frequency, points *int, amountCents *int64, requiresApproval bool, now time.Time) (*model.Task, error) {
	id := uuid.NewString()

	var p, a sql.NullInt64
	if points != nil {
		p = sql.NullInt64{Int64: int64(*points), Valid: true}
	}
	if amountCents != nil {
		a = sql.NullInt64{Int64: *amountCents, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, family_id, title, frequency, points, amount_cents, requires_approval, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, familyID, title, string(freq), p, a, boolToInt(requiresApproval), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List(familyID string) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY is_active DESC, title ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id, title string, freq model.Frequency, points *int, amountCents *int64, requiresApproval, isActive bool, now time.Time) (*model.Task, error) {
	var p, a sql.NullInt64
	if points != nil {
		p = sql.NullInt64{Int64: int64(*points), Valid: true}
	}
	if amountCents != nil {
		a = sql.NullInt64{Int64: *amountCents, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, frequency = ?, points = ?, amount_cents = ?, requires_approval = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		title, string(freq), p, a, boolToInt(requiresApproval), boolToInt(isActive), now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}
