package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/db"
	"github.com/ziadkadry99/crewmatch/internal/syncer"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Store provides CRUD operations for tasks and users. Every successful
// create or update is reported to the synchronizer after commit; deletes
// are not.
type Store struct {
	db   *db.DB
	sync syncer.Synchronizer
}

// NewStore creates a Store backed by the given database. A nil
// synchronizer disables vector sync.
func NewStore(database *db.DB, sync syncer.Synchronizer) *Store {
	if sync == nil {
		sync = syncer.Nop{}
	}
	return &Store{db: database, sync: sync}
}

// SetSynchronizer swaps the synchronizer, e.g. inline for a worker pool.
func (s *Store) SetSynchronizer(sync syncer.Synchronizer) {
	if sync == nil {
		sync = syncer.Nop{}
	}
	s.sync = sync
}

func (s *Store) notify(ctx context.Context, entity canon.EntityType, id int64, row canon.Fields, action syncer.Action) {
	s.sync.OnWrite(ctx, syncer.WriteEvent{Entity: entity, SourceID: id, Row: row, Action: action})
}

// CreateTask inserts t and fills in its ID and timestamps.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if err := t.normalize(); err != nil {
		return err
	}
	skills, err := json.Marshal(t.SkillRequirements)
	if err != nil {
		return fmt.Errorf("marshalling skill requirements: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, trade_category, skill_requirements,
			priority, status, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.TradeCategory, string(skills),
		t.Priority, t.Status, t.Location, now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading task id: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = now, now

	s.notify(ctx, canon.Task, t.ID, t.Fields(), syncer.ActionCreate)
	return nil
}

// UpdateTask loads task id, applies fn and saves the result.
func (s *Store) UpdateTask(ctx context.Context, id int64, fn func(*Task)) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx, selectTask+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("update task", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %d: %w", id, err)
	}

	fn(t)
	t.ID = id
	if err := t.normalize(); err != nil {
		return nil, err
	}
	skills, err := json.Marshal(t.SkillRequirements)
	if err != nil {
		return nil, fmt.Errorf("marshalling skill requirements: %w", err)
	}

	t.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, trade_category = ?, skill_requirements = ?,
			priority = ?, status = ?, location = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.TradeCategory, string(skills),
		t.Priority, t.Status, t.Location, t.UpdatedAt.Format(timeLayout), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task %d: %w", id, err)
	}

	s.notify(ctx, canon.Task, t.ID, t.Fields(), syncer.ActionUpdate)
	return t, nil
}

// GetTask retrieves a single task.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, selectTask+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get task", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return t, nil
}

// DeleteTask removes the row only. The task's vector is left in place.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "tasks", id)
}

// ListTasks returns up to limit tasks with id > afterID in id order.
func (s *Store) ListTasks(ctx context.Context, afterID int64, limit int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, selectTask+` WHERE id > ? ORDER BY id LIMIT ?`, afterID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateUser inserts u and fills in its ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if err := u.normalize(); err != nil {
		return err
	}
	skills, trades, certs, err := marshalUserLists(u)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, role, primary_skills, trade_categories, experience_years,
			certifications, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Role, skills, trades, u.ExperienceYears,
		certs, u.Bio, now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now

	s.notify(ctx, canon.User, u.ID, u.Fields(), syncer.ActionCreate)
	return nil
}

// UpdateUser loads user id, applies fn and saves the result.
func (s *Store) UpdateUser(ctx context.Context, id int64, fn func(*User)) (*User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("update user", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}

	fn(u)
	u.ID = id
	if err := u.normalize(); err != nil {
		return nil, err
	}
	skills, trades, certs, err := marshalUserLists(u)
	if err != nil {
		return nil, err
	}

	u.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = tx.ExecContext(ctx, `
		UPDATE users SET name = ?, role = ?, primary_skills = ?, trade_categories = ?,
			experience_years = ?, certifications = ?, bio = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Role, skills, trades, u.ExperienceYears, certs, u.Bio,
		u.UpdatedAt.Format(timeLayout), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating user %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user %d: %w", id, err)
	}

	s.notify(ctx, canon.User, u.ID, u.Fields(), syncer.ActionUpdate)
	return u, nil
}

// GetUser retrieves a single user.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get user", fmt.Sprint(id))
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, nil
}

// DeleteUser removes the row only. The user's vector is left in place.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteRow(ctx, "users", id)
}

// ListUsers returns up to limit users with id > afterID in id order.
func (s *Store) ListUsers(ctx context.Context, afterID int64, limit int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+` WHERE id > ? ORDER BY id LIMIT ?`, afterID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Rows returns a keyset page of rows for entity, for bulk rebuilds.
func (s *Store) Rows(ctx context.Context, entity canon.EntityType, afterID int64, limit int) ([]Row, error) {
	switch entity {
	case canon.Task:
		tasks, err := s.ListTasks(ctx, afterID, limit)
		if err != nil {
			return nil, err
		}
		out := make([]Row, len(tasks))
		for i := range tasks {
			out[i] = Row{ID: tasks[i].ID, Fields: tasks[i].Fields()}
		}
		return out, nil
	case canon.User:
		users, err := s.ListUsers(ctx, afterID, limit)
		if err != nil {
			return nil, err
		}
		out := make([]Row, len(users))
		for i := range users {
			out[i] = Row{ID: users[i].ID, Fields: users[i].Fields()}
		}
		return out, nil
	}
	return nil, apperr.Validation("rows", "entity", fmt.Sprintf("unknown entity type %q", entity))
}

// Count returns the number of rows for entity.
func (s *Store) Count(ctx context.Context, entity canon.EntityType) (int, error) {
	var table string
	switch entity {
	case canon.Task:
		table = "tasks"
	case canon.User:
		table = "users"
	default:
		return 0, apperr.Validation("count", "entity", fmt.Sprintf("unknown entity type %q", entity))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) deleteRow(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("delete "+table, fmt.Sprint(id))
	}
	return nil
}

const selectTask = `
	SELECT id, title, description, trade_category, skill_requirements,
		priority, status, location, created_at, updated_at
	FROM tasks`

const selectUser = `
	SELECT id, name, role, primary_skills, trade_categories, experience_years,
		certifications, bio, created_at, updated_at
	FROM users`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*Task, error) {
	var (
		t                Task
		skills           string
		created, updated string
	)
	err := sc.Scan(&t.ID, &t.Title, &t.Description, &t.TradeCategory, &skills,
		&t.Priority, &t.Status, &t.Location, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := decodeList(skills, &t.SkillRequirements); err != nil {
		return nil, fmt.Errorf("decoding skill_requirements of task %d: %w", t.ID, err)
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}

func scanUser(sc scanner) (*User, error) {
	var (
		u                     User
		skills, trades, certs string
		created, updated      string
	)
	err := sc.Scan(&u.ID, &u.Name, &u.Role, &skills, &trades, &u.ExperienceYears,
		&certs, &u.Bio, &created, &updated)
	if err != nil {
		return nil, err
	}
	if err := decodeList(skills, &u.PrimarySkills); err != nil {
		return nil, fmt.Errorf("decoding primary_skills of user %d: %w", u.ID, err)
	}
	if err := decodeList(trades, &u.TradeCategories); err != nil {
		return nil, fmt.Errorf("decoding trade_categories of user %d: %w", u.ID, err)
	}
	if err := decodeList(certs, &u.Certifications); err != nil {
		return nil, fmt.Errorf("decoding certifications of user %d: %w", u.ID, err)
	}
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

func decodeList(raw string, dst *[]string) error {
	if raw == "" {
		*dst = []string{}
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func marshalUserLists(u *User) (skills, trades, certs string, err error) {
	var b []byte
	if b, err = json.Marshal(u.PrimarySkills); err != nil {
		return "", "", "", fmt.Errorf("marshalling primary skills: %w", err)
	}
	skills = string(b)
	if b, err = json.Marshal(u.TradeCategories); err != nil {
		return "", "", "", fmt.Errorf("marshalling trade categories: %w", err)
	}
	trades = string(b)
	if b, err = json.Marshal(u.Certifications); err != nil {
		return "", "", "", fmt.Errorf("marshalling certifications: %w", err)
	}
	certs = string(b)
	return skills, trades, certs, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
