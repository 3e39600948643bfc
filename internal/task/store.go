package task

import (
	"context"
	"fmt"
	"strings"

	"taskboard-backend/internal/authz"
	"taskboard-backend/internal/store"
)

const taskColumns = "id, title, description, status, created_by, assigned_to, created_at, updated_at"

// Store is the tasks repository. It performs no authorization itself: the
// handler decides, this layer only applies the scope it is handed.
type Store struct {
	db *store.Store
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db}
}

// Insert persists a new task.
func (s *Store) Insert(ctx context.Context, t *Task) error {
	pb := s.db.Dialect.NewParamBuilder()
	query := fmt.Sprintf(
		"INSERT INTO tasks (id, title, description, status, created_by, assigned_to) VALUES (%s, %s, %s, %s, %s, %s)",
		pb.Add(t.ID), pb.Add(t.Title), pb.Add(t.Description), pb.Add(t.Status), pb.Add(t.CreatedBy), pb.Add(t.AssignedTo),
	)
	_, err := store.Exec(ctx, s.db.DB, query, pb.Params()...)
	return s.db.Dialect.MapError(err)
}

// GetByID fetches a single task snapshot. Returns store.ErrNotFound when
// the id does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	pb := s.db.Dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = %s", taskColumns, pb.Add(id))
	row, err := store.QueryRow(ctx, s.db.DB, query, pb.Params()...)
	if err != nil {
		return nil, err
	}
	return FromRow(row), nil
}

// List returns one page of tasks visible under the given scope, ordered
// most-recently-updated first with ties broken by id.
//
// An unrestricted scope is a single query. A clause scope runs one
// sub-query per clause so each can use its column index, then merges the
// results, dropping duplicate ids (a task both created by and assigned to
// the requester matches two clauses but appears once).
func (s *Store) List(ctx context.Context, scope authz.Scope, page, perPage int) ([]*Task, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	if scope.Unrestricted {
		pb := s.db.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"SELECT %s FROM tasks ORDER BY updated_at DESC, id ASC LIMIT %s OFFSET %s",
			taskColumns, pb.Add(perPage), pb.Add(offset),
		)
		rows, err := store.QueryRows(ctx, s.db.DB, query, pb.Params()...)
		if err != nil {
			return nil, err
		}
		return fromRows(rows), nil
	}

	// Each sub-query fetches up to the end of the requested window; the
	// merged union is cut to the window afterwards.
	fetch := offset + perPage
	pages := make([][]map[string]any, 0, len(scope.Clauses))
	for _, clause := range scope.Clauses {
		pb := s.db.Dialect.NewParamBuilder()
		query := fmt.Sprintf(
			"SELECT %s FROM tasks WHERE %s = %s ORDER BY updated_at DESC, id ASC LIMIT %s",
			taskColumns, clause.Field, pb.Add(clause.Value), pb.Add(fetch),
		)
		rows, err := store.QueryRows(ctx, s.db.DB, query, pb.Params()...)
		if err != nil {
			return nil, err
		}
		pages = append(pages, rows)
	}

	merged := authz.MergeScoped(pages...)
	if offset >= len(merged) {
		return nil, nil
	}
	if offset+perPage < len(merged) {
		merged = merged[offset : offset+perPage]
	} else {
		merged = merged[offset:]
	}
	return fromRows(merged), nil
}

// Update applies the given column values to a task and bumps updated_at.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	pb := s.db.Dialect.NewParamBuilder()
	sets := make([]string, 0, len(fields)+1)
	for _, col := range []string{"title", "description", "status", "assigned_to"} {
		if v, ok := fields[col]; ok {
			sets = append(sets, fmt.Sprintf("%s = %s", col, pb.Add(v)))
		}
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = "+s.db.Dialect.NowExpr())

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = %s", strings.Join(sets, ", "), pb.Add(id))
	n, err := store.Exec(ctx, s.db.DB, query, pb.Params()...)
	if err != nil {
		return s.db.Dialect.MapError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id string) error {
	pb := s.db.Dialect.NewParamBuilder()
	query := fmt.Sprintf("DELETE FROM tasks WHERE id = %s", pb.Add(id))
	n, err := store.Exec(ctx, s.db.DB, query, pb.Params()...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func fromRows(rows []map[string]any) []*Task {
	tasks := make([]*Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, FromRow(row))
	}
	return tasks
}
