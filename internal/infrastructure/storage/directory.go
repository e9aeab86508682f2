package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

var _ ports.Directory = (*Store)(nil)

// ListDepartments returns every department ordered by name.
func (s *Store) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	query, args, err := s.builder.Select("id", "name").From("departments").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var out []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// ListUsers returns every user with their memberships.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	query, args, err := s.builder.
		Select("u.id", "u.name", "COALESCE(m.department_id, '')", "COALESCE(m.role_title, '')", "COALESCE(m.role_level, '')").
		From("users u").
		LeftJoin("memberships m ON m.user_id = u.id").
		OrderBy("u.id", "m.department_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.User
		index = map[string]int{}
	)
	for rows.Next() {
		var id, name, deptID, title, level string
		if err := rows.Scan(&id, &name, &deptID, &title, &level); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, domain.User{ID: id, Name: name})
		}
		if deptID != "" {
			out[i].Memberships = append(out[i].Memberships, domain.Membership{
				DepartmentID: deptID,
				RoleTitle:    title,
				RoleLevel:    domain.ParseRoleLevel(level),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// DepartmentMembers returns the ids of users belonging to departmentID.
func (s *Store) DepartmentMembers(ctx context.Context, departmentID string) ([]string, error) {
	query, args, err := s.builder.Select("user_id").From("memberships").
		Where(sq.Eq{"department_id": departmentID}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// UpsertDepartment inserts or renames a department.
func (s *Store) UpsertDepartment(ctx context.Context, d domain.Department) error {
	query, args, err := s.builder.Insert("departments").
		Columns("id", "name").
		Values(d.ID, d.Name).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert department %s: %w", d.ID, err)
	}
	return nil
}

// SaveUser replaces a user and their memberships.
func (s *Store) SaveUser(ctx context.Context, u domain.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, args, err := s.builder.Insert("users").
		Columns("id", "name").
		Values(u.ID, u.Name).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, args...); err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}

	del, args, err := s.builder.Delete("memberships").Where(sq.Eq{"user_id": u.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("clear memberships %s: %w", u.ID, err)
	}

	if len(u.Memberships) > 0 {
		insert := s.builder.Insert("memberships").Columns("user_id", "department_id", "role_title", "role_level")
		for _, m := range u.Memberships {
			insert = insert.Values(u.ID, m.DepartmentID, m.RoleTitle, string(m.RoleLevel))
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert memberships %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user %s: %w", u.ID, err)
	}
	return nil
}
