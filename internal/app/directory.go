package app

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/domain"
)

// directoryFile is the YAML layout accepted by ImportDirectory.
type directoryFile struct {
	Departments []config.DepartmentConfig `yaml:"departments"`
	Users       []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Memberships []struct {
			Department string `yaml:"department"`
			RoleTitle  string `yaml:"roleTitle"`
			RoleLevel  string `yaml:"roleLevel"`
		} `yaml:"memberships"`
	} `yaml:"users"`
}

// ImportDirectory loads departments and users from YAML into the store and
// returns how many of each were written.
func (a *Application) ImportDirectory(ctx context.Context, raw []byte) (int, int, error) {
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, 0, fmt.Errorf("parse directory: %w", err)
	}

	departments := Departments(file.Departments)
	for _, d := range departments {
		if err := a.store.UpsertDepartment(ctx, d); err != nil {
			return 0, 0, err
		}
	}

	users := 0
	for _, u := range file.Users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			return len(departments), users, fmt.Errorf("user without id")
		}
		user := domain.User{ID: id, Name: strings.TrimSpace(u.Name)}
		for _, m := range u.Memberships {
			level := domain.ParseRoleLevel(m.RoleLevel)
			if m.RoleLevel != "" && level == "" {
				return len(departments), users, fmt.Errorf("user %s: unknown role level %q", id, m.RoleLevel)
			}
			user.Memberships = append(user.Memberships, domain.Membership{
				DepartmentID: strings.TrimSpace(m.Department),
				RoleTitle:    strings.TrimSpace(m.RoleTitle),
				RoleLevel:    level,
			})
		}
		if err := a.store.SaveUser(ctx, user); err != nil {
			return len(departments), users, err
		}
		users++
	}

	a.logger.Info("directory imported", "departments", len(departments), "users", users)
	return len(departments), users, nil
}
