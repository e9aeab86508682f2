// Package visibility decides which users may see a classified document.
package visibility

import (
	"strings"

	"DocumentClassifier/internal/domain"
)

// Policy holds the switches of the visibility rule.
type Policy struct {
	// Escalation lets higher role levels see documents aimed at lower levels.
	Escalation bool
}

// Visible reports whether user may see doc: the user must belong to the primary
// or an affected department, and role-targeted documents additionally require a
// matching role in that department.
func (p Policy) Visible(doc domain.Document, user domain.User) bool {
	inScope := false
	for _, deptID := range scope(doc) {
		if _, ok := user.Membership(deptID); ok {
			inScope = true
			break
		}
	}
	if !inScope {
		return false
	}

	if doc.Targeting == nil || doc.Targeting.Type != domain.TargetRole || doc.Targeting.Role == nil {
		return true
	}

	role := doc.Targeting.Role
	deptID := role.DepartmentID
	if deptID == "" {
		deptID = doc.DepartmentID
	}
	m, ok := user.Membership(deptID)
	if !ok {
		return false
	}
	return p.RoleMatches(m, *role)
}

// RoleMatches compares a membership against the targeted role: exact title
// (case-insensitive) or equal level, plus higher levels when escalation is on.
func (p Policy) RoleMatches(m domain.Membership, role domain.RoleClassification) bool {
	if m.RoleTitle != "" && strings.EqualFold(strings.TrimSpace(m.RoleTitle), strings.TrimSpace(role.RoleTitle)) {
		return true
	}
	userRank, docRank := m.RoleLevel.Rank(), role.RoleLevel.Rank()
	if userRank == 0 || docRank == 0 {
		return false
	}
	if userRank == docRank {
		return true
	}
	return p.Escalation && userRank > docRank
}

// Recipients filters users down to those who may see doc.
func (p Policy) Recipients(doc domain.Document, users []domain.User) []string {
	var ids []string
	for _, u := range users {
		if p.Visible(doc, u) {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// DepartmentMembers returns every user holding a membership in deptID.
func DepartmentMembers(deptID string, users []domain.User) []string {
	var ids []string
	for _, u := range users {
		if _, ok := u.Membership(deptID); ok {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func scope(doc domain.Document) []string {
	out := make([]string, 0, len(doc.AffectedDepartmentIDs)+1)
	if doc.DepartmentID != "" {
		out = append(out, doc.DepartmentID)
	}
	return append(out, doc.AffectedDepartmentIDs...)
}
