package visibility

import (
	"reflect"
	"testing"

	"DocumentClassifier/internal/domain"
)

func member(id, dept, title string, level domain.RoleLevel) domain.User {
	return domain.User{ID: id, Memberships: []domain.Membership{{DepartmentID: dept, RoleTitle: title, RoleLevel: level}}}
}

func TestDepartmentWideDocument(t *testing.T) {
	t.Parallel()

	doc := domain.Document{
		DepartmentID:          "eng",
		AffectedDepartmentIDs: []string{"safety"},
		Targeting:             &domain.TargetingClassification{Type: domain.TargetDepartment},
	}
	users := []domain.User{
		member("u1", "eng", "Engineer", domain.LevelJunior),
		member("u2", "safety", "Officer", domain.LevelSenior),
		member("u3", "finance", "CFO", domain.LevelExecutive),
		{ID: "u4"},
	}

	got := Policy{}.Recipients(doc, users)
	if !reflect.DeepEqual(got, []string{"u1", "u2"}) {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestRoleTargetedDocument(t *testing.T) {
	t.Parallel()

	doc := domain.Document{
		DepartmentID: "eng",
		Targeting: &domain.TargetingClassification{
			Type: domain.TargetRole,
			Role: &domain.RoleClassification{DepartmentID: "eng", RoleTitle: "Engineering Manager", RoleLevel: domain.LevelManagement},
		},
	}

	tests := []struct {
		name       string
		user       domain.User
		escalation bool
		want       bool
	}{
		{"title match ignores case", member("a", "eng", "engineering manager", domain.LevelSenior), false, true},
		{"level match", member("b", "eng", "Product Manager", domain.LevelManagement), false, true},
		{"higher level without escalation", member("c", "eng", "CTO", domain.LevelExecutive), false, false},
		{"higher level with escalation", member("c", "eng", "CTO", domain.LevelExecutive), true, true},
		{"lower level with escalation", member("d", "eng", "Intern", domain.LevelJunior), true, false},
		{"other department", member("e", "hr", "Engineering Manager", domain.LevelManagement), false, false},
		{"unknown level", member("f", "eng", "Contractor", ""), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Policy{Escalation: tt.escalation}.Visible(doc, tt.user)
			if got != tt.want {
				t.Fatalf("Visible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleTargetedAffectedDepartmentMember(t *testing.T) {
	t.Parallel()

	doc := domain.Document{
		DepartmentID:          "eng",
		AffectedDepartmentIDs: []string{"hr"},
		Targeting: &domain.TargetingClassification{
			Type: domain.TargetRole,
			Role: &domain.RoleClassification{DepartmentID: "eng", RoleLevel: domain.LevelExecutive},
		},
	}
	// in scope through hr, but holds no role in eng
	if (Policy{Escalation: true}).Visible(doc, member("x", "hr", "HR Director", domain.LevelExecutive)) {
		t.Fatal("role-targeted document leaked to another department")
	}
}

func TestDepartmentMembers(t *testing.T) {
	t.Parallel()

	users := []domain.User{
		member("u1", "eng", "", ""),
		member("u2", "hr", "", ""),
		member("u3", "eng", "", ""),
	}
	if got := DepartmentMembers("eng", users); !reflect.DeepEqual(got, []string{"u1", "u3"}) {
		t.Fatalf("unexpected members %v", got)
	}
}
