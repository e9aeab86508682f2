package targeting

import (
	"reflect"
	"strings"
	"testing"

	"DocumentClassifier/internal/domain"
)

func TestDepartmentWideTitle(t *testing.T) {
	t.Parallel()

	got := Classify("All Engineering Team Safety Training", "", "eng")
	if got.Type != domain.TargetDepartment {
		t.Fatalf("expected department targeting, got %s (%s)", got.Type, got.Reasoning)
	}
	if got.Confidence < 0.6 {
		t.Fatalf("expected confidence >= 0.6, got %f", got.Confidence)
	}
	if got.Role != nil {
		t.Fatalf("department targeting must not carry a role: %+v", got.Role)
	}
}

func TestExecutiveRoleContent(t *testing.T) {
	t.Parallel()

	got := Classify("Quarterly review", "This report is for the CEO of Engineering... management decision required", "eng")
	if got.Type != domain.TargetRole {
		t.Fatalf("expected role targeting, got %s (%s)", got.Type, got.Reasoning)
	}
	if got.Role == nil || got.Role.RoleLevel != domain.LevelExecutive {
		t.Fatalf("expected executive role, got %+v", got.Role)
	}
	if got.Role.DepartmentID != "eng" {
		t.Fatalf("unexpected department %q", got.Role.DepartmentID)
	}
	if got.Confidence != 0.7 {
		t.Fatalf("expected 0.3*1 + 0.2*2 = 0.7, got %f", got.Confidence)
	}
}

func TestRuleOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantType  domain.TargetingType
		wantConf  float64
		wantLevel domain.RoleLevel
	}{
		{
			name:      "keywords and role phrases",
			content:   "Confidential: for the supervisor and the intern",
			wantType:  domain.TargetRole,
			wantConf:  0.8,
			wantLevel: domain.LevelManagement,
		},
		{
			name:      "keywords only",
			content:   "Notes from the supervisor and the intern",
			wantType:  domain.TargetRole,
			wantConf:  0.5,
			wantLevel: domain.LevelManagement,
		},
		{
			name:     "keywords with department phrases",
			content:  "Everyone, including the intern, attends",
			wantType: domain.TargetDepartment,
			wantConf: 0.3,
		},
		{
			name:     "no signals",
			content:  "Minutes of the meeting",
			wantType: domain.TargetDepartment,
			wantConf: 0.5,
		},
		{
			name:      "capped role confidence",
			content:   "Confidential, eyes only, decision required, for your review: ceo, cto, director, architect",
			wantType:  domain.TargetRole,
			wantConf:  0.9,
			wantLevel: domain.LevelExecutive,
		},
		{
			name:      "capped keyword-only confidence",
			content:   "ceo cto director architect tech lead",
			wantType:  domain.TargetRole,
			wantConf:  0.7,
			wantLevel: domain.LevelExecutive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("", tt.content, "eng")
			if got.Type != tt.wantType {
				t.Fatalf("type = %s, want %s (%s)", got.Type, tt.wantType, got.Reasoning)
			}
			if got.Confidence != tt.wantConf {
				t.Fatalf("confidence = %f, want %f (%v)", got.Confidence, tt.wantConf, got.DetectedPatterns)
			}
			if tt.wantLevel != "" && (got.Role == nil || got.Role.RoleLevel != tt.wantLevel) {
				t.Fatalf("role = %+v, want level %s", got.Role, tt.wantLevel)
			}
		})
	}
}

func TestRolePhraseNeverLowersConfidence(t *testing.T) {
	t.Parallel()

	keywordSets := []string{"intern", "intern and supervisor", "intern, supervisor and ceo"}
	for _, kw := range keywordSets {
		only := Classify("", "Update for "+kw, "eng")
		with := Classify("", "Confidential update for "+kw, "eng")
		if with.Type != domain.TargetRole {
			t.Fatalf("%q: expected role, got %s", kw, with.Type)
		}
		if with.Confidence < only.Confidence {
			t.Fatalf("%q: with phrase %f < keyword-only %f", kw, with.Confidence, only.Confidence)
		}
	}
}

func TestDeterministic(t *testing.T) {
	t.Parallel()

	first := Classify("HR Manager briefing", "For your review: hiring plan for all human resources staff", "hr")
	for i := 0; i < 50; i++ {
		again := Classify("HR Manager briefing", "For your review: hiring plan for all human resources staff", "hr")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestWordBoundaries(t *testing.T) {
	t.Parallel()

	got := Classify("Engineering newsletter", "The vpn outage is resolved for engineering.", "eng")
	if got.Role != nil {
		t.Fatalf("unexpected role match: %+v", got.Role)
	}
}

func TestDepartmentSpecificRoleWins(t *testing.T) {
	t.Parallel()

	got := Classify("", "Message for the engineering manager", "engineering")
	if got.Role == nil || got.Role.RoleTitle != "Engineering Manager" {
		t.Fatalf("expected engineering manager, got %+v", got.Role)
	}
}

func TestRoleKeywordsContainingDepartmentWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		content   string
		dept      string
		wantTitle string
	}{
		{content: "The safety officer must inspect the loading bay on Friday.", dept: "safety", wantTitle: "Safety Officer"},
		{content: "The safety inspector visits site B next week.", dept: "safety", wantTitle: "Safety Officer"},
		{content: "The safety manager signs the contractor permits.", dept: "safety", wantTitle: "Safety Manager"},
		{content: "The safety director presents the annual figures.", dept: "safety", wantTitle: "Safety Director"},
		{content: "Team lead to approve the migration plan.", dept: "eng", wantTitle: "Team Lead"},
		{content: "Each team leader collects the rota.", dept: "eng", wantTitle: "Team Lead"},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got := Classify("Inspection rota", tt.content, tt.dept)
			if got.Type != domain.TargetRole {
				t.Fatalf("type = %s, want role (%v)", got.Type, got.DetectedPatterns)
			}
			if got.Role == nil || got.Role.RoleTitle != tt.wantTitle {
				t.Fatalf("role = %+v, want %s", got.Role, tt.wantTitle)
			}
			for _, p := range got.DetectedPatterns {
				if strings.HasPrefix(p, "department-indicator:") {
					t.Fatalf("unexpected department indicator %q", p)
				}
			}
		})
	}
}

func TestDepartmentWordOutsideRoleKeywordStillCounts(t *testing.T) {
	t.Parallel()

	got := Classify("", "Safety briefing: the safety officer walks the site.", "safety")
	if got.Type != domain.TargetDepartment {
		t.Fatalf("expected department targeting, got %s (%v)", got.Type, got.DetectedPatterns)
	}
}
