package domain

import "strings"

// TargetingType says whether a document addresses a whole department or one role.
type TargetingType string

const (
	TargetDepartment TargetingType = "department"
	TargetRole       TargetingType = "role"
)

// RoleLevel is a coarse seniority tier.
type RoleLevel string

const (
	LevelExecutive  RoleLevel = "executive"
	LevelManagement RoleLevel = "management"
	LevelSenior     RoleLevel = "senior"
	LevelJunior     RoleLevel = "junior"
)

// Rank orders levels from junior (1) to executive (4); unknown levels rank 0.
func (l RoleLevel) Rank() int {
	switch l {
	case LevelExecutive:
		return 4
	case LevelManagement:
		return 3
	case LevelSenior:
		return 2
	case LevelJunior:
		return 1
	default:
		return 0
	}
}

// ParseRoleLevel folds case and whitespace; unknown values return "".
func ParseRoleLevel(s string) RoleLevel {
	l := RoleLevel(strings.ToLower(strings.TrimSpace(s)))
	if l.Rank() == 0 {
		return ""
	}
	return l
}

// RoleClassification details the role a role-specific document targets.
type RoleClassification struct {
	DepartmentID    string    `json:"departmentId"`
	RoleTitle       string    `json:"roleTitle"`
	RoleLevel       RoleLevel `json:"roleLevel"`
	MatchedKeywords []string  `json:"matchedKeywords"`
}

// TargetingClassification is the output of the rule-based targeting classifier.
type TargetingClassification struct {
	Type             TargetingType       `json:"type"`
	Confidence       float64             `json:"confidence"`
	Reasoning        string              `json:"reasoning"`
	DetectedPatterns []string            `json:"detectedPatterns"`
	Role             *RoleClassification `json:"role,omitempty"`
}
