package targeting

import "DocumentClassifier/internal/domain"

// RoleRule maps role keywords to the role they identify.
type RoleRule struct {
	Keywords []string
	Title    string
	Level    domain.RoleLevel
}

// DepartmentRules holds the department-specific part of the rule tables.
type DepartmentRules struct {
	Aliases []string
	Roles   []RoleRule
}

// Rules are the three signal sets the classifier evaluates.
type Rules struct {
	DepartmentIndicators []string
	RoleIndicators       []string
	CommonRoles          []RoleRule
	Departments          map[string]DepartmentRules
}

// DefaultRules returns the built-in signal tables.
func DefaultRules() Rules {
	return Rules{
		DepartmentIndicators: []string{
			"all staff",
			"all employees",
			"all members",
			"all team members",
			"all hands",
			"everyone",
			"entire department",
			"entire team",
			"whole team",
			"department-wide",
			"department wide",
			"company-wide",
			"organization-wide",
			"attention all",
			"notice to all",
			"general announcement",
			"team",
			"training",
			"safety",
			"policy update",
		},
		RoleIndicators: []string{
			"this report is for",
			"for the attention of",
			"addressed to",
			"for your review",
			"for your approval",
			"decision required",
			"approval required",
			"sign-off required",
			"action required by",
			"restricted to",
			"only for",
			"eyes only",
			"confidential",
			"performance review",
			"one-on-one",
		},
		CommonRoles: []RoleRule{
			{Keywords: []string{"ceo", "chief executive"}, Title: "Chief Executive Officer", Level: domain.LevelExecutive},
			{Keywords: []string{"coo", "chief operating officer"}, Title: "Chief Operating Officer", Level: domain.LevelExecutive},
			{Keywords: []string{"director", "vice president", "vp"}, Title: "Director", Level: domain.LevelExecutive},
			{Keywords: []string{"head of department", "department head", "hod"}, Title: "Head of Department", Level: domain.LevelManagement},
			{Keywords: []string{"manager", "managers"}, Title: "Manager", Level: domain.LevelManagement},
			{Keywords: []string{"supervisor", "supervisors"}, Title: "Supervisor", Level: domain.LevelManagement},
			{Keywords: []string{"team lead", "team leader", "senior staff"}, Title: "Team Lead", Level: domain.LevelSenior},
			{Keywords: []string{"intern", "interns", "trainee", "trainees", "apprentice", "junior staff"}, Title: "Intern", Level: domain.LevelJunior},
		},
		Departments: map[string]DepartmentRules{
			"eng": {
				Aliases: []string{"engineering", "engineers"},
				Roles: []RoleRule{
					{Keywords: []string{"cto", "chief technology officer"}, Title: "Chief Technology Officer", Level: domain.LevelExecutive},
					{Keywords: []string{"engineering manager"}, Title: "Engineering Manager", Level: domain.LevelManagement},
					{Keywords: []string{"tech lead", "technical lead", "architect"}, Title: "Tech Lead", Level: domain.LevelSenior},
					{Keywords: []string{"senior engineer", "senior developer"}, Title: "Senior Engineer", Level: domain.LevelSenior},
					{Keywords: []string{"junior engineer", "junior developer", "graduate engineer"}, Title: "Junior Engineer", Level: domain.LevelJunior},
				},
			},
			"hr": {
				Aliases: []string{"human resources", "hr", "people team"},
				Roles: []RoleRule{
					{Keywords: []string{"chro", "hr director"}, Title: "HR Director", Level: domain.LevelExecutive},
					{Keywords: []string{"hr manager"}, Title: "HR Manager", Level: domain.LevelManagement},
					{Keywords: []string{"recruiter", "hr business partner"}, Title: "HR Business Partner", Level: domain.LevelSenior},
					{Keywords: []string{"hr assistant"}, Title: "HR Assistant", Level: domain.LevelJunior},
				},
			},
			"finance": {
				Aliases: []string{"finance", "accounts"},
				Roles: []RoleRule{
					{Keywords: []string{"cfo", "chief financial officer", "finance director"}, Title: "Chief Financial Officer", Level: domain.LevelExecutive},
					{Keywords: []string{"finance manager", "controller"}, Title: "Finance Manager", Level: domain.LevelManagement},
					{Keywords: []string{"senior accountant"}, Title: "Senior Accountant", Level: domain.LevelSenior},
					{Keywords: []string{"accountant", "accounts assistant"}, Title: "Accountant", Level: domain.LevelJunior},
				},
			},
			"operations": {
				Aliases: []string{"operations", "ops"},
				Roles: []RoleRule{
					{Keywords: []string{"operations director"}, Title: "Operations Director", Level: domain.LevelExecutive},
					{Keywords: []string{"operations manager", "plant manager", "station manager"}, Title: "Operations Manager", Level: domain.LevelManagement},
					{Keywords: []string{"shift supervisor", "shift lead"}, Title: "Shift Supervisor", Level: domain.LevelSenior},
					{Keywords: []string{"operator", "technician"}, Title: "Technician", Level: domain.LevelJunior},
				},
			},
			"legal": {
				Aliases: []string{"legal", "compliance"},
				Roles: []RoleRule{
					{Keywords: []string{"general counsel", "chief compliance officer"}, Title: "General Counsel", Level: domain.LevelExecutive},
					{Keywords: []string{"legal manager", "compliance manager"}, Title: "Legal Manager", Level: domain.LevelManagement},
					{Keywords: []string{"senior counsel"}, Title: "Senior Counsel", Level: domain.LevelSenior},
					{Keywords: []string{"paralegal"}, Title: "Paralegal", Level: domain.LevelJunior},
				},
			},
			"safety": {
				Aliases: []string{"safety", "health and safety"},
				Roles: []RoleRule{
					{Keywords: []string{"safety director"}, Title: "Safety Director", Level: domain.LevelExecutive},
					{Keywords: []string{"safety manager"}, Title: "Safety Manager", Level: domain.LevelManagement},
					{Keywords: []string{"safety officer", "safety inspector"}, Title: "Safety Officer", Level: domain.LevelSenior},
				},
			},
		},
	}
}
