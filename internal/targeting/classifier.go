// Package targeting decides whether a document addresses a whole department
// or a single role inside it. It is a pure rule engine: no I/O, no errors.
package targeting

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"DocumentClassifier/internal/domain"
)

const (
	defaultConfidence = 0.5
	maxRoleConfidence = 0.9
	maxKeywordOnly    = 0.7
	maxDeptConfidence = 0.9
)

type phrase struct {
	text string
	re   *regexp.Regexp
}

type compiledRole struct {
	rule     RoleRule
	keywords []phrase
}

type compiledDepartment struct {
	aliases []string
	roles   []compiledRole
}

// Classifier evaluates the compiled rule tables.
type Classifier struct {
	deptIndicators []phrase
	roleIndicators []phrase
	common         []compiledRole
	departments    map[string]compiledDepartment
}

// New compiles the rule tables once.
func New(rules Rules) *Classifier {
	c := &Classifier{
		deptIndicators: compilePhrases(rules.DepartmentIndicators),
		roleIndicators: compilePhrases(rules.RoleIndicators),
		common:         compileRoles(rules.CommonRoles),
		departments:    make(map[string]compiledDepartment, len(rules.Departments)),
	}
	for id, d := range rules.Departments {
		c.departments[strings.ToLower(id)] = compiledDepartment{
			aliases: d.Aliases,
			roles:   compileRoles(d.Roles),
		}
	}
	return c
}

var defaultClassifier = New(DefaultRules())

// Classify runs the default rule tables.
func Classify(title, content, department string) domain.TargetingClassification {
	return defaultClassifier.Classify(title, content, department)
}

// Classify returns the targeting decision for a document declared for department.
func (c *Classifier) Classify(title, content, department string) domain.TargetingClassification {
	text := strings.ToLower(title + "\n" + content)
	deptKey := strings.ToLower(strings.TrimSpace(department))
	dept := c.lookupDepartment(deptKey)

	roles := append(append([]compiledRole{}, dept.roles...), c.common...)
	best, keywords := bestRole(roles, text)
	spans := keywordSpans(roles, text)

	var deptMatches []string
	for _, p := range c.deptIndicators {
		if matchesOutside(p.re, text, spans) {
			deptMatches = append(deptMatches, p.text)
		}
	}
	for _, alias := range departmentAliases(deptKey, dept.aliases) {
		p := "all " + alias
		if matchesOutside(phraseRegexp(p), text, spans) && !contains(deptMatches, p) {
			deptMatches = append(deptMatches, p)
		}
	}
	roleIndicators := matchPhrases(c.roleIndicators, text)

	patterns := make([]string, 0, len(keywords)+len(roleIndicators)+len(deptMatches))
	for _, k := range keywords {
		patterns = append(patterns, "role-keyword:"+k)
	}
	for _, p := range roleIndicators {
		patterns = append(patterns, "role-indicator:"+p)
	}
	for _, p := range deptMatches {
		patterns = append(patterns, "department-indicator:"+p)
	}

	roleDetail := func() *domain.RoleClassification {
		return &domain.RoleClassification{
			DepartmentID:    department,
			RoleTitle:       best.Title,
			RoleLevel:       best.Level,
			MatchedKeywords: keywords,
		}
	}

	switch {
	case len(keywords) > 0 && len(roleIndicators) > 0:
		conf := math.Min(maxRoleConfidence, 0.3*float64(len(keywords))+0.2*float64(len(roleIndicators)))
		return domain.TargetingClassification{
			Type:       domain.TargetRole,
			Confidence: round2(conf),
			Reasoning: fmt.Sprintf("matched %d role keyword(s) (%s) and %d role-specific phrase(s) (%s); targeting %s",
				len(keywords), strings.Join(keywords, ", "), len(roleIndicators), strings.Join(roleIndicators, ", "), best.Title),
			DetectedPatterns: patterns,
			Role:             roleDetail(),
		}
	case len(keywords) > 0 && len(deptMatches) == 0:
		conf := math.Min(maxKeywordOnly, 0.25*float64(len(keywords)))
		return domain.TargetingClassification{
			Type:       domain.TargetRole,
			Confidence: round2(conf),
			Reasoning: fmt.Sprintf("matched %d role keyword(s) (%s) with no department-wide phrases; targeting %s",
				len(keywords), strings.Join(keywords, ", "), best.Title),
			DetectedPatterns: patterns,
			Role:             roleDetail(),
		}
	case len(deptMatches) > 0:
		conf := math.Min(maxDeptConfidence, 0.3*float64(len(deptMatches)))
		return domain.TargetingClassification{
			Type:             domain.TargetDepartment,
			Confidence:       round2(conf),
			Reasoning:        fmt.Sprintf("matched %d department-wide phrase(s) (%s)", len(deptMatches), strings.Join(deptMatches, ", ")),
			DetectedPatterns: patterns,
		}
	default:
		return domain.TargetingClassification{
			Type:             domain.TargetDepartment,
			Confidence:       defaultConfidence,
			Reasoning:        "no targeting signals found; defaulting to department-wide",
			DetectedPatterns: patterns,
		}
	}
}

// lookupDepartment resolves a department by id, then by alias.
func (c *Classifier) lookupDepartment(key string) compiledDepartment {
	if d, ok := c.departments[key]; ok {
		return d
	}
	ids := make([]string, 0, len(c.departments))
	for id := range c.departments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, alias := range c.departments[id].aliases {
			if strings.EqualFold(alias, key) {
				return c.departments[id]
			}
		}
	}
	return compiledDepartment{}
}

// bestRole picks the most senior matched role; ties go to the rule with more
// matched keywords, then to table order. It also returns every matched keyword.
func bestRole(roles []compiledRole, text string) (RoleRule, []string) {
	var (
		best      RoleRule
		bestCount int
		all       []string
	)
	for _, r := range roles {
		matched := 0
		for _, k := range r.keywords {
			if !k.re.MatchString(text) {
				continue
			}
			matched++
			if !contains(all, k.text) {
				all = append(all, k.text)
			}
		}
		if matched == 0 {
			continue
		}
		if bestCount == 0 ||
			r.rule.Level.Rank() > best.Level.Rank() ||
			(r.rule.Level.Rank() == best.Level.Rank() && matched > bestCount) {
			best = r.rule
			bestCount = matched
		}
	}
	return best, all
}

func departmentAliases(key string, aliases []string) []string {
	out := make([]string, 0, len(aliases)+1)
	if key != "" {
		out = append(out, key)
	}
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && !contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

func compilePhrases(list []string) []phrase {
	out := make([]phrase, 0, len(list))
	for _, p := range list {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, phrase{text: p, re: phraseRegexp(p)})
	}
	return out
}

func compileRoles(rules []RoleRule) []compiledRole {
	out := make([]compiledRole, 0, len(rules))
	for _, r := range rules {
		out = append(out, compiledRole{rule: r, keywords: compilePhrases(r.Keywords)})
	}
	return out
}

// phraseRegexp anchors a phrase on word boundaries where its ends are word characters.
func phraseRegexp(p string) *regexp.Regexp {
	expr := regexp.QuoteMeta(p)
	if isWordByte(p[0]) {
		expr = `\b` + expr
	}
	if isWordByte(p[len(p)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

// keywordSpans returns the byte ranges of every role keyword occurrence in text.
func keywordSpans(roles []compiledRole, text string) [][]int {
	var spans [][]int
	for _, r := range roles {
		for _, k := range r.keywords {
			spans = append(spans, k.re.FindAllStringIndex(text, -1)...)
		}
	}
	return spans
}

// matchesOutside reports whether re matches text at least once outside every
// span, so "safety" inside "safety officer" does not count as department-wide.
func matchesOutside(re *regexp.Regexp, text string, spans [][]int) bool {
	for _, m := range re.FindAllStringIndex(text, -1) {
		covered := false
		for _, sp := range spans {
			if m[0] >= sp[0] && m[1] <= sp[1] {
				covered = true
				break
			}
		}
		if !covered {
			return true
		}
	}
	return false
}

func matchPhrases(list []phrase, text string) []string {
	var out []string
	for _, p := range list {
		if p.re.MatchString(text) {
			out = append(out, p.text)
		}
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
