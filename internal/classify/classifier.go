package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

// ErrPriorityDefaulted marks a result whose priority was missing or invalid.
var ErrPriorityDefaulted = errors.New("priority defaulted to medium")

// ErrDepartmentInferred marks a result whose owning department came from the
// cross-department list because the named one was not allowed.
var ErrDepartmentInferred = errors.New("department inferred from cross-department analysis")

// Classifier runs classification and summary prompts against a Generator.
type Classifier struct {
	generator      ports.Generator
	timeout        time.Duration
	summaryTimeout time.Duration
	logger         *slog.Logger
}

// Options tune per-call deadlines.
type Options struct {
	Timeout        time.Duration
	SummaryTimeout time.Duration
	Logger         *slog.Logger
}

// New builds a classifier over the generative capability.
func New(generator ports.Generator, opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		generator:      generator,
		timeout:        opts.Timeout,
		summaryTimeout: opts.SummaryTimeout,
		logger:         logger,
	}
}

type rawResult struct {
	ActionPoints    []string `json:"actionPoints"`
	Department      string   `json:"department"`
	Priority        string   `json:"priority"`
	CrossDepartment struct {
		Departments          []domain.DepartmentRelevance `json:"departments"`
		CoordinationRequired bool                         `json:"coordinationRequired"`
	} `json:"crossDepartment"`
}

// Classify asks the capability for a ClassificationResult. A missing or
// unparseable result is Fatal with a ClassificationFailure and is not retried.
func (c *Classifier) Classify(ctx context.Context, in Input, title string, departments []domain.Department) domain.Outcome[domain.ClassificationResult] {
	if c.generator == nil {
		return classificationFailure("generator is not configured", nil)
	}
	if in == nil {
		return classificationFailure("no classification input", nil)
	}

	req := buildRequest(in, title, departments)

	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.generator.Run(callCtx, req)
	if err != nil {
		return classificationFailure("generation failed", err)
	}
	if isEmpty(raw) {
		return classificationFailure("capability returned no result", nil)
	}

	var parsed rawResult
	if err := json.Unmarshal(stripFences(raw), &parsed); err != nil {
		return classificationFailure("decode result", err)
	}

	out := interpret(parsed, departments)
	if out.Kind == domain.OutcomeDegraded {
		c.logger.Warn("classification result adjusted", "variant", req.Variant, "error", out.Reason)
	}
	return out
}

// Summarize returns a short English summary of the document.
func (c *Classifier) Summarize(ctx context.Context, in Input, title string) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("generator is not configured")
	}

	callCtx, cancel := withTimeout(ctx, c.summaryTimeout)
	defer cancel()

	raw, err := c.generator.Run(callCtx, buildSummaryRequest(in, title))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if isEmpty(raw) {
		return "", fmt.Errorf("generate summary: no result")
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(stripFences(raw), &out); err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", fmt.Errorf("generate summary: empty summary")
	}
	return summary, nil
}

func interpret(parsed rawResult, departments []domain.Department) domain.Outcome[domain.ClassificationResult] {
	var reasons []error

	priority, ok := parsePriority(parsed.Priority)
	if !ok {
		reasons = append(reasons, fmt.Errorf("%w: got %q", ErrPriorityDefaulted, parsed.Priority))
	}

	primary, found := resolveDepartment(parsed.Department, departments)
	cross := filterCross(parsed.CrossDepartment.Departments, departments)
	if !found {
		if len(cross) == 0 {
			return classificationFailure(fmt.Sprintf("department %q is not an allowed department", parsed.Department), nil)
		}
		primary = domain.Department{ID: cross[0].DepartmentID, Name: cross[0].Name}
		reasons = append(reasons, fmt.Errorf("%w: %q replaced by %q", ErrDepartmentInferred, parsed.Department, primary.ID))
	}

	kept := cross[:0]
	for _, d := range cross {
		if d.DepartmentID != primary.ID {
			kept = append(kept, d)
		}
	}

	result := domain.ClassificationResult{
		ActionPoints: cleanActionPoints(parsed.ActionPoints),
		Department:   primary.ID,
		Priority:     priority,
		CrossDepartment: domain.CrossDepartmentAnalysis{
			Departments:          kept,
			CoordinationRequired: parsed.CrossDepartment.CoordinationRequired && len(kept) > 0,
		},
	}

	if len(reasons) > 0 {
		return domain.Degraded(result, errors.Join(reasons...))
	}
	return domain.Ok(result)
}

func parsePriority(s string) (domain.Priority, bool) {
	switch p := domain.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return p, true
	default:
		return domain.PriorityMedium, false
	}
}

// resolveDepartment matches a name or id case-insensitively. With no allowed
// list every non-empty name is accepted as its own id.
func resolveDepartment(name string, departments []domain.Department) (domain.Department, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Department{}, false
	}
	if len(departments) == 0 {
		return domain.Department{ID: name, Name: name}, true
	}
	for _, d := range departments {
		if strings.EqualFold(d.ID, name) || strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return domain.Department{}, false
}

// filterCross keeps allowed departments at or above MinRelevance, one entry per
// department, highest relevance first.
func filterCross(in []domain.DepartmentRelevance, departments []domain.Department) []domain.DepartmentRelevance {
	seen := map[string]bool{}
	out := make([]domain.DepartmentRelevance, 0, len(in))
	for _, d := range in {
		if d.Relevance < domain.MinRelevance {
			continue
		}
		dept, ok := resolveDepartment(d.Name, departments)
		if !ok || seen[dept.ID] {
			continue
		}
		seen[dept.ID] = true

		d.DepartmentID = dept.ID
		d.Name = departmentLabel(dept)
		d.Reason = strings.TrimSpace(d.Reason)
		if d.Relevance > 1 {
			d.Relevance = 1
		}
		if d.Tags == nil {
			d.Tags = []string{}
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}

func cleanActionPoints(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func classificationFailure(reason string, cause error) domain.Outcome[domain.ClassificationResult] {
	return domain.Fatal[domain.ClassificationResult](&domain.ClassificationFailure{Reason: reason, Cause: cause})
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(raw json.RawMessage) []byte {
	b := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = bytes.TrimPrefix(b, []byte("```"))
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
