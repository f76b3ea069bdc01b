// Package aggregate turns raw analyzer findings into per-resource summaries
// and a cross-resource consolidated report. Everything here is pure: no
// network lookups, no clock reads beyond the caller-supplied timestamp.
package aggregate

import (
	"fmt"
	"regexp"
	"time"

	"a11y-checker/internal/analyzer"
	"a11y-checker/internal/models"
)

// topIssueLimit truncates the consolidated ranking.
const topIssueLimit = 10

var knownTypes = map[string]bool{
	models.IssueError:   true,
	models.IssueWarning: true,
	models.IssueNotice:  true,
}

var knownImpacts = map[string]bool{
	models.ImpactCritical: true,
	models.ImpactSerious:  true,
	models.ImpactModerate: true,
	models.ImpactMinor:    true,
}

var typeImpact = map[string]string{
	models.IssueError:   models.ImpactSerious,
	models.IssueWarning: models.ImpactModerate,
	models.IssueNotice:  models.ImpactMinor,
}

// ResolveImpact prefers the analyzer-supplied impact, deriving one from the
// issue type when absent.
func ResolveImpact(issueType, rawImpact string) string {
	if rawImpact != "" {
		return rawImpact
	}
	if impact, ok := typeImpact[issueType]; ok {
		return impact
	}
	return models.ImpactMinor
}

// Structured HTML_CodeSniffer codes carry the conformance level and
// criterion, e.g. WCAG2AA.Principle1.Guideline1_4.1_4_3.G18.Fail.
var wcagCodePattern = regexp.MustCompile(`WCAG2([A-Z]+)\.Principle(\d+)\.Guideline(\d+)_(\d+)\.(\d+)_(\d+)_(\d+)`)

// Bare axe-core rule names are all lowercase with hyphens.
var axeCodePattern = regexp.MustCompile(`^[a-z-]+$`)

// ClassifyWCAG extracts the conformance level and criterion number from a
// structured issue code. Bare axe codes report level AA with an unknown
// criterion; anything else is fully unknown. No external lookup happens.
func ClassifyWCAG(code string) (level, criterion string) {
	if m := wcagCodePattern.FindStringSubmatch(code); m != nil {
		return m[1], fmt.Sprintf("%s.%s.%s", m[3], m[4], m[5])
	}
	if axeCodePattern.MatchString(code) {
		return "AA", "Unknown"
	}
	return "Unknown", "Unknown"
}

// Enrich processes one raw finding: impact resolution, WCAG classification,
// help reference, and fix suggestions.
func Enrich(raw analyzer.RawIssue, cfg models.AnalyzerConfig) models.Issue {
	issue := models.Issue{
		Code:        raw.Code,
		Type:        raw.Type,
		Message:     raw.Message,
		Selector:    raw.Selector,
		Context:     raw.Context,
		Impact:      ResolveImpact(raw.Type, raw.Impact),
		HelpURL:     helpURL(raw.Code, cfg),
		Suggestions: suggestionsFor(raw.Code),
	}
	issue.WCAGLevel, issue.WCAGCriterion = ClassifyWCAG(raw.Code)
	return issue
}

// Summarize counts issues by type and impact. An issue whose type or impact
// is outside the known enumerations is left out of that breakdown but still
// counts toward Total.
func Summarize(issues []models.Issue) models.Summary {
	s := models.Summary{
		Total:    len(issues),
		ByType:   zeroTypeCounts(),
		ByImpact: zeroImpactCounts(),
	}
	for _, issue := range issues {
		if knownTypes[issue.Type] {
			s.ByType[issue.Type]++
		}
		if knownImpacts[issue.Impact] {
			s.ByImpact[issue.Impact]++
		}
	}
	return s
}

// BuildResult assembles a processed AnalysisResult from one raw analyzer
// result.
func BuildResult(raw analyzer.RawResult, cfg models.AnalyzerConfig, analyzedAt time.Time) models.AnalysisResult {
	issues := make([]models.Issue, 0, len(raw.Issues))
	for _, ri := range raw.Issues {
		issues = append(issues, Enrich(ri, cfg))
	}
	return models.AnalysisResult{
		ResourceID:    raw.ResourceID,
		DocumentTitle: defaultTitle(raw.DocumentTitle),
		AnalyzedAt:    analyzedAt,
		DurationMS:    raw.DurationMS,
		Config:        cfg,
		Summary:       Summarize(issues),
		Issues:        issues,
	}
}

// Consolidate aggregates per-resource results into one cross-resource
// report: field-wise summary sums, a per-resource breakdown, and the stable
// top-issue ranking.
func Consolidate(results []models.AnalysisResult, analyzedAt time.Time) models.ConsolidatedReport {
	report := models.ConsolidatedReport{
		AnalyzedAt:    analyzedAt,
		ResourceCount: len(results),
		Summary: models.Summary{
			ByType:   zeroTypeCounts(),
			ByImpact: zeroImpactCounts(),
		},
		Resources: make([]models.ResourceBreakdown, 0, len(results)),
	}
	if len(results) > 0 {
		report.Config = results[0].Config
	}

	for _, r := range results {
		report.Summary.Total += r.Summary.Total
		for k, v := range r.Summary.ByType {
			report.Summary.ByType[k] += v
		}
		for k, v := range r.Summary.ByImpact {
			report.Summary.ByImpact[k] += v
		}
		report.Resources = append(report.Resources, models.ResourceBreakdown{
			ResourceID: r.ResourceID,
			Total:      r.Summary.Total,
			Errors:     r.Summary.ByType[models.IssueError],
			Warnings:   r.Summary.ByType[models.IssueWarning],
			Notices:    r.Summary.ByType[models.IssueNotice],
		})
	}

	report.TopIssues = rankIssues(results)
	return report
}

// rankIssues groups issues by code across all resources, counts occurrences
// and distinct resources, and sorts descending by count. Ties keep
// first-encountered order, so identical input always ranks identically.
func rankIssues(results []models.AnalysisResult) []models.TopIssue {
	type bucket struct {
		count     int
		resources []string
		seen      map[string]bool
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, r := range results {
		for _, issue := range r.Issues {
			b, ok := buckets[issue.Code]
			if !ok {
				b = &bucket{seen: make(map[string]bool)}
				buckets[issue.Code] = b
				order = append(order, issue.Code)
			}
			b.count++
			if !b.seen[r.ResourceID] {
				b.seen[r.ResourceID] = true
				b.resources = append(b.resources, r.ResourceID)
			}
		}
	}

	ranked := make([]models.TopIssue, 0, len(order))
	for _, code := range order {
		b := buckets[code]
		ranked = append(ranked, models.TopIssue{Code: code, Count: b.count, Resources: b.resources})
	}
	// Insertion sort keeps the first-seen order among equal counts.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Count > ranked[j-1].Count; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > topIssueLimit {
		ranked = ranked[:topIssueLimit]
	}
	return ranked
}

func zeroTypeCounts() map[string]int {
	return map[string]int{
		models.IssueError:   0,
		models.IssueWarning: 0,
		models.IssueNotice:  0,
	}
}

func zeroImpactCounts() map[string]int {
	return map[string]int{
		models.ImpactCritical: 0,
		models.ImpactSerious:  0,
		models.ImpactModerate: 0,
		models.ImpactMinor:    0,
	}
}

func defaultTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}
