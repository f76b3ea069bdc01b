package models

import "time"

// Issue types reported by the analyzer.
const (
	IssueError   = "error"
	IssueWarning = "warning"
	IssueNotice  = "notice"
)

// Impact levels, roughly ordered by severity.
const (
	ImpactCritical = "critical"
	ImpactSerious  = "serious"
	ImpactModerate = "moderate"
	ImpactMinor    = "minor"
)

// Issue is a single accessibility finding.
type Issue struct {
	Code          string   `json:"code"`
	Type          string   `json:"type"`
	Message       string   `json:"message"`
	Selector      string   `json:"selector,omitempty"`
	Context       string   `json:"context,omitempty"`
	Impact        string   `json:"impact"`
	WCAGLevel     string   `json:"wcagLevel"`
	WCAGCriterion string   `json:"wcagCriterion"`
	HelpURL       string   `json:"helpUrl,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// Summary counts issues by type and by impact. Values outside the known
// enumerations are excluded from the breakdowns but still count in Total.
type Summary struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"byType"`
	ByImpact map[string]int `json:"byImpact"`
}

// AnalyzerConfig is the configuration snapshot recorded with each result.
type AnalyzerConfig struct {
	Standard        string `json:"standard"`
	Runner          string `json:"runner"`
	IncludeWarnings bool   `json:"includeWarnings"`
	IncludeNotices  bool   `json:"includeNotices"`
}

// AnalysisResult holds processed findings for one resource.
type AnalysisResult struct {
	ResourceID    string         `json:"resourceId"`
	DocumentTitle string         `json:"documentTitle"`
	AnalyzedAt    time.Time      `json:"analyzedAt"`
	DurationMS    int64          `json:"durationMs"`
	Config        AnalyzerConfig `json:"config"`
	Summary       Summary        `json:"summary"`
	Issues        []Issue        `json:"issues"`
}

// ResourceBreakdown is one row of the consolidated per-resource table.
type ResourceBreakdown struct {
	ResourceID string `json:"resourceId"`
	Total      int    `json:"total"`
	Errors     int    `json:"errors"`
	Warnings   int    `json:"warnings"`
	Notices    int    `json:"notices"`
	ReportName string `json:"reportName,omitempty"`
}

// TopIssue is one entry of the cross-resource ranking.
type TopIssue struct {
	Code      string   `json:"code"`
	Count     int      `json:"count"`
	Resources []string `json:"resources"`
}

// ConsolidatedReport spans every resource analyzed in one job.
type ConsolidatedReport struct {
	AnalyzedAt    time.Time           `json:"analyzedAt"`
	ResourceCount int                 `json:"resourceCount"`
	Config        AnalyzerConfig      `json:"config"`
	Summary       Summary             `json:"summary"`
	Resources     []ResourceBreakdown `json:"resources"`
	TopIssues     []TopIssue          `json:"topIssues"`
}

// Artifact persistence states.
const (
	ArtifactUploaded  = "uploaded"
	ArtifactLocalOnly = "local-only"
)

// Artifact is a persisted rendering of an AnalysisResult or
// ConsolidatedReport. Container is recorded at upload time from the job's
// file type, never inferred from the key.
type Artifact struct {
	Name        string `json:"name"`
	Ext         string `json:"ext"`
	FileType    string `json:"fileType"`
	Container   string `json:"container,omitempty"`
	Key         string `json:"key,omitempty"`
	Status      string `json:"status"`
	LocalPath   string `json:"-"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}
