package render

import "time"

// RenderInput is the deterministic input used for report rendering.
type RenderInput struct {
	Organization OrganizationView
	Report       ReportView
	Scopes       []ScopeLineView
	Categories   []CategoryLineView
	Disclosures  []DisclosureView
}

type OrganizationView struct {
	Name    string
	Country string
}

type ReportView struct {
	Title        string
	Framework    string
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	GeneratedAt  *time.Time
	TableVersion string
	TotalKg      string
	TotalTonnes  string
}

type ScopeLineView struct {
	Scope       string
	Description string
	TotalKg     string
	Percent     string
}

type CategoryLineView struct {
	Category     string
	Scope        string
	TotalKg      string
	ResultCount  int
	MatchedScope string
}

// DisclosureView states the factor lookup tier used for a category so the
// report is explicit about approximation levels.
type DisclosureView struct {
	Category string
	Note     string
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}
