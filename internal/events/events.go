package events

// Engine event types published through the outbox.
const (
	EventConsumptionIngested = "consumption.ingested"
	EventEmissionComputed    = "emission.computed"
	EventFactorsReloaded     = "factors.reloaded"
	EventReportGenerated     = "report.generated"
)

// EmissionComputedPayload captures the minimal data downstream consumers
// need to react to a stored emission result.
type EmissionComputedPayload struct {
	ResultID     string `json:"result_id"`
	RecordID     string `json:"record_id"`
	OrgID        string `json:"org_id"`
	Category     string `json:"category"`
	MatchedScope string `json:"matched_scope"`
	TableVersion string `json:"table_version"`
	TotalCO2eKg  string `json:"total_co2e_kg"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p EmissionComputedPayload) ToMap() map[string]any {
	return map[string]any{
		"result_id":     p.ResultID,
		"record_id":     p.RecordID,
		"org_id":        p.OrgID,
		"category":      p.Category,
		"matched_scope": p.MatchedScope,
		"table_version": p.TableVersion,
		"total_co2e_kg": p.TotalCO2eKg,
	}
}

// FactorsReloadedPayload announces a table swap so caches can drop stale
// summaries.
type FactorsReloadedPayload struct {
	PreviousVersion string `json:"previous_version"`
	Version         string `json:"version"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p FactorsReloadedPayload) ToMap() map[string]any {
	return map[string]any{
		"previous_version": p.PreviousVersion,
		"version":          p.Version,
	}
}
