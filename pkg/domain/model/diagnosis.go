package model

// FailureDiagnosis represents the result of LLM-based failure analysis of a
// failed pipeline run
type FailureDiagnosis struct {
	Category    string   `json:"category"` // e.g. "dependency", "compile", "test", "environment"
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}
