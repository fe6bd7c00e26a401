package models

// BatchStatus is "complete" when every product from the start index onward
// was processed, "partial" when the wall-clock budget ran out first.
type BatchStatus string

const (
	BatchComplete BatchStatus = "complete"
	BatchPartial  BatchStatus = "partial"
)

// BatchOutcome is the result of one batch driver invocation.
type BatchOutcome struct {
	Status BatchStatus

	// Reports holds one entry per fully processed product, in input order.
	Reports []ProductReport

	// TotalProcessed is len(Reports).
	TotalProcessed int

	// ResumeFrom is the index the next invocation should start at. It is
	// only meaningful for partial outcomes; for complete outcomes it equals
	// the input length.
	ResumeFrom int
}

// Complete reports whether the outcome covers the rest of the product list.
func (o *BatchOutcome) Complete() bool { return o.Status == BatchComplete }

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// Products is the full ordered product list. Required.
	Products []Product `json:"products" binding:"required"`

	// StartIndex is the resume cursor; 0 on the first call.
	StartIndex int `json:"start_index"`
}

// BatchResponse is returned by the batch and upload endpoints. The consumer
// keeps calling with start_index = resume_from until status is "complete".
type BatchResponse struct {
	Status         BatchStatus     `json:"status"`
	TotalCount     int             `json:"total_count"`
	ProcessedCount int             `json:"processed_count"`
	ResumeFrom     int             `json:"resume_from,omitempty"`
	Reports        []ProductReport `json:"reports"`
}

// NewBatchResponse converts a driver outcome over total products into the
// wire response.
func NewBatchResponse(outcome *BatchOutcome, total int) BatchResponse {
	resp := BatchResponse{
		Status:         outcome.Status,
		TotalCount:     total,
		ProcessedCount: outcome.TotalProcessed,
		Reports:        outcome.Reports,
	}
	if resp.Reports == nil {
		resp.Reports = []ProductReport{}
	}
	if outcome.Status == BatchPartial {
		resp.ResumeFrom = outcome.ResumeFrom
	}
	return resp
}
