package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the competitor product page. Required.
	URL string `json:"url" binding:"required,url"`

	// Competitor optionally names the competitor; when empty it is derived
	// from the URL host.
	Competitor string `json:"competitor,omitempty"`
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Competitor CompetitorID `json:"competitor"`
	URL        string       `json:"url"`
	Supported  bool         `json:"supported"`
	Result     PriceResult  `json:"result"`
	Timing     TimingInfo   `json:"timing"`
}

// ExportRequest is the payload for POST /api/v1/report/export.
type ExportRequest struct {
	Reports []ProductReport `json:"reports" binding:"required"`

	// Competitors restricts and orders the competitor columns. When empty
	// every competitor seen in Reports is exported, sorted by id.
	Competitors []CompetitorID `json:"competitors,omitempty"`
}

// TimingInfo breaks down the time spent serving a request.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// CompetitorsResponse is the response for GET /api/v1/competitors.
type CompetitorsResponse struct {
	Competitors []CompetitorID `json:"competitors"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	Competitors    int    `json:"competitors"`
	BrowserEnabled bool   `json:"browser_enabled"`
	ActivePages    int    `json:"active_pages,omitempty"`
	MaxPages       int    `json:"max_pages,omitempty"`
	Version        string `json:"version"`
}
