package models

// StageSpec names a stage kind and its template in a run request.
type StageSpec struct {
	Kind     string      `json:"kind" yaml:"kind"`
	Params   StageParams `json:"params" yaml:"params"`
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Language string      `json:"language,omitempty" yaml:"language,omitempty"`
}

const (
	StageKindSearch  = "search"
	StageKindExtract = "extract"
	StageKindOCR     = "ocr"
)

type PreviewRequest struct {
	Source string `json:"source"`
	Limit  int    `json:"limit,omitempty"`
}

type SheetsConnectRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Range         string `json:"range,omitempty"`
}

type PreviewResponse struct {
	Origin    string     `json:"origin"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// ProcessRequest mirrors the dashboard's /process payload. When Stages is
// empty, PromptTemplate and ExtractTemplate describe a search+extract run.
type ProcessRequest struct {
	Source          string      `json:"source"`
	MainColumn      string      `json:"mainColumn"`
	PromptTemplate  string      `json:"promptTemplate"`
	ExtractTemplate string      `json:"extractTemplate,omitempty"`
	Stages          []StageSpec `json:"stages,omitempty"`
	Offset          int         `json:"offset,omitempty"`
	Limit           int         `json:"limit,omitempty"`
}

type ProcessResponse struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type ExportRequest struct {
	Destination string `json:"destination"`
}

type ExportResponse struct {
	Destination string `json:"destination"`
	Written     int64  `json:"written"`
}

type ResultsResponse struct {
	RunID   string         `json:"run_id"`
	Results []ResultRecord `json:"results"`
}

func NewPreviewResponse(t *Table, limit int) *PreviewResponse {
	return &PreviewResponse{
		Origin:    t.Origin,
		Columns:   t.Columns,
		Rows:      t.Grid(limit),
		TotalRows: len(t.Rows),
	}
}
