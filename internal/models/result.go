package models

import "time"

type ResultStatus string

const (
	StatusComplete ResultStatus = "Complete"
	StatusError    ResultStatus = "Error"
)

// Well-known derived field names.
const (
	FieldSearchResults = "search_results"
	FieldExtractedInfo = "extracted_info"
	FieldOCRText       = "ocr_text"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResultRecord pairs an entity with the fields derived for it. It is never
// mutated after the runner emits it.
type ResultRecord struct {
	RowIndex int           `json:"row_index"`
	Entity   string        `json:"entity"`
	Fields   []Field       `json:"fields"`
	Status   ResultStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

func (r ResultRecord) Field(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// ExtractedInfo is the value shown next to the entity: the extracted field on
// success, the failure message otherwise.
func (r ResultRecord) ExtractedInfo() string {
	if r.Status == StatusError {
		return r.Message
	}
	v, _ := r.Field(FieldExtractedInfo)
	return v
}

// StatusText renders the terminal status as "Complete" or "Error: <message>".
func (r ResultRecord) StatusText() string {
	if r.Status == StatusError {
		return string(StatusError) + ": " + r.Message
	}
	return string(r.Status)
}
