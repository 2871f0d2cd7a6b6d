package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ManualCardData is the optional hand-entered card information sent
// alongside the images.
type ManualCardData struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	DOB         string `json:"dob"`
	Address     string `json:"address"`
	Website     string `json:"website"`
	Tagline     string `json:"tagline"`
}

// IsEmpty reports whether no field was filled in.
func (m *ManualCardData) IsEmpty() bool {
	return m == nil || *m == ManualCardData{}
}

// AnalysisResult is the analysis backend's success payload.
type AnalysisResult struct {
	Message      string          `json:"message"`
	PdfURL       string          `json:"pdfUrl"`
	AnalysisData json.RawMessage `json:"analysisData"`
}

// AnalysisStatus is the outcome of a recorded analysis request.
type AnalysisStatus string

const (
	AnalysisSuccess AnalysisStatus = "success"
	AnalysisFailed  AnalysisStatus = "failed"
)

// CardAnalysis is the history record of one analysis request.
type CardAnalysis struct {
	ID            string         `db:"id" json:"id"`
	RequestedBy   string         `db:"requested_by" json:"requestedBy"`
	HasBackImage  bool           `db:"has_back_image" json:"hasBackImage"`
	ManualName    sql.NullString `db:"manual_name" json:"-"`
	DetectedLines int            `db:"detected_lines" json:"detectedLines"`
	Status        AnalysisStatus `db:"status" json:"status"`
	PdfURL        sql.NullString `db:"pdf_url" json:"-"`
	ErrorMessage  sql.NullString `db:"error_message" json:"-"`
	DurationMs    int64          `db:"duration_ms" json:"durationMs"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// MarshalJSON flattens the nullable columns.
func (a CardAnalysis) MarshalJSON() ([]byte, error) {
	type alias CardAnalysis
	return json.Marshal(struct {
		alias
		ManualName   *string `json:"manualName,omitempty"`
		PdfURL       *string `json:"pdfUrl,omitempty"`
		ErrorMessage *string `json:"errorMessage,omitempty"`
	}{
		alias:        alias(a),
		ManualName:   nullToPtr(a.ManualName),
		PdfURL:       nullToPtr(a.PdfURL),
		ErrorMessage: nullToPtr(a.ErrorMessage),
	})
}

func nullToPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
