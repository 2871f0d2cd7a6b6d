package cardanalysis

import (
	"encoding/json"
	"fmt"
)

// AnalyzePath is the analysis backend endpoint.
const AnalyzePath = "/api/analyze-card"

// Multipart field names expected by the analysis backend.
const (
	FieldFrontImage   = "frontImage"
	FieldBackImage    = "backImage"
	FieldManualData   = "manualData"
	FieldDetectedText = "detectedText"
)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "Failed to analyze business card"

// Image is one uploaded side of a business card.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is the input for Analyze. Back, ManualData and DetectedText are optional.
type Request struct {
	Front        *Image
	Back         *Image
	ManualData   any
	DetectedText []string
}

// Response is the backend's success payload.
type Response struct {
	Message      string          `json:"message"`
	PdfURL       string          `json:"pdfUrl"`
	AnalysisData json.RawMessage `json:"analysisData"`
}

// errorBody is the backend's failure payload.
type errorBody struct {
	Message string `json:"message"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis backend returned %d: %s", e.StatusCode, e.Message)
}
