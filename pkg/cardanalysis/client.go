package cardanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoFrontImage is returned when Request.Front is missing.
var ErrNoFrontImage = errors.New("front image is required")

// Client posts business card images to the analysis backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	debug      bool
}

// NewClient constructs a Client for baseURL, e.g. "http://localhost:3001".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		debug:      os.Getenv("ENV") == "development",
	}
}

// Analyze sends one multipart POST. There is no retry: a failure is returned
// to the caller as is. Non-2xx responses become *APIError carrying the
// backend's message.
func (c *Client) Analyze(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Front == nil || len(req.Front.Data) == 0 {
		return nil, ErrNoFrontImage
	}

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + AnalyzePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("front_bytes", len(req.Front.Data)).
			Bool("has_back", req.Back != nil).
			Bool("has_manual_data", req.ManualData != nil).
			Msg("[ANALYSIS] Outgoing request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Int("status_code", resp.StatusCode).
			Int("response_bytes", len(respBody)).
			Msg("[ANALYSIS] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: DefaultErrorMessage}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
		}
		return nil, apiErr
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func encodeMultipart(req *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := writeImage(w, FieldFrontImage, req.Front); err != nil {
		return nil, "", err
	}
	if req.Back != nil && len(req.Back.Data) > 0 {
		if err := writeImage(w, FieldBackImage, req.Back); err != nil {
			return nil, "", err
		}
	}
	if req.ManualData != nil {
		manual, err := json.Marshal(req.ManualData)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal manual data: %w", err)
		}
		if err := w.WriteField(FieldManualData, string(manual)); err != nil {
			return nil, "", err
		}
	}
	if len(req.DetectedText) > 0 {
		text, err := json.Marshal(req.DetectedText)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal detected text: %w", err)
		}
		if err := w.WriteField(FieldDetectedText, string(text)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeImage(w *multipart.Writer, field string, img *Image) error {
	filename := img.Filename
	if filename == "" {
		filename = field
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
