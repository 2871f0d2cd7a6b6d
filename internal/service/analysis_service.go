package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/models"
	"github.com/intertool/cardinsight_api/internal/sse"
	"github.com/intertool/cardinsight_api/internal/utils"
	"github.com/intertool/cardinsight_api/pkg/cardanalysis"
)

// Analyzer submits a card to the analysis backend.
type Analyzer interface {
	Analyze(ctx context.Context, req *cardanalysis.Request) (*cardanalysis.Response, error)
}

// AnalysisRecorder persists analysis history.
type AnalysisRecorder interface {
	Create(ctx context.Context, record *models.CardAnalysis) error
	List(ctx context.Context, page, limit int) ([]models.CardAnalysis, int, error)
}

// AnalysisInput is one upload from the card form.
type AnalysisInput struct {
	Front       *cardanalysis.Image
	Back        *cardanalysis.Image
	ManualData  string
	RequestedBy string
}

// AnalysisService validates uploads, forwards them to the analysis backend
// and keeps a history of every request.
type AnalysisService struct {
	analyzer     Analyzer
	extractor    TextExtractor
	recorder     AnalysisRecorder
	notifier     sse.Notifier
	maxImageSize int64
	now          func() time.Time
}

// NewAnalysisService creates a new AnalysisService. extractor may be nil to
// skip text pre-extraction.
func NewAnalysisService(
	analyzer Analyzer,
	extractor TextExtractor,
	recorder AnalysisRecorder,
	notifier sse.Notifier,
	maxImageSize int64,
) *AnalysisService {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &AnalysisService{
		analyzer:     analyzer,
		extractor:    extractor,
		recorder:     recorder,
		notifier:     notifier,
		maxImageSize: maxImageSize,
		now:          time.Now,
	}
}

// Analyze runs one analysis. Backend failures come back as
// *cardanalysis.APIError or wrap utils.ErrAnalysisUnavailable.
func (s *AnalysisService) Analyze(ctx context.Context, in AnalysisInput) (*models.AnalysisResult, error) {
	if in.Front == nil || len(in.Front.Data) == 0 {
		return nil, utils.ErrFrontImageRequired
	}
	if s.tooLarge(in.Front) || s.tooLarge(in.Back) {
		return nil, utils.ErrImageTooLarge
	}
	if in.Back != nil && len(in.Back.Data) == 0 {
		in.Back = nil
	}

	raw, manual, err := parseManualData(in.ManualData)
	if err != nil {
		return nil, err
	}

	req := &cardanalysis.Request{Front: in.Front, Back: in.Back}
	if raw != nil {
		req.ManualData = raw
	}
	if s.extractor != nil {
		req.DetectedText = s.detectText(ctx, in.Front, in.Back)
	}

	started := s.now()
	resp, err := s.analyzer.Analyze(ctx, req)

	record := &models.CardAnalysis{
		ID:            uuid.New().String(),
		RequestedBy:   in.RequestedBy,
		HasBackImage:  in.Back != nil,
		DetectedLines: len(req.DetectedText),
		DurationMs:    s.now().Sub(started).Milliseconds(),
		CreatedAt:     s.now(),
	}
	if manual != nil && manual.Name != "" {
		record.ManualName = sql.NullString{String: manual.Name, Valid: true}
	}
	if err != nil {
		record.Status = models.AnalysisFailed
		record.ErrorMessage = sql.NullString{String: failureMessage(err), Valid: true}
	} else {
		record.Status = models.AnalysisSuccess
		if resp.PdfURL != "" {
			record.PdfURL = sql.NullString{String: resp.PdfURL, Valid: true}
		}
	}
	s.record(ctx, record)

	if err != nil {
		log.Warn().Err(err).Str("analysis_id", record.ID).Msg("Card analysis failed")
		var apiErr *cardanalysis.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, errors.Join(utils.ErrAnalysisUnavailable, err)
	}

	log.Info().Str("analysis_id", record.ID).Int64("duration_ms", record.DurationMs).Msg("Card analysis completed")
	return &models.AnalysisResult{
		Message:      resp.Message,
		PdfURL:       resp.PdfURL,
		AnalysisData: resp.AnalysisData,
	}, nil
}

// HistoryPage is one page of recorded analyses. Page and Limit are the
// values actually applied after clamping.
type HistoryPage struct {
	Records []models.CardAnalysis
	Total   int
	Page    int
	Limit   int
}

// History returns a page of recorded analyses.
func (s *AnalysisService) History(ctx context.Context, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	records, total, err := s.recorder.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Records: records, Total: total, Page: page, Limit: limit}, nil
}

func (s *AnalysisService) tooLarge(img *cardanalysis.Image) bool {
	return img != nil && int64(len(img.Data)) > s.maxImageSize
}

// detectText never fails the analysis; extraction errors are logged and the
// backend does its own reading.
func (s *AnalysisService) detectText(ctx context.Context, images ...*cardanalysis.Image) []string {
	var lines []string
	for _, img := range images {
		if img == nil {
			continue
		}
		found, err := s.extractor.DetectLines(ctx, img.Data)
		if err != nil {
			log.Warn().Err(err).Str("filename", img.Filename).Msg("Text pre-extraction failed")
			continue
		}
		lines = append(lines, found...)
	}
	return lines
}

func (s *AnalysisService) record(ctx context.Context, record *models.CardAnalysis) {
	if s.recorder != nil {
		if err := s.recorder.Create(ctx, record); err != nil {
			log.Error().Err(err).Str("analysis_id", record.ID).Msg("Failed to record card analysis")
			return
		}
	}
	s.notifier.NotifyAnalysisRecorded(record)
}

// parseManualData accepts an empty string or a JSON object. The object is
// forwarded as sent, unknown keys included; the typed view is only used for
// the history record. An object with nothing filled in is dropped.
func parseManualData(s string) (json.RawMessage, *models.ManualCardData, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, nil, utils.ErrInvalidManualData
	}

	var data models.ManualCardData
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, nil, utils.ErrInvalidManualData
		}
	}
	if data.IsEmpty() && allBlank(fields) {
		return nil, nil, nil
	}
	return json.RawMessage(s), &data, nil
}

func allBlank(fields map[string]json.RawMessage) bool {
	for _, v := range fields {
		switch strings.TrimSpace(string(v)) {
		case `""`, "null":
		default:
			return false
		}
	}
	return true
}

func failureMessage(err error) string {
	var apiErr *cardanalysis.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
