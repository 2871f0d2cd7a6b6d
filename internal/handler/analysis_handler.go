package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/middleware"
	"github.com/intertool/cardinsight_api/internal/service"
	"github.com/intertool/cardinsight_api/internal/utils"
	"github.com/intertool/cardinsight_api/pkg/cardanalysis"
)

// AnalysisHandler accepts business card uploads.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	maxImageSize    int64
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(analysisService *service.AnalysisService, maxImageSize int64) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, maxImageSize: maxImageSize}
}

// Analyze handles POST /api/analyze-card (multipart: frontImage, backImage, manualData)
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	// Two images plus form overhead.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxImageSize+(1<<20))

	front, err := h.readImage(c, cardanalysis.FieldFrontImage)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}
	if front == nil {
		respondError(c, utils.ErrFrontImageRequired, "")
		return
	}
	back, err := h.readImage(c, cardanalysis.FieldBackImage)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), service.AnalysisInput{
		Front:       front,
		Back:        back,
		ManualData:  c.PostForm(cardanalysis.FieldManualData),
		RequestedBy: c.GetString(middleware.ContextSubject),
	})
	if err != nil {
		var apiErr *cardanalysis.APIError
		if errors.As(err, &apiErr) {
			utils.Error(c, http.StatusBadGateway, "ANALYSIS_FAILED", apiErr.Message)
			return
		}
		respondError(c, err, "Failed to analyze business card")
		return
	}

	// The portal reads message, pdfUrl and analysisData at the top level.
	c.JSON(http.StatusOK, result)
}

// History handles GET /api/admin/analyses
func (h *AnalysisHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := h.analysisService.History(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err, "Failed to load analysis history")
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Analyses retrieved", res.Records, res.Page, res.Limit, res.Total)
}

// readImage returns nil when field is absent.
func (h *AnalysisHandler) readImage(c *gin.Context, field string) (*cardanalysis.Image, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	if fh.Size > h.maxImageSize {
		return nil, utils.ErrImageTooLarge
	}
	return readFileHeader(fh, h.maxImageSize)
}

func (h *AnalysisHandler) respondUploadError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		respondError(c, utils.ErrImageTooLarge, "")
		return
	}
	if errors.Is(err, utils.ErrImageTooLarge) {
		respondError(c, err, "")
		return
	}
	utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart upload")
}

func readFileHeader(fh *multipart.FileHeader, limit int64) (*cardanalysis.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, utils.ErrImageTooLarge
	}
	return &cardanalysis.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
