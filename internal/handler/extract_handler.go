package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/extract"
	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/response"
	"github.com/eduquiz/eduquiz-backend/internal/validator"
)

// maxPDFBytes bounds uploaded exam papers. The Gemini inline-data path
// tops out around 20 MB per request.
const maxPDFBytes = 15 << 20

// ExtractHandler exposes the AI question import endpoints.
type ExtractHandler struct {
	client *extract.Client
	log    zerolog.Logger
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(client *extract.Client, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{
		client: client,
		log:    log.With().Str("component", "extract_handler").Logger(),
	}
}

// FromPDF godoc
// POST /api/v1/teacher/extract/pdf
// Multipart field "file" with an exam paper PDF. Returns draft
// questions for the teacher to edit before saving.
func (h *ExtractHandler) FromPDF(c *gin.Context) {
	if !h.client.Enabled() {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIUnavailable)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > maxPDFBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}
	if ct := fileHeader.Header.Get("Content-Type"); ct != "application/pdf" {
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(io.LimitReader(file, maxPDFBytes))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	questions, err := h.client.ParseQuestionsFromPDF(c.Request.Context(), pdf)
	if err != nil {
		h.failExtract(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Generate godoc
// POST /api/v1/teacher/extract/generate
// Authors fresh questions for a topic instead of parsing a paper.
func (h *ExtractHandler) Generate(c *gin.Context) {
	if !h.client.Enabled() {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIUnavailable)
		return
	}

	var req struct {
		Topic   string `json:"topic" binding:"required,min=3,max=500"`
		Grade   string `json:"grade" binding:"required,oneof=10 11 12"`
		MCQ     int    `json:"mcq" binding:"min=0,max=40"`
		GroupTF int    `json:"group_tf" binding:"min=0,max=10"`
		Short   int    `json:"short" binding:"min=0,max=10"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.MCQ+req.GroupTF+req.Short == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	}

	questions, err := h.client.GenerateQuestions(c.Request.Context(), req.Topic, model.Grade(req.Grade), req.MCQ, req.GroupTF, req.Short)
	if err != nil {
		h.failExtract(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

func (h *ExtractHandler) failExtract(c *gin.Context, err error) {
	h.log.Error().Err(err).Msg("Extraction failed")
	if errors.Is(err, extract.ErrNotConfigured) {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAIUnavailable)
		return
	}
	response.Fail(c, http.StatusBadGateway, response.ErrAIExtraction)
}
