package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduquiz/eduquiz-backend/internal/middleware"
	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/repository"
	"github.com/eduquiz/eduquiz-backend/internal/response"
	"github.com/eduquiz/eduquiz-backend/internal/service"
	"github.com/eduquiz/eduquiz-backend/internal/session"
	"github.com/eduquiz/eduquiz-backend/internal/validator"
)

// AttemptHandler is the student portal: browsing quizzes, running an
// attempt, and reviewing it. The WebSocket stream covers the same
// attempt operations for live clients; these REST endpoints serve
// initial page loads and clients without a socket.
type AttemptHandler struct {
	quizService    *service.QuizService
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(quizService *service.QuizService, attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{quizService: quizService, attemptService: attemptService}
}

func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptNotTaking):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotTaking)
	case errors.Is(err, service.ErrTestNotOpenYet):
		response.Fail(c, http.StatusConflict, response.ErrTestNotOpenYet)
	case errors.Is(err, service.ErrTestWindowClosed):
		response.Fail(c, http.StatusConflict, response.ErrTestWindowClosed)
	case errors.Is(err, service.ErrWrongGrade), errors.Is(err, service.ErrQuizNotPublished):
		response.Fail(c, http.StatusForbidden, response.ErrQuizNotAvailable)
	case errors.Is(err, service.ErrQuizNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, repository.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListQuizzes godoc
// GET /api/v1/student/quizzes?page=1&per_page=20
// Published quizzes for the student's grade, without questions.
func (h *AttemptHandler) ListQuizzes(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	quizzes, total, err := h.quizService.ListForStudent(c.Request.Context(), claims.Grade, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	summaries := make([]gin.H, 0, len(quizzes))
	for i := range quizzes {
		q := &quizzes[i]
		summaries = append(summaries, gin.H{
			"id":               q.ID,
			"title":            q.Title,
			"description":      q.Description,
			"kind":             q.Kind,
			"grade":            q.Grade,
			"scheduled_start":  q.ScheduledStart,
			"duration_minutes": q.DurationMinutes,
			"question_count":   len(q.Questions),
		})
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": summaries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Start godoc
// POST /api/v1/student/quizzes/:quiz_id/attempts
// Begins (or restarts) an attempt and returns the taking view.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	quizID, ok := parseIDParam(c, "quiz_id")
	if !ok {
		return
	}

	grade := claims.Grade
	student := &model.User{
		ID:       claims.UserID,
		Role:     claims.Role,
		FullName: claims.FullName,
		Grade:    &grade,
	}

	sess, err := h.attemptService.Start(c.Request.Context(), student, quizID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	view, _ := sess.Taking()
	response.Success(c, http.StatusCreated, gin.H{"attempt": view})
}

// State godoc
// GET /api/v1/student/attempts/:attempt_id
// Returns the current state with its view, for page reloads.
func (h *AttemptHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	sess, err := h.attemptService.Get(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	state := sess.State()
	payload := gin.H{"state": state}
	switch state {
	case session.StateTaking:
		payload["taking"], _ = sess.Taking()
	case session.StateResult:
		payload["result"], _ = sess.Result()
	case session.StateReview:
		payload["review"], _ = sess.Review()
	}
	response.Success(c, http.StatusOK, payload)
}

// Answer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers
// Body: {"key": "...", "ans": "..."}
func (h *AttemptHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req struct {
		Key    string `json:"key" binding:"required,max=128"`
		Answer string `json:"ans" binding:"required,max=2000"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.RecordAnswer(c.Request.Context(), attemptID, claims.UserID, req.Key, req.Answer); err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Reset godoc
// POST /api/v1/student/attempts/:attempt_id/reset
// Clears all answers; the deadline keeps running.
func (h *AttemptHandler) Reset(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	if err := h.attemptService.Reset(c.Request.Context(), attemptID, claims.UserID); err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Body: {"confirm": true}. An unconfirmed request is rejected so the
// dialog's "cancel" path can never end the attempt by accident.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !req.Confirm {
		response.Fail(c, http.StatusBadRequest, response.ErrConfirmRequired)
		return
	}

	view, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": view})
}

// Review godoc
// POST /api/v1/student/attempts/:attempt_id/review
func (h *AttemptHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attemptService.EnterReview(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"review": view})
}

// BackToResult godoc
// POST /api/v1/student/attempts/:attempt_id/result
func (h *AttemptHandler) BackToResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	view, err := h.attemptService.BackToResult(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": view})
}

// Exit godoc
// DELETE /api/v1/student/attempts/:attempt_id
// Destroys the session. Terminal from every state.
func (h *AttemptHandler) Exit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseIDParam(c, "attempt_id")
	if !ok {
		return
	}

	if err := h.attemptService.Exit(c.Request.Context(), attemptID, claims.UserID); err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// History godoc
// GET /api/v1/student/results
// The student's persisted results, newest first.
func (h *AttemptHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	results, err := h.attemptService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}
