package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/training-api/internal/domain/repository"
	"github.com/yourusername/training-api/internal/handler/dto"
	"github.com/yourusername/training-api/internal/middleware"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
	"github.com/yourusername/training-api/internal/service"
	"github.com/yourusername/training-api/internal/service/attemptsession"
)

// AttemptHandler обрабатывает запросы прохождения аттестации по ссылке
// доступа. Все маршруты требуют валидного токена ссылки: linkID берется из
// контекста, проставленного middleware, и никогда из тела запроса.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler создает новый обработчик попыток прохождения
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// CheckLink проверяет ссылку доступа и возвращает содержимое аттестации.
// Невалидная или истекшая ссылка — это 200 с valid=false, а не ошибка:
// клиент показывает заглушку, а не страницу сбоя.
// GET /api/session/link
func (h *AttemptHandler) CheckLink(c *gin.Context) {
	linkID := c.GetString(middleware.ContextLinkID)

	info, err := h.attemptService.CheckLinkValidity(c.Request.Context(), linkID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	if !info.Valid {
		c.JSON(http.StatusOK, dto.LinkValidityResponse{Valid: false})
		return
	}

	c.JSON(http.StatusOK, dto.LinkValidityResponse{
		Valid:       true,
		TraineeName: info.TraineeName,
		Assessment:  dto.NewAssessmentResponse(info.Assessment, true),
	})
}

// StartAttempt создает попытку по ссылке или возвращает существующую
// вместе с сохраненными ответами.
// POST /api/session/attempt
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	linkID := c.GetString(middleware.ContextLinkID)

	attempt, err := h.attemptService.StartOrResumeAttempt(c.Request.Context(), linkID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// SaveAnswersRequest представляет запрос автосохранения ответов
type SaveAnswersRequest struct {
	Answers []dto.AttemptAnswerResponse `json:"answers" binding:"required"`
}

// SaveAnswers полностью заменяет сохраненные ответы попытки. Неполные
// ответы отбрасываются до сохранения: частичный ввод живет только на клиенте.
// PUT /api/session/attempt/answers
func (h *AttemptHandler) SaveAnswers(c *gin.Context) {
	linkID := c.GetString(middleware.ContextLinkID)

	var req SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	answers := make([]attemptsession.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answer := attemptsession.Answer{
			QuestionID:        a.QuestionID,
			SelectedChoiceIDs: a.SelectedChoiceIDs,
			Text:              a.Text,
		}
		if answer.IsComplete() {
			answers = append(answers, answer)
		}
	}

	if err := h.attemptService.SaveAnswers(c.Request.Context(), linkID, answers); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": len(answers)})
}

// SubmitAttempt фиксирует отправку попытки
// POST /api/session/attempt/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	linkID := c.GetString(middleware.ContextLinkID)

	if err := h.attemptService.SubmitAttempt(c.Request.Context(), linkID); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt submitted"})
}

// GetCertificate возвращает сертификат, выданный по попытке этой ссылки
// GET /api/session/certificate
func (h *AttemptHandler) GetCertificate(c *gin.Context) {
	linkID := c.GetString(middleware.ContextLinkID)

	certificate, err := h.attemptService.GetCertificate(c.Request.Context(), linkID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCertificateResponse(certificate))
}

// handleAttemptError преобразует ошибки сервисного слоя в HTTP-ответы
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAttemptAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": "Attempt has already been submitted"})
	case errors.Is(err, repository.ErrAttemptDeadlinePassed):
		c.JSON(http.StatusConflict, gin.H{"error": "Attempt deadline has passed"})
	case errors.Is(err, service.ErrLinkExpired):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access link has expired"})
	case errors.Is(err, service.ErrWrongLinkType):
		c.JSON(http.StatusForbidden, gin.H{"error": "Link does not grant access to this resource"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	default:
		log.Printf("[AttemptHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
