package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/training-api/internal/domain/entity"
	"github.com/yourusername/training-api/internal/domain/repository"
	"github.com/yourusername/training-api/internal/handler/dto"
	apperrors "github.com/yourusername/training-api/internal/pkg/errors"
	"github.com/yourusername/training-api/internal/service"
	"github.com/yourusername/training-api/pkg/auth"
)

// AssessmentHandler обрабатывает административные запросы: создание
// аттестаций, выдачу ссылок доступа и выгрузку результатов
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	linkTokens        *auth.LinkTokenService
}

// NewAssessmentHandler создает новый административный обработчик
func NewAssessmentHandler(assessmentService *service.AssessmentService, linkTokens *auth.LinkTokenService) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		linkTokens:        linkTokens,
	}
}

// CreateChoiceRequest представляет вариант ответа в запросе создания
type CreateChoiceRequest struct {
	Label     string `json:"label" binding:"required"`
	ImageURL  string `json:"image_url"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest представляет вопрос в запросе создания
type CreateQuestionRequest struct {
	Type    string                `json:"type" binding:"required,oneof=single_choice multi_choice free_text"`
	Prompt  string                `json:"prompt" binding:"required"`
	Weight  float64               `json:"weight"`
	Choices []CreateChoiceRequest `json:"choices" binding:"omitempty,dive"`
}

// CreateSectionRequest представляет секцию в запросе создания
type CreateSectionRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateAssessmentRequest представляет запрос на создание аттестации
type CreateAssessmentRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Description     string                 `json:"description"`
	Timed           bool                   `json:"timed"`
	DurationMinutes int                    `json:"duration_minutes" binding:"omitempty,min=1"`
	Sections        []CreateSectionRequest `json:"sections" binding:"required,min=1,dive"`
}

// CreateAssessment создает аттестацию вместе с секциями и вопросами
// POST /api/admin/assessments
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	var req CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	assessment := &entity.Assessment{
		Name:            req.Name,
		Description:     req.Description,
		Timed:           req.Timed,
		DurationMinutes: req.DurationMinutes,
	}
	for _, s := range req.Sections {
		section := entity.Section{
			Title:       s.Title,
			Description: s.Description,
		}
		for _, q := range s.Questions {
			question := entity.Question{
				Type:   q.Type,
				Prompt: q.Prompt,
				Weight: q.Weight,
			}
			for _, ch := range q.Choices {
				question.Choices = append(question.Choices, entity.Choice{
					Label:     ch.Label,
					ImageURL:  ch.ImageURL,
					IsCorrect: ch.IsCorrect,
				})
			}
			section.Questions = append(section.Questions, question)
		}
		assessment.Sections = append(assessment.Sections, section)
	}

	created, err := h.assessmentService.CreateAssessment(assessment)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAssessmentResponse(created, true))
}

// GetAssessment возвращает аттестацию вместе с содержимым
// GET /api/admin/assessments/:id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	assessmentID := c.GetString("assessmentID")

	assessment, err := h.assessmentService.GetAssessmentWithContent(assessmentID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAssessmentResponse(assessment, true))
}

// ListAssessments возвращает список аттестаций с фильтрацией и пагинацией
// GET /api/admin/assessments?page=1&per_page=20&search=...&timed=true
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filters := repository.AssessmentFilters{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("timed"); raw != "" {
		timed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timed filter"})
			return
		}
		filters.Timed = &timed
	}

	assessments, total, err := h.assessmentService.ListAssessments(page, perPage, filters)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedAssessmentResponse(assessments, total, page, perPage))
}

// DeleteAssessment удаляет аттестацию, если по ней нет попыток
// DELETE /api/admin/assessments/:id
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	assessmentID := c.GetString("assessmentID")

	if err := h.assessmentService.DeleteAssessment(assessmentID); err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assessment deleted"})
}

// CreateAccessLinkRequest представляет запрос на выдачу ссылки доступа
type CreateAccessLinkRequest struct {
	TraineeName   string `json:"trainee_name" binding:"required"`
	TraineeEmail  string `json:"trainee_email" binding:"omitempty,email"`
	ValidForHours int    `json:"valid_for_hours" binding:"omitempty,min=1"`
}

// CreateAccessLink выдает ссылку доступа и возвращает ее вместе с токеном.
// Токен показывается ровно один раз, в ответе на создание.
// POST /api/admin/assessments/:id/links
func (h *AssessmentHandler) CreateAccessLink(c *gin.Context) {
	assessmentID := c.GetString("assessmentID")

	var req CreateAccessLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	link, err := h.assessmentService.CreateAccessLink(assessmentID, req.TraineeName, req.TraineeEmail,
		time.Duration(req.ValidForHours)*time.Hour)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	token, err := h.linkTokens.Generate(link)
	if err != nil {
		log.Printf("[AssessmentHandler] Не удалось выпустить токен для ссылки %s: %v", link.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue link token"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewAccessLinkResponse(link, token))
}

// ListAccessLinks возвращает ссылки, выданные по аттестации (без токенов)
// GET /api/admin/assessments/:id/links
func (h *AssessmentHandler) ListAccessLinks(c *gin.Context) {
	assessmentID := c.GetString("assessmentID")

	links, err := h.assessmentService.ListAccessLinks(assessmentID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": dto.NewListAccessLinkResponse(links)})
}

// RevokeAccessLink отзывает ссылку доступа
// DELETE /api/admin/links/:link_id
func (h *AssessmentHandler) RevokeAccessLink(c *gin.Context) {
	linkID := c.GetString("accessLinkID")

	if err := h.assessmentService.RevokeAccessLink(linkID); err != nil {
		h.handleAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Access link revoked"})
}

// ExportResults выгружает результаты аттестации в CSV или XLSX
// GET /api/admin/assessments/:id/results/export?format=csv|xlsx
func (h *AssessmentHandler) ExportResults(c *gin.Context) {
	assessmentID := c.GetString("assessmentID")

	results, err := h.assessmentService.GetResults(assessmentID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	switch format {
	case "csv":
		h.exportCSV(c, results)
	case "xlsx":
		h.exportXLSX(c, results)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format. Use csv or xlsx"})
	}
}

// resultRows превращает результаты в табличные строки выгрузки
func resultRows(results *service.AssessmentResults) [][]string {
	traineeByLink := make(map[string]string, len(results.Links))
	for _, link := range results.Links {
		traineeByLink[link.ID] = link.TraineeName
	}
	total := results.Assessment.QuestionCount()

	rows := make([][]string, 0, len(results.Attempts))
	for i := range results.Attempts {
		attempt := &results.Attempts[i]
		rows = append(rows, []string{
			traineeByLink[attempt.LinkID],
			attempt.Status,
			formatExportTime(attempt.StartedAt),
			formatExportTime(attempt.SubmittedAt),
			strconv.Itoa(completeAnswerCount(attempt)),
			strconv.Itoa(total),
		})
	}
	return rows
}

// completeAnswerCount считает полные сохраненные ответы попытки
func completeAnswerCount(attempt *entity.AssessmentAttempt) int {
	count := 0
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		if strings.TrimSpace(answer.TextResponse) != "" || len(answer.SelectedChoices) > 0 {
			count++
		}
	}
	return count
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

var exportHeaders = []string{"Trainee", "Status", "Started At", "Submitted At", "Answered", "Total Questions"}

// exportCSV пишет результаты в CSV прямо в ответ
func (h *AssessmentHandler) exportCSV(c *gin.Context, results *service.AssessmentResults) {
	filename := fmt.Sprintf("results_%s.csv", results.Assessment.ID)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	w := csv.NewWriter(c.Writer)
	if err := w.Write(sanitizeRow(exportHeaders)); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи CSV: %v", err)
		return
	}
	for _, row := range resultRows(results) {
		if err := w.Write(sanitizeRow(row)); err != nil {
			log.Printf("[AssessmentHandler] Ошибка записи CSV: %v", err)
			return
		}
	}
	w.Flush()
}

// exportXLSX пишет результаты в XLSX через StreamWriter
func (h *AssessmentHandler) exportXLSX(c *gin.Context, results *service.AssessmentResults) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[AssessmentHandler] Ошибка закрытия XLSX: %v", err)
		}
	}()

	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	headerCells := make([]interface{}, len(exportHeaders))
	for i, header := range exportHeaders {
		headerCells[i] = header
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	for i, row := range resultRows(results) {
		cells := make([]interface{}, len(row))
		for j, value := range row {
			cells[j] = sanitizeForExcel(value)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, cells); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
			return
		}
	}

	if err := sw.Flush(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	filename := fmt.Sprintf("results_%s.xlsx", results.Assessment.ID)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AssessmentHandler] Ошибка записи XLSX: %v", err)
	}
}

func sanitizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, value := range row {
		out[i] = sanitizeForExcel(value)
	}
	return out
}

// sanitizeForExcel нейтрализует значения, которые Excel мог бы
// интерпретировать как формулы
func sanitizeForExcel(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

// handleAdminError преобразует ошибки сервисного слоя в HTTP-ответы
func (h *AssessmentHandler) handleAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[AssessmentHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
