package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kurihiro0119/worktime-metrics/internal/aggregator"
	"github.com/kurihiro0119/worktime-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/worktime-metrics/internal/errors"
	"github.com/kurihiro0119/worktime-metrics/internal/export"
	"github.com/kurihiro0119/worktime-metrics/internal/payroll"
	"github.com/kurihiro0119/worktime-metrics/internal/storage"
)

// Handler handles API requests
type Handler struct {
	storage    storage.Storage
	aggregator aggregator.Aggregator
	payroll    *payroll.Calculator
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(store storage.Storage, agg aggregator.Aggregator, calc *payroll.Calculator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		storage:    store,
		aggregator: agg,
		payroll:    calc,
		logger:     logger,
		now:        time.Now,
	}
}

type createMemberRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" binding:"required"`
	Email      string  `json:"email"`
	HourlyRate float64 `json:"hourly_rate"`
}

type createRecordRequest struct {
	ID         string     `json:"id"`
	StartTime  time.Time  `json:"start_time" binding:"required"`
	EndTime    *time.Time `json:"end_time"`
	DurationMs int64      `json:"duration_ms"`
	Hours      *float64   `json:"hours"`
	Category   string     `json:"category"`
	Source     string     `json:"source"`
}

type setHoursRequest struct {
	Hours *float64 `json:"hours" binding:"required"`
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ListMembers returns every member
// GET /api/v1/members
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.storage.GetMembers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": members,
	})
}

// CreateMember creates or replaces a member
// POST /api/v1/members
func (h *Handler) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}
	if err := payroll.ValidateRate(req.HourlyRate); err != nil {
		respondError(c, err)
		return
	}

	now := h.now().UTC()
	member := &domain.Member{
		ID:         req.ID,
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		HourlyRate: req.HourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	if err := h.storage.SaveMember(c.Request.Context(), member); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": member,
	})
}

// GetMemberSummary returns one member's aggregate summary
// GET /api/v1/members/:member/summary
func (h *Handler) GetMemberSummary(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.aggregator.Summary(c.Request.Context(), c.Param("member"), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetMemberDaily returns one member's gap-filled daily breakdown
// GET /api/v1/members/:member/daily
func (h *Handler) GetMemberDaily(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.aggregator.Daily(c.Request.Context(), c.Param("member"), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": report,
	})
}

// CreateRecord stores a time record for a member
// POST /api/v1/members/:member/records
func (h *Handler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}

	now := h.now().UTC()
	record := &domain.TimeRecord{
		ID:         req.ID,
		OwnerID:    c.Param("member"),
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime,
		DurationMs: req.DurationMs,
		Category:   domain.NormalizeCategory(req.Category),
		Source:     req.Source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Hours != nil {
		if *req.Hours < 0 {
			respondError(c, apperrors.NewBadRequestError("hours must not be negative"))
			return
		}
		record.DurationMs = hoursToMillis(*req.Hours)
		if record.Source == "" {
			record.Source = "manual"
		}
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if err := h.storage.SaveRecord(c.Request.Context(), record); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": record,
	})
}

// SetRecordHours replaces the worked hours of a record
// PATCH /api/v1/records/:id/hours
func (h *Handler) SetRecordHours(c *gin.Context) {
	var req setHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}
	if *req.Hours < 0 {
		respondError(c, apperrors.NewBadRequestError("hours must not be negative"))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.storage.UpdateRecordDuration(ctx, id, hoursToMillis(*req.Hours)); err != nil {
		respondError(c, err)
		return
	}
	record, err := h.storage.GetRecord(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": record,
	})
}

// GetMemberPayroll returns one member's payroll projection
// GET /api/v1/members/:member/payroll
func (h *Handler) GetMemberPayroll(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rate, err := parseRate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	line, err := h.payroll.ForMember(c.Request.Context(), c.Param("member"), q, rate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": line,
	})
}

// CreatePayment marks a member as paid for the period
// POST /api/v1/members/:member/payments
func (h *Handler) CreatePayment(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rate, err := parseRate(c)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, err := h.payroll.MarkPaid(c.Request.Context(), c.Param("member"), q, rate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": payment,
	})
}

// GetPayroll returns payroll for every member
// GET /api/v1/payroll
func (h *Handler) GetPayroll(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	lines, err := h.payroll.ForAll(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": lines,
	})
}

// ExportPayrollCSV streams payroll for every member as CSV
// GET /api/v1/payroll/export.csv
func (h *Handler) ExportPayrollCSV(c *gin.Context) {
	q, err := h.parsePeriodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	lines, err := h.payroll.ForAll(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("payroll-%s.csv", h.now().In(h.aggregator.Location()).Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := export.WritePayrollCSV(c.Writer, lines); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "writing payroll csv", "error", err)
	}
}

// parsePeriodQuery reads period, start, end and days from the query string
func (h *Handler) parsePeriodQuery(c *gin.Context) (aggregator.PeriodQuery, error) {
	days, err := parseIntQuery(c, "days", 0)
	if err != nil {
		return aggregator.PeriodQuery{}, err
	}
	return aggregator.ParsePeriodQuery(c.Query("period"), c.Query("start"), c.Query("end"), days, h.aggregator.Location())
}

// parseIntQuery parses an integer query parameter
func parseIntQuery(c *gin.Context, key string, defaultValue int) (int, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, apperrors.NewBadRequestError(fmt.Sprintf("%s must be an integer", key))
	}
	return value, nil
}

// parseRate reads the optional hourly rate override
func parseRate(c *gin.Context) (*float64, error) {
	valueStr := c.Query("rate")
	if valueStr == "" {
		return nil, nil
	}
	rate, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil, apperrors.NewBadRequestError("rate must be a number")
	}
	if err := payroll.ValidateRate(rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

func hoursToMillis(hours float64) int64 {
	return int64(math.Round(hours * domain.MsPerHour))
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(statusFor(appErr.Code), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": "internal server error",
		},
	})
}

func statusFor(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeBadRequest, apperrors.ErrCodeInvalidRange, apperrors.ErrCodeInvalidRate:
		return http.StatusBadRequest
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
