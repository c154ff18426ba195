package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aptash/riskd/internal/engine"
	"github.com/aptash/riskd/internal/fees"
	"github.com/aptash/riskd/internal/logging"
	"github.com/aptash/riskd/internal/validation"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "riskd",
		"description": "Transaction risk scoring service",
		"version":     "0.1.0",
		"endpoints": gin.H{
			"analyze":     "POST /v1/analyze/fraud",
			"fees":        "POST /v1/estimate/fee",
			"assessments": "GET /v1/assessments",
			"stats":       "GET /v1/stats",
			"stream":      "GET /ws",
		},
	})
}

// -----------------------------------------------------------------------------
// Risk analysis
// -----------------------------------------------------------------------------

// analyzeRequest accepts loosely typed input. Numeric fields arrive from a
// variety of clients as numbers or strings; anything unparseable is coerced
// to zero rather than rejected, and the engine flags it via the rules.
type analyzeRequest struct {
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient"`
	Amount    interface{} `json:"amount"`
	Timestamp interface{} `json:"timestamp"`
}

func (s *Server) analyzeFraudHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be valid JSON",
		})
		return
	}

	sender := validation.SanitizeAddress(req.Sender)
	recipient := validation.SanitizeAddress(req.Recipient)

	if errs := validation.Validate(
		validation.MaxLength("sender", sender, validation.MaxAddressLength),
		validation.MaxLength("recipient", recipient, validation.MaxAddressLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"details": errs,
		})
		return
	}

	tx := engine.Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    coerceFloat(req.Amount, 0),
		Timestamp: int64(coerceFloat(req.Timestamp, 0)),
	}

	assessment := s.engine.Analyze(c.Request.Context(), tx)

	s.realtimeHub.BroadcastAssessment(assessment)

	c.JSON(http.StatusOK, assessment)
}

// -----------------------------------------------------------------------------
// Fee estimation
// -----------------------------------------------------------------------------

type feeRequest struct {
	Amount      interface{} `json:"amount"`
	NetworkLoad interface{} `json:"network_load"`
	Priority    string      `json:"priority"`
}

func (s *Server) estimateFeeHandler(c *gin.Context) {
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be valid JSON",
		})
		return
	}

	amount := coerceFloat(req.Amount, 0)
	load := coerceFloat(req.NetworkLoad, math.NaN()) // NaN means "not provided"

	estimate := fees.Compute(amount, load, req.Priority)

	c.JSON(http.StatusOK, estimate)
}

// -----------------------------------------------------------------------------
// Audit trail
// -----------------------------------------------------------------------------

func (s *Server) listAssessmentsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = n
	}

	assessments, err := s.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage_error",
			"message": "Failed to list assessments",
		})
		return
	}

	if assessments == nil {
		assessments = []*engine.RiskAssessment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// statsWindow bounds how far back the per-decision counts look.
const statsWindow = 500

func (s *Server) statsHandler(c *gin.Context) {
	storage := "memory"
	if s.db != nil {
		storage = "postgres"
	}

	byDecision := map[string]int{"clear": 0, "suspicious": 0, "high_risk": 0, "error": 0}
	byModel := map[string]int{}
	total := 0
	if recent, err := s.store.ListRecent(c.Request.Context(), statsWindow); err == nil {
		total = len(recent)
		for _, a := range recent {
			switch {
			case a.Status != "success":
				byDecision["error"]++
			case a.IsHighRisk:
				byDecision["high_risk"]++
			case a.IsSuspicious:
				byDecision["suspicious"]++
			default:
				byDecision["clear"]++
			}
			byModel[a.Model]++
		}
	} else {
		logging.L(c.Request.Context()).Warn("stats listing failed", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime_secs":   int64(time.Since(s.startedAt).Seconds()),
		"storage":       storage,
		"model_enabled": s.modelScorer != nil,
		"fusion_policy": s.cfg.FusionPolicy,
		"decision_mode": s.cfg.DecisionMode,
		"assessments": gin.H{
			"window":      statsWindow,
			"total":       total,
			"by_decision": byDecision,
			"by_model":    byModel,
		},
		"realtime": s.realtimeHub.Stats(),
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// coerceFloat converts a decoded JSON value to float64. Missing or
// unparseable values become def.
func coerceFloat(v interface{}, def float64) float64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return def
		}
		return x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
		return f
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return def
	}
}
