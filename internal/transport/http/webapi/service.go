package webapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"voicetrim-server-go/internal/app/services"
	"voicetrim-server-go/internal/domain/governor"
	"voicetrim-server-go/internal/platform/config"
	"voicetrim-server-go/internal/platform/errors"
	"voicetrim-server-go/internal/platform/logging"
	"voicetrim-server-go/internal/platform/storage"
	httptransport "voicetrim-server-go/internal/transport/http"
)

// Service exposes the conversation pipeline over JSON HTTP.
type Service struct {
	logger       *logging.Logger
	config       *config.Config
	conversation *services.ConversationService
	exchanges    *storage.ExchangeRepository
	startedAt    time.Time
}

// NewService creates the WebAPI transport service.
func NewService(cfg *config.Config, conversation *services.ConversationService, exchanges *storage.ExchangeRepository, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "config is required")
	}
	if conversation == nil {
		return nil, errors.New(errors.KindTransport, "webapi.new", "conversation service is required")
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}

	return &Service{
		logger:       logger,
		config:       cfg,
		conversation: conversation,
		exchanges:    exchanges,
		startedAt:    time.Now(),
	}, nil
}

// Register installs the public API routes.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/prepare_text", s.handlePrepareText)
	router.POST("/chat", s.handleChat)
	router.GET("/exchanges", s.handleExchangesGet)
	router.GET("/system", s.handleSystemGet)
	router.OPTIONS("/prepare_text", s.handleOptions)
	router.OPTIONS("/chat", s.handleOptions)

	s.logger.InfoTag("HTTP", "webapi routes registered")
	return nil
}

// RegisterSecured installs the token-protected admin routes.
func (s *Service) RegisterSecured(router *gin.RouterGroup) {
	adminGroup := router.Group("/admin")
	adminGroup.GET("/exchanges", s.handleAdminExchanges)
	adminGroup.GET("/verdicts", s.handleAdminVerdicts)
}

type prepareTextRequest struct {
	Text string `json:"text"`
}

// prepareTextResponse keeps the flat wire shape clients already depend on:
// duration and updated always, duration_before and text only when the input
// was rewritten or truncated.
type prepareTextResponse struct {
	Duration       float64  `json:"duration"`
	Updated        bool     `json:"updated"`
	Verdict        string   `json:"verdict"`
	DurationBefore *float64 `json:"duration_before,omitempty"`
	Text           *string  `json:"text,omitempty"`
}

func (s *Service) handlePrepareText(c *gin.Context) {
	var req prepareTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": `The "text" field is required.`})
		return
	}

	verdict, err := s.conversation.PrepareText(c.Request.Context(), req.Text)
	if err != nil {
		s.logger.ErrorTag("HTTP", "prepare_text failed: %v", err)
		status := http.StatusInternalServerError
		if errors.IsKind(err, errors.KindGovernor) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"message": "text preparation failed"})
		return
	}

	resp := prepareTextResponse{
		Duration: verdict.Candidate.EstimatedDuration,
		Updated:  verdict.Updated(),
		Verdict:  string(verdict.Disposition),
	}
	if verdict.Updated() {
		before := verdict.Original.EstimatedDuration
		text := verdict.Candidate.Text
		resp.DurationBefore = &before
		resp.Text = &text
	}

	s.logger.InfoTag("Governor", "prepare_text %s: %.2fs (updated=%t)", verdict.Disposition, resp.Duration, resp.Updated)
	c.JSON(http.StatusOK, resp)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	SessionID      string  `json:"session_id"`
	Reply          string  `json:"reply"`
	Verdict        string  `json:"verdict"`
	Duration       float64 `json:"duration"`
	DurationBefore float64 `json:"duration_before,omitempty"`
	Attempts       int     `json:"attempts,omitempty"`
	Updated        bool    `json:"updated"`
	AudioPath      string  `json:"audio_path,omitempty"`
}

func (s *Service) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": `The "text" field is required.`})
		return
	}

	result, err := s.conversation.HandleUtterance(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		s.logger.ErrorTag("HTTP", "chat failed: %v", err)
		status := http.StatusInternalServerError
		if errors.IsKind(err, errors.KindProvider) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"message": "chat failed"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		SessionID:      result.SessionID,
		Reply:          result.Reply,
		Verdict:        string(result.Verdict),
		Duration:       result.Duration,
		DurationBefore: result.DurationBefore,
		Attempts:       result.Attempts,
		Updated:        result.Updated,
		AudioPath:      result.AudioPath,
	})
}

func (s *Service) handleExchangesGet(c *gin.Context) {
	if s.exchanges == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "exchange storage is disabled")
		return
	}

	sessionID := c.Query("session_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var (
		records []storage.Exchange
		err     error
	)
	if sessionID != "" {
		records, err = s.exchanges.ListBySession(c.Request.Context(), sessionID, limit)
	} else {
		records, err = s.exchanges.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		s.logger.ErrorTag("Storage", "list exchanges failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to list exchanges")
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, records, "")
}

// handleSystemGet reports process health plus the governor policy in effect.
func (s *Service) handleSystemGet(c *gin.Context) {
	policy := s.conversation.Governor().Policy()

	data := gin.H{
		"uptime":           time.Since(s.startedAt).Round(time.Second).String(),
		"max_duration":     policy.MaxDuration,
		"max_attempts":     policy.MaxAttempts,
		"words_per_minute": governor.WordsPerMinute,
		"selected_llm":     s.config.Selected.LLM,
		"selected_tts":     s.config.Selected.TTS,
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		data["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		data["mem_percent"] = vm.UsedPercent
		data["mem_used"] = vm.Used
		data["mem_total"] = vm.Total
	}

	httptransport.RespondSuccess(c, http.StatusOK, data, "")
}

func (s *Service) handleAdminExchanges(c *gin.Context) {
	s.handleExchangesGet(c)
}

func (s *Service) handleAdminVerdicts(c *gin.Context) {
	if s.exchanges == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "exchange storage is disabled")
		return
	}

	counts, err := s.exchanges.CountByVerdict(c.Request.Context())
	if err != nil {
		s.logger.ErrorTag("Storage", "count verdicts failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to count verdicts")
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, counts, "")
}

func (s *Service) handleOptions(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Status(http.StatusNoContent)
}
