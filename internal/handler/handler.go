package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/model"
	"gyftr-sheet-sync/internal/scheduler"
	"gyftr-sheet-sync/internal/service"
)

// SourceAutomation labels runs triggered by push notifications or manual
// API calls.
const SourceAutomation = "automation"

// SyncRunner is the slice of the sync engine the HTTP layer drives.
type SyncRunner interface {
	ProcessNewEmails(ctx context.Context, opts service.BatchOptions) *model.RunResult
	ProcessFromHistory(ctx context.Context, incomingHistoryID, source string) *model.RunResult
}

// Handlers holds HTTP handler dependencies
type Handlers struct {
	runner    SyncRunner
	scheduler *scheduler.Scheduler
}

// NewHandlers creates a new Handlers instance
func NewHandlers(runner SyncRunner, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		runner:    runner,
		scheduler: sched,
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhook/pubsub", h.HandlePubSub)
	router.POST("/run", h.RunBatch)

	schedulerGroup := router.Group("/scheduler")
	{
		schedulerGroup.GET("/status", h.GetSchedulerStatus)
		schedulerGroup.POST("/start", h.StartScheduler)
		schedulerGroup.POST("/stop", h.StopScheduler)
	}
}

// pubSubEnvelope is the Pub/Sub push delivery wrapper.
type pubSubEnvelope struct {
	Message struct {
		Data        string `json:"data"`
		MessageID   string `json:"messageId"`
		PublishTime string `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// gmailNotification is the decoded Gmail watch payload carried in the
// envelope's data field.
type gmailNotification struct {
	HistoryID    json.Number `json:"historyId"`
	EmailAddress string      `json:"emailAddress"`
}

// HandlePubSub processes a Gmail push notification. A payload that fails
// to decode does not abort the run: it falls back to a batch scan that
// includes read messages. The response is always 200 so Pub/Sub does not
// redeliver runs we already handled.
func (h *Handlers) HandlePubSub(c *gin.Context) {
	historyID := decodeHistoryID(c)

	var result *model.RunResult
	if historyID != "" {
		result = h.runner.ProcessFromHistory(c.Request.Context(), historyID, SourceAutomation)
	} else {
		logrus.Warn("Notification without usable history position, falling back to batch scan")
		result = h.runner.ProcessNewEmails(c.Request.Context(), service.BatchOptions{
			Source:      SourceAutomation,
			IncludeRead: true,
		})
	}

	c.JSON(http.StatusOK, result)
}

func decodeHistoryID(c *gin.Context) string {
	var envelope pubSubEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logrus.Warnf("Failed to decode Pub/Sub envelope: %v", err)
		return ""
	}
	if envelope.Message.Data == "" {
		logrus.Warn("Received Pub/Sub event with no data")
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		logrus.Warnf("Failed to decode Pub/Sub data: %v", err)
		return ""
	}

	var notification gmailNotification
	if err := json.Unmarshal(decoded, &notification); err != nil {
		logrus.Warnf("Failed to decode Gmail notification: %v", err)
		return ""
	}

	logrus.Infof("Received notification: historyId=%s email=%s",
		notification.HistoryID.String(), notification.EmailAddress)
	return notification.HistoryID.String()
}

// RunBatch triggers one batch scan page. Query parameters: max_results,
// include_read, page_token.
func (h *Handlers) RunBatch(c *gin.Context) {
	opts := service.BatchOptions{
		Source:    SourceAutomation,
		PageToken: c.Query("page_token"),
	}
	if raw := c.Query("max_results"); raw != "" {
		maxResults, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxResults <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_results must be a positive integer"})
			return
		}
		opts.MaxResults = maxResults
	}
	opts.IncludeRead = c.Query("include_read") == "true"

	result := h.runner.ProcessNewEmails(c.Request.Context(), opts)
	c.JSON(http.StatusOK, result)
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		response["scheduler"] = "running"
		response["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
	} else {
		response["scheduler"] = "stopped"
	}

	c.JSON(http.StatusOK, response)
}

// StartScheduler starts the safety-net scan scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// StopScheduler stops the safety-net scan scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// GetSchedulerStatus returns scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"next_run": h.scheduler.GetNextRun(),
		"last_run": h.scheduler.GetLastRun(),
	})
}
