package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"openai-ask/internal/chat"
	"openai-ask/internal/node"
	"openai-ask/pkg/config"
	"openai-ask/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting node sidecar server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	askNode := node.New(chat.NewClient())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(askNode, cfg, log)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("api_base", cfg.APIBase),
		zap.String("model", cfg.Model),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// askRequest is the host-facing ask body. Every field except question and
// image falls back to the configured default when omitted.
type askRequest struct {
	Question      *string  `json:"question"`
	Image         string   `json:"image"` // base64-encoded PNG/JPEG
	SystemPrompt  *string  `json:"system_prompt"`
	Model         *string  `json:"model"`
	Temperature   *float64 `json:"temperature"`
	TopP          *float64 `json:"top_p"`
	MaxTokens     *int     `json:"max_tokens"`
	TimeoutSec    *int     `json:"timeout_sec"`
	UseVision     *string  `json:"use_vision"`
	ContentSource *string  `json:"content_source"`
	MaxSide       *int     `json:"max_side"`
	ImageFormat   *string  `json:"image_format"`
	JPEGQuality   *int     `json:"jpeg_quality"`
}

// newRouter builds the HTTP surface the host editor talks to.
func newRouter(askNode *node.Node, cfg *config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Node descriptor for the host editor
		api.GET("/node", func(c *gin.Context) {
			c.JSON(http.StatusOK, node.NodeManifest())
		})

		// Run one ask invocation
		api.POST("/node/ask", func(c *gin.Context) {
			var req askRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			p := node.ParamsFromConfig(cfg)
			applyOverrides(&p, req)

			if req.Image != "" {
				imageBytes, err := base64.StdEncoding.DecodeString(req.Image)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "image must be base64-encoded"})
					return
				}
				p.Image = imageBytes
			}

			requestID := uuid.New().String()
			log.Info("Ask invocation",
				zap.String("request_id", requestID),
				zap.String("model", p.Model),
				zap.Bool("has_image", len(p.Image) > 0),
			)

			result := askNode.Ask(c.Request.Context(), p)

			c.JSON(http.StatusOK, gin.H{
				"request_id":  requestID,
				"positive":    result.Positive,
				"negative":    result.Negative,
				"answer_text": result.AnswerText,
				"raw_json":    result.RawJSON,
				"latency_ms":  result.Latency.Milliseconds(),
			})
		})
	}

	return router
}

func applyOverrides(p *node.Params, req askRequest) {
	if req.Question != nil {
		p.Question = *req.Question
	}
	if req.SystemPrompt != nil {
		p.SystemPrompt = *req.SystemPrompt
	}
	if req.Model != nil {
		p.Model = *req.Model
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		p.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		p.MaxTokens = *req.MaxTokens
	}
	if req.TimeoutSec != nil {
		p.TimeoutSec = *req.TimeoutSec
	}
	if req.UseVision != nil {
		p.UseVision = *req.UseVision
	}
	if req.ContentSource != nil {
		p.ContentSource = *req.ContentSource
	}
	if req.MaxSide != nil {
		p.MaxSide = *req.MaxSide
	}
	if req.ImageFormat != nil {
		p.ImageFormat = *req.ImageFormat
	}
	if req.JPEGQuality != nil {
		p.JPEGQuality = *req.JPEGQuality
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
