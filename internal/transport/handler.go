package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vincent-vinf/go-jsend"

	"github.com/WahaajTauqir/hallal-classifier/internal/config"
	"github.com/WahaajTauqir/hallal-classifier/internal/coordinator"
	"github.com/WahaajTauqir/hallal-classifier/internal/ecodes"
	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
	"github.com/WahaajTauqir/hallal-classifier/internal/gateway"
	"github.com/WahaajTauqir/hallal-classifier/internal/imaging"
	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
)

// minImageDim is the smallest image side accepted for analysis. Anything
// below this cannot carry a readable ingredient list, so it is rejected
// before a model call is spent on it.
const minImageDim = 32

type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=upload capture barcode"`
}

type StageResponse struct {
	PreviewID string `json:"previewId"`
}

type ChatOpenResponse struct {
	ChatID string `json:"chatId"`
}

// ChatGateway is the conversational surface of the classification gateway.
type ChatGateway interface {
	OpenChat() *gateway.ChatSession
	Chat(id string) (*gateway.ChatSession, error)
	SendMessage(ctx context.Context, session *gateway.ChatSession, text string) (<-chan string, error)
}

func NewHandler(coord *coordinator.Coordinator, chats ChatGateway, codec imaging.Codec, cfg *config.Config) http.Handler {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		corsMiddleware(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	if cfg.StaticDir != "" {
		registerStatics(r, cfg.StaticDir)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})

	r.GET("/health", healthCheck)

	api := r.Group("/api")
	api.PUT("/mode", setMode(coord, cfg))
	api.POST("/mode/barcode/ready", scannerReady(coord, cfg))
	api.POST("/images", stageImage(coord, codec))
	api.GET("/images/preview/:id", servePreview(coord))
	api.POST("/analyze", analyzeStaged(coord, cfg))
	api.POST("/capture", captureAndAnalyze(coord, cfg))
	api.GET("/status", getStatus(coord))
	api.GET("/ecodes", listEcodeTable)
	api.POST("/chat", openChat(chats))
	api.GET("/chat/:id/stream", streamChat(chats, cfg))

	return r
}

func setMode(coord *coordinator.Coordinator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("mode must be one of upload, capture, barcode", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		if err := coord.SetMode(ctx, coordinator.Mode(req.Mode)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, jsend.Success(coord.Status()))
	}
}

func scannerReady(coord *coordinator.Coordinator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		if err := coord.ConfirmScannerReady(ctx); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, jsend.Success(coord.Status()))
	}
}

func stageImage(coord *coordinator.Coordinator, codec imaging.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		blob, err := readImageBody(c)
		if err != nil {
			respondError(c, err)
			return
		}

		width, height, err := codec.Dimensions(blob)
		if err != nil {
			respondError(c, err)
			return
		}
		if width < minImageDim || height < minImageDim {
			respondError(c, apperrors.NewValidationError(
				fmt.Sprintf("image %dx%d is too small to analyze", width, height), nil))
			return
		}

		id, err := coord.StageImage(blob)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"preview_id": id,
			"bytes":      len(blob),
			"ip":         c.ClientIP(),
		}).Info("Image staged")
		c.JSON(http.StatusCreated, jsend.Success(StageResponse{PreviewID: id}))
	}
}

// readImageBody accepts either a multipart form with an "image" file field or
// a raw image request body.
func readImageBody(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("image"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, apperrors.NewValidationError("could not read uploaded file", err)
		}
		defer f.Close()
		blob, err := io.ReadAll(f)
		if err != nil {
			return nil, apperrors.NewValidationError("could not read uploaded file", err)
		}
		return blob, nil
	}

	blob, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperrors.NewValidationError("could not read request body", err)
	}
	if len(blob) == 0 {
		return nil, apperrors.NewValidationError("empty image payload", nil)
	}
	return blob, nil
}

func servePreview(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		blob, err := coord.Preview(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, http.DetectContentType(blob), blob)
	}
}

func analyzeStaged(coord *coordinator.Coordinator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		result, err := coord.Analyze(ctx)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"overall_status":      result.OverallStatus,
			"ingredients":         len(result.Ingredients),
			"halal_logo_detected": result.HalalLogoDetected,
			"processing_time_ms":  time.Since(startTime).Milliseconds(),
		}).Info("Image analysis completed")
		c.JSON(http.StatusOK, jsend.Success(result))
	}
}

func captureAndAnalyze(coord *coordinator.Coordinator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		result, err := coord.CaptureAndAnalyze(ctx)
		if err != nil {
			respondError(c, err)
			return
		}

		logger.WithFields(logrus.Fields{
			"overall_status":     result.OverallStatus,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Capture analysis completed")
		c.JSON(http.StatusOK, jsend.Success(result))
	}
}

func getStatus(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, jsend.Success(coord.Status()))
	}
}

func listEcodeTable(c *gin.Context) {
	entries, err := ecodes.Entries()
	if err != nil {
		respondError(c, apperrors.NewServiceRequestError("Additive reference table is unavailable.", err))
		return
	}
	c.JSON(http.StatusOK, jsend.Success(entries))
}

func openChat(chats ChatGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := chats.OpenChat()
		c.JSON(http.StatusCreated, jsend.Success(ChatOpenResponse{ChatID: session.ID}))
	}
}

// streamChat sends the "message" query parameter to the chat session and
// relays each response fragment as an SSE event, closed by a "done" event.
func streamChat(chats ChatGateway, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		text := c.Query("message")
		if text == "" {
			respondError(c, apperrors.NewValidationError("message query parameter is required", nil))
			return
		}

		session, err := chats.Chat(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		fragments, err := chats.SendMessage(ctx, session, text)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Stream(func(w io.Writer) bool {
			fragment, ok := <-fragments
			if !ok {
				c.SSEvent("done", "")
				return false
			}
			c.SSEvent("message", fragment)
			return true
		})
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, jsend.SimpleErr(apperrors.UserMessage(err)))
}
