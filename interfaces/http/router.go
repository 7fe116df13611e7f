package httpiface

import (
	"context"
	"net/http"
	"strings"
	"time"

	appchat "github.com/richardiffusion/mrga/application/chat"
	"github.com/richardiffusion/mrga/domain/chat"
	"github.com/richardiffusion/mrga/domain/persistence"
	"github.com/richardiffusion/mrga/domain/station"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ChatService interface {
	ChatOnce(ctx context.Context, prompt, providerID string) (*chat.Result, error)
	ChatStream(ctx context.Context, prompt, providerID string, onEvent chat.StreamHandler[chat.StreamEvent]) error
}

// ProviderStatus reports which providers have an API key.
type ProviderStatus interface {
	Credentials() map[string]bool
}

// CircuitReporter exposes per-provider breaker states.
type CircuitReporter interface {
	GetCircuitStates() map[string]string
}

type Router struct {
	service         ChatService
	catalog         station.Catalog
	corsOrigins     []string
	appName         string
	defaultProvider string

	providers ProviderStatus
	circuits  CircuitReporter

	chatRepo  persistence.ChatRepository
	dbManager persistence.DatabaseManager
	processor persistence.EventProcessor
}

func NewRouter(service ChatService, catalog station.Catalog, corsOrigins []string) *Router {
	return &Router{
		service:         service,
		catalog:         catalog,
		corsOrigins:     corsOrigins,
		appName:         "MRGA API",
		defaultProvider: "deepseek",
	}
}

// WithProviders adds provider credential and circuit state to the health check.
func (r *Router) WithProviders(providers ProviderStatus, circuits CircuitReporter) *Router {
	r.providers = providers
	r.circuits = circuits
	return r
}

// WithPersistence enables the chat history endpoints.
func (r *Router) WithPersistence(chatRepo persistence.ChatRepository, dbManager persistence.DatabaseManager, processor persistence.EventProcessor) *Router {
	r.chatRepo = chatRepo
	r.dbManager = dbManager
	r.processor = processor
	return r
}

func (r *Router) WithDefaultProvider(id string) *Router {
	if id != "" {
		r.defaultProvider = id
	}
	return r
}

func (r *Router) WithAppName(name string) *Router {
	if name != "" {
		r.appName = name
	}
	return r
}

func (r *Router) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(r.corsMiddleware())
	router.Use(observability.Middleware())

	// Probes stay out of the request log
	router.GET("/live", r.liveness)
	router.GET("/ready", r.readiness)
	router.GET("/metrics", observability.Handler())

	api := router.Group("/")
	api.Use(r.requestIDMiddleware())
	api.Use(requestLogger())

	api.GET("/", r.welcome)
	api.GET("/api/health", r.healthCheck)

	api.POST("/api/ai/chat", r.chat)
	api.POST("/api/ai/chat-stream", r.chatStream)

	api.GET("/api/radio-stations", r.listStations)
	api.POST("/api/radio-stations", r.createStation)
	api.GET("/api/radio-stations/search", r.searchStations)
	api.GET("/api/radio-stations/:id", r.getStation)
	api.PUT("/api/radio-stations/:id", r.updateStation)
	api.DELETE("/api/radio-stations/:id", r.deleteStation)
	api.GET("/api/genres", r.genres)
	api.GET("/api/countries", r.countries)
	api.GET("/api/languages", r.languages)

	// History endpoints only exist when chat tracking is configured
	if r.chatRepo != nil {
		api.GET("/api/ai/requests", r.listRequests)
		api.GET("/api/ai/requests/:id", r.getRequest)
		api.GET("/api/ai/stats", r.requestStats)
	}

	return router
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if reqOrigin == "" {
			c.Header("Access-Control-Allow-Origin", strings.Join(r.corsOrigins, ", "))
		} else {
			allowOrigin := ""
			if len(r.corsOrigins) == 1 && r.corsOrigins[0] == "*" {
				allowOrigin = "*"
			} else {
				for _, allowed := range r.corsOrigins {
					if allowed == reqOrigin {
						allowOrigin = reqOrigin
						break
					}
				}
			}
			if allowOrigin != "" {
				c.Header("Access-Control-Allow-Origin", allowOrigin)
				if allowOrigin != "*" {
					c.Header("Access-Control-Allow-Credentials", "true")
					c.Header("Vary", "Origin")
				}
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware reuses a client supplied X-Request-ID or
// X-Correlation-ID when it is a UUID, and generates one otherwise.
func (r *Router) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientRequestID := c.GetHeader("X-Request-ID")
		clientCorrelationID := c.GetHeader("X-Correlation-ID")

		var requestUUID uuid.UUID
		switch {
		case clientRequestID != "":
			if parsed, err := uuid.Parse(clientRequestID); err == nil {
				requestUUID = parsed
			} else {
				requestUUID = uuid.New()
				c.Header("X-Client-Request-ID", clientRequestID)
			}
		case clientCorrelationID != "":
			if parsed, err := uuid.Parse(clientCorrelationID); err == nil {
				requestUUID = parsed
			} else {
				requestUUID = uuid.New()
				c.Header("X-Client-Correlation-ID", clientCorrelationID)
			}
		default:
			requestUUID = uuid.New()
		}

		c.Header("X-Request-ID", requestUUID.String())
		c.Set("request_id", requestUUID.String())
		c.Request = c.Request.WithContext(appchat.WithRequestID(c.Request.Context(), requestUUID))

		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

func (r *Router) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to MRGA API - Make Radio Great Again!"})
}

func (r *Router) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{"api": "ok"}
	overallOK := true

	stations, err := r.catalog.List(ctx)
	if err != nil {
		checks["catalog"] = gin.H{"ok": false, "error": err.Error()}
		overallOK = false
	}

	if r.providers != nil {
		states := map[string]string{}
		if r.circuits != nil {
			states = r.circuits.GetCircuitStates()
		}
		providers := gin.H{}
		for id, configured := range r.providers.Credentials() {
			circuit := states[id]
			if circuit == "" {
				circuit = "closed"
			}
			providers[id] = gin.H{"configured": configured, "circuit": circuit}
		}
		checks["providers"] = providers
	}

	if r.dbManager != nil {
		if err := r.dbManager.Health(ctx); err != nil {
			checks["db"] = gin.H{"ok": false, "error": err.Error()}
			overallOK = false
		} else {
			checks["db"] = gin.H{"ok": true}
		}
	}

	if r.processor != nil {
		ph := r.processor.Health()
		checks["processor"] = ph
		if !ph.IsRunning {
			overallOK = false
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !overallOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":         status,
		"stations_count": len(stations),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"service":        r.appName,
		"checks":         checks,
	})
}

// liveness probe: process is up and serving HTTP
func (r *Router) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readiness probe: the catalog answers and the optional database is reachable
func (r *Router) readiness(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	ready := true

	if _, err := r.catalog.List(ctx); err != nil {
		checks["catalog"] = gin.H{"ok": false, "error": err.Error()}
		ready = false
	} else {
		checks["catalog"] = gin.H{"ok": true}
	}

	if r.dbManager != nil {
		if err := r.dbManager.Health(ctx); err != nil {
			checks["db"] = gin.H{"ok": false, "error": err.Error()}
			ready = false
		} else {
			checks["db"] = gin.H{"ok": true}
		}
	}

	if r.processor != nil {
		ph := r.processor.Health()
		checks["processor"] = ph
		if !ph.IsRunning {
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
