package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/metrics"
	"github.com/nekogravitycat/space-reservation-backend/internal/payment"
	paymentHttp "github.com/nekogravitycat/space-reservation-backend/internal/payment/http"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/space-reservation-backend/internal/reservation/http"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
	resourceHttp "github.com/nekogravitycat/space-reservation-backend/internal/resource/http"
	"github.com/nekogravitycat/space-reservation-backend/internal/review"
	reviewHttp "github.com/nekogravitycat/space-reservation-backend/internal/review/http"
)

// Config holds everything the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	RateLimitRPS   float64
	RateLimitBurst int

	// HealthCheck reports whether backing stores are reachable. Nil means always healthy.
	HealthCheck func(ctx context.Context) error

	JWTManager         *auth.JWTManager
	ResourceService    resource.Service
	ReservationService reservation.Service
	ReviewService      review.Service
	PaymentService     payment.Service
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, logging, metrics, rate limiting, auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	// - RequestLogger: zerolog access log plus a request-scoped logger in the context.
	r.Use(gin.Recovery(), RequestLogger(), Metrics())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	r.Use(cors.New(corsConfig))

	// Operational endpoints stay outside rate limiting.
	metrics.Register()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthHandler(cfg.HealthCheck))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// adminMiddleware: Further checks if the caller carries the admin role.
	adminMiddleware := auth.RequireAdmin()

	resourceHandler := resourceHttp.NewHandler(cfg.ResourceService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)
	reviewHandler := reviewHttp.NewHandler(cfg.ReviewService)
	paymentHandler := paymentHttp.NewHandler(cfg.PaymentService)

	// Register API routes under /v1
	v1 := r.Group("/v1", RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		resourceHttp.RegisterRoutes(v1, resourceHandler, authMiddleware, adminMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware, adminMiddleware)
		reviewHttp.RegisterRoutes(v1, reviewHandler, authMiddleware)
		paymentHttp.RegisterRoutes(v1, paymentHandler, authMiddleware, adminMiddleware)
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
