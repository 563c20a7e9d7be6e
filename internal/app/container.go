package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/space-reservation-backend/internal/api"
	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/notify"
	"github.com/nekogravitycat/space-reservation-backend/internal/payment"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
	"github.com/nekogravitycat/space-reservation-backend/internal/review"
)

// tokenTTL only affects tokens minted by this process, which are test tokens.
const tokenTTL = time.Hour

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	// DBPool selects the Postgres stores. Nil selects the in-memory stores.
	DBPool *pgxpool.Pool
	// Locker serializes writes per resource. Nil falls back to an in-process keyed mutex.
	Locker lock.Locker
	// Publisher receives reservation status events. Nil disables publishing.
	Publisher notify.Publisher
	// HealthCheck extends /healthz beyond the database ping.
	HealthCheck func(ctx context.Context) error

	JWTSecret string

	RateLimitRPS   float64
	RateLimitBurst int

	Now func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager

	Resources    resource.Service
	Reservations reservation.Service
	Reviews      review.Service
	Payments     payment.Service
}

type repositories struct {
	resources    resource.Repository
	reservations reservation.Repository
	reviews      review.Repository
	payments     payment.Repository
}

func newRepositories(pool *pgxpool.Pool) repositories {
	if pool == nil {
		return repositories{
			resources:    resource.NewMemoryRepository(),
			reservations: reservation.NewMemoryRepository(),
			reviews:      review.NewMemoryRepository(),
			payments:     payment.NewMemoryRepository(),
		}
	}
	return repositories{
		resources:    resource.NewPgxRepository(pool),
		reservations: reservation.NewPgxRepository(pool),
		reviews:      review.NewPgxRepository(pool),
		payments:     payment.NewPgxRepository(pool),
	}
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, tokenTTL)
	repos := newRepositories(cfg.DBPool)

	// Resource Module: deletes are guarded by the reservation store and share the reservation lock.
	resService := resource.NewService(repos.resources, repos.reservations, resource.WithLocker(locker))

	// Reservation Module
	reservationService := reservation.NewService(repos.reservations, resService, locker, reservation.WithClock(now))

	// Review Module
	reviewService := review.NewService(repos.reviews, reservationService, resService, now)

	// Payment Module
	paymentService := payment.NewService(repos.payments, reservationService, nil)
	reservationService.OnStatusChange(paymentService.HandleReservationStatus)

	// Notifications
	if cfg.Publisher != nil {
		reservationService.OnStatusChange(notify.Hook(cfg.Publisher, now))
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		HealthCheck:        healthCheck(cfg.DBPool, cfg.HealthCheck),
		JWTManager:         jwtManager,
		ResourceService:    resService,
		ReservationService: reservationService,
		ReviewService:      reviewService,
		PaymentService:     paymentService,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		Resources:    resService,
		Reservations: reservationService,
		Reviews:      reviewService,
		Payments:     paymentService,
	}
}

func healthCheck(pool *pgxpool.Pool, extra func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
		}
		if extra != nil {
			return extra(ctx)
		}
		return nil
	}
}
