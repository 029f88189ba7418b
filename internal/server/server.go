package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fitclub/internal/auth"
	"fitclub/internal/booking"
	"fitclub/internal/config"
	"fitclub/internal/gym"
	"fitclub/internal/review"
	"fitclub/internal/stats"
	"fitclub/internal/subscription"
	"fitclub/internal/support"
	"fitclub/internal/user"
)

// Handlers bundles the HTTP handlers of every domain package.
type Handlers struct {
	Users         *user.Handler
	Gyms          *gym.Handler
	Bookings      *booking.Handler
	Subscriptions *subscription.Handler
	Reviews       *review.Handler
	Stats         *stats.Handler
	Support       *support.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(ctx context.Context, cfg *config.Config, h Handlers) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	RegisterValidators()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(),
		RateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	registerRoutes(router, cfg.JWTSecret, h)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func registerRoutes(router *gin.Engine, jwtSecret string, h Handlers) {
	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/auth")
	{
		public.POST("/register", h.Users.Register)
		public.POST("/login", h.Users.Login)
		public.POST("/refresh", h.Users.RefreshToken)
	}

	router.GET("/gyms", h.Gyms.SearchGyms)
	router.GET("/gyms/:gymID", h.Gyms.GetGym)
	router.GET("/gyms/:gymID/classes", h.Gyms.GetClasses)
	router.GET("/gyms/:gymID/reviews", h.Reviews.ListReviews)
	router.GET("/subscriptions/plans", h.Subscriptions.ListPlans)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(jwtSecret), auth.Authorize())
	{
		protected.GET("/me", h.Users.GetMe)
		protected.GET("/me/stats", h.Stats.GetMyStats)

		protected.POST("/bookings", h.Bookings.CreateBooking)
		protected.GET("/bookings", h.Bookings.ListMyBookings)
		protected.POST("/bookings/:bookingID/cancel", h.Bookings.CancelBooking)
		protected.POST("/bookings/:bookingID/reschedule", h.Bookings.RescheduleBooking)

		protected.POST("/subscriptions", h.Subscriptions.Create)
		protected.GET("/subscriptions", h.Subscriptions.ListMy)
		protected.POST("/subscriptions/:subscriptionID/cancel", h.Subscriptions.Cancel)

		protected.POST("/gyms/:gymID/reviews", h.Reviews.CreateReview)

		protected.POST("/support/tickets", h.Support.CreateTicket)
		protected.GET("/support/tickets", h.Support.ListMyTickets)
		protected.GET("/support/tickets/:ticketID/messages", h.Support.ListMessages)
		protected.POST("/support/tickets/:ticketID/messages", h.Support.PostMessage)
		protected.GET("/support/tickets/:ticketID/stream", h.Support.StreamTicket)
	}

	partner := protected.Group("/partner")
	{
		partner.GET("/gyms", h.Gyms.ListMyGyms)
		partner.POST("/gyms", h.Gyms.CreateGym)
		partner.PUT("/gyms/:gymID", h.Gyms.UpdateGym)
		partner.POST("/gyms/:gymID/classes", h.Gyms.CreateClass)
		partner.GET("/gyms/:gymID/bookings", h.Bookings.ListGymBookings)
		partner.GET("/gyms/:gymID/bookings/export", h.Bookings.ExportGymBookings)
		partner.GET("/classes/:classID/bookings", h.Bookings.ListClassBookings)
		partner.POST("/bookings/:bookingID/complete", h.Bookings.CompleteBooking)
	}

	staff := protected.Group("/staff")
	{
		staff.GET("/tickets", h.Support.ListTickets)
		staff.POST("/tickets/:ticketID/messages", h.Support.PostMessage)
		staff.POST("/tickets/:ticketID/close", h.Support.CloseTicket)
	}

	admin := protected.Group("/admin")
	{
		admin.POST("/gyms", h.Gyms.CreateGym)
		admin.GET("/users", h.Users.ListUsers)
		admin.PATCH("/users/:userID/role", h.Users.ChangeRole)
		admin.POST("/users/:userID/block", h.Users.BlockUser)
		admin.POST("/users/:userID/unblock", h.Users.UnblockUser)
		admin.DELETE("/reviews/:reviewID", h.Reviews.DeleteReview)
		admin.GET("/subscriptions", h.Subscriptions.ListAll)
		admin.GET("/analytics/bookings", h.Bookings.Analytics)
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
