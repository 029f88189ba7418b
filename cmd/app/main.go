package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fitclub/internal/booking"
	"fitclub/internal/broker"
	"fitclub/internal/config"
	"fitclub/internal/db"
	"fitclub/internal/email"
	"fitclub/internal/gym"
	"fitclub/internal/logger"
	"fitclub/internal/outbox"
	"fitclub/internal/review"
	"fitclub/internal/server"
	"fitclub/internal/stats"
	"fitclub/internal/subscription"
	"fitclub/internal/support"
	"fitclub/internal/user"
)

const shutdownTimeout = 30 * time.Second

// @title FitClub API
// @version 1.0
// @description Fitness club booking platform: gyms, classes, subscriptions, bookings, reviews and member support.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting FitClub application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	logger.Info("Redis connected", "addr", cfg.RedisAddr)

	// Events still reach local handlers when no broker is configured.
	var events outbox.Publisher
	if cfg.RabbitMQURL != "" {
		pub, err := broker.Dial(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	userRepo := user.NewRepository(database)
	gymRepo := gym.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	subscriptionRepo := subscription.NewRepository(database)
	reviewRepo := review.NewRepository(database)
	statsRepo := stats.NewRepository(database)
	supportRepo := support.NewRepository(database)

	gymService := gym.NewService(gymRepo, gym.NewSearchCache(rdb, cfg.GymCacheTTL))
	subscriptionService := subscription.NewService(subscriptionRepo)
	bookingService := booking.NewService(
		bookingRepo,
		subscriptionService,
		subscription.NewLimitChecker(subscriptionRepo, cfg.Location),
		booking.NewConflictChecker(bookingRepo),
		gymService,
	)

	mailer := email.NewService(rdb, email.NewSMTPSender(email.SMTPConfig{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
	}))

	dispatcher := outbox.NewDispatcher(outbox.NewRepository(database), events, outbox.Options{
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		PollInterval: cfg.OutboxPollInterval,
	})
	registerEventHandlers(dispatcher,
		stats.NewUpdater(statsRepo, cfg.Location),
		review.NewRatingUpdater(reviewRepo, gymRepo, gymService),
		email.NewNotifier(mailer, bookingRepo, cfg.Location),
	)

	srv := server.New(ctx, cfg, server.Handlers{
		Users:         user.NewHandler(user.NewService(userRepo, cfg.JWTSecret, cfg.JWTRefreshSecret)),
		Gyms:          gym.NewHandler(gymService),
		Bookings:      booking.NewHandler(bookingService),
		Subscriptions: subscription.NewHandler(subscriptionService),
		Reviews:       review.NewHandler(review.NewService(reviewRepo)),
		Stats:         stats.NewHandler(statsRepo),
		Support:       support.NewHandler(support.NewService(supportRepo, support.NewHub(rdb))),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Server starting on port %s", cfg.Port)
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		return mailer.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// registerEventHandlers wires outbox events to their consumers. Notifiers go
// last: they never fail, so a retry only replays handlers that did not commit.
func registerEventHandlers(d *outbox.Dispatcher, st *stats.Updater, ratings *review.RatingUpdater, notify *email.Notifier) {
	d.Register(outbox.EventBookingCreated, st.OutboxHandler(stats.ActionBookingCreated))
	d.Register(outbox.EventBookingCancelled, st.OutboxHandler(stats.ActionBookingCancelled))
	d.Register(outbox.EventWorkoutCompleted, st.OutboxHandler(stats.ActionWorkoutCompleted))

	d.Register(outbox.EventReviewCreated, ratings.OutboxHandler())
	d.Register(outbox.EventReviewDeleted, ratings.OutboxHandler())

	d.Register(outbox.EventBookingCreated, notify.BookingConfirmed())
	d.Register(outbox.EventBookingCancelled, notify.BookingCancelled())
	d.Register(outbox.EventUserRoleChanged, notify.RoleChanged())
	d.Register(outbox.EventUserBlocked, notify.AccountBlocked())
	d.Register(outbox.EventUserUnblocked, notify.AccountUnblocked())
}
