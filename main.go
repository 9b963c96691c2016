package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"meetup-service/internal/config"
	"meetup-service/internal/db"
	"meetup-service/internal/handlers"
	logsetup "meetup-service/internal/log"
	"meetup-service/internal/middleware"
	"meetup-service/internal/notify"
	"meetup-service/internal/observability"
	"meetup-service/internal/rabbitmq"
	"meetup-service/internal/repositories"
	"meetup-service/internal/sweeper"
	"meetup-service/internal/telemetry"
)

const serviceName = "meetup-service"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logsetup.Init(cfg.Env)

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Info().Str("mode", rabbitmq.PublisherMode(publisher)).Msg("event publisher ready")

	emitter := telemetry.NewAuditEmitter(publisher, "audit.logs", serviceName, cfg.Env)

	meetupRepo := repositories.NewMeetupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notifRepo := repositories.NewNotificationRepo(database)
	presenceRepo := repositories.NewPresenceRepo(database)

	hub := notify.NewHub()
	forwarder := notify.NewForwarder(hub, publisher)
	go forwarder.Run(ctx)

	expirer := sweeper.New(meetupRepo, notifRepo, publisher, cfg.MeetupTTL, cfg.SweepInterval)
	go expirer.Run(ctx)

	meetupHandler := handlers.NewMeetupHandler(meetupRepo, notifRepo, publisher)
	messageHandler := handlers.NewMessageHandler(messageRepo, notifRepo, hub)
	notifHandler := handlers.NewNotificationHandler(notifRepo)
	statusHandler := handlers.NewStatusHandler(presenceRepo, cfg.OnlineWindow)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, presenceRepo)

	verifyLimiter := middleware.NewRateLimiter(rate.Limit(cfg.VerifyRate), cfg.VerifyBurst, 10*time.Minute)
	defer verifyLimiter.Stop()

	router.POST("/meetups", authMiddleware, meetupHandler.Create)
	router.GET("/meetups", authMiddleware, meetupHandler.List)
	router.PUT("/meetups/:id/accept", authMiddleware, meetupHandler.Accept)
	router.PUT("/meetups/:id/reject", authMiddleware, meetupHandler.Reject)
	router.POST("/meetups/:id/verify", authMiddleware, verifyLimiter.Middleware(), meetupHandler.Verify)
	router.POST("/meetups/:id/complete", authMiddleware, meetupHandler.Complete)
	router.DELETE("/meetups/:id", authMiddleware, meetupHandler.Cancel)

	router.POST("/messages", authMiddleware, messageHandler.Post)
	router.GET("/messages/:listing_id/:other_user_id", authMiddleware, messageHandler.GetConversation)
	router.POST("/messages/mark-read/:listing_id/:other_user_id", authMiddleware, messageHandler.MarkRead)
	router.DELETE("/messages/:id", authMiddleware, messageHandler.DeleteMessage)

	router.GET("/chats", authMiddleware, messageHandler.ListChats)
	router.GET("/chats/unread-count", authMiddleware, messageHandler.UnreadCount)
	router.DELETE("/chats/:listing_id/:other_user_id", authMiddleware, messageHandler.DeleteChat)

	router.GET("/notifications", authMiddleware, notifHandler.List)
	router.POST("/notifications/:id/read", authMiddleware, notifHandler.MarkRead)
	router.DELETE("/notifications/:id", authMiddleware, notifHandler.Delete)

	router.GET("/users/:id/status", statusHandler.Get)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-done
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown failed")
	}
	log.Info().Msg("server exited")
}
