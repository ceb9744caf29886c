package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/vastu-api/internal/config"
	"github.com/noah-isme/vastu-api/internal/database"
	"github.com/noah-isme/vastu-api/internal/handler"
	"github.com/noah-isme/vastu-api/internal/middleware"
	"github.com/noah-isme/vastu-api/internal/questionnaire"
	"github.com/noah-isme/vastu-api/internal/repository"
	"github.com/noah-isme/vastu-api/internal/router"
	"github.com/noah-isme/vastu-api/internal/service"
	"github.com/noah-isme/vastu-api/pkg/ai"
	cloud "github.com/noah-isme/vastu-api/pkg/cloudinary"
	"github.com/noah-isme/vastu-api/pkg/mailer"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.SendGridAPIKey != "" {
		sendGrid, err := mailer.NewSendGridSender(mailer.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromName:  cfg.MailFromName,
			FromEmail: cfg.MailFromEmail,
			AppName:   cfg.AppName,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create sendgrid sender")
		}
		sender = sendGrid
	} else {
		logger.Warn().Msg("sendgrid api key missing, emails are written to the log")
	}

	var storage service.PhotoStorage
	if cfg.StorageEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	}

	var advisor ai.Advisor
	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAIAdvisor(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, Logger: logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create remedy advisor")
		}
		advisor = openAI
	}

	notifier, err := service.NewQuestionnaireMailNotifier(sender, advisor, service.QuestionnaireMailConfig{
		SiteName:         cfg.AppName,
		OperatorName:     cfg.MailOperatorName,
		OperatorEmail:    cfg.MailOperatorEmail,
		CopyToRespondent: cfg.MailCopyRespondent,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create questionnaire notifier")
	}
	contactDelivery, err := service.NewMailContactDelivery(sender, cfg.MailOperatorName, cfg.MailOperatorEmail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create contact delivery")
	}

	engine := questionnaire.NewEngine(questionnaire.DefaultBank(), notifier)
	validate := validator.New(validator.WithRequiredStructEnabled())

	contactRepo := repository.NewContactRepository(db)
	questionnaireRepo := repository.NewQuestionnaireRepository(db)
	studentRepo := repository.NewStudentProfileRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, cfg.NotificationsChannel, natsConn, validate, logger)
	uploadService := service.NewUploadService(storage, repository.NewUploadRepository(db), cfg.UploadMaxMB, logger)
	questionnaireService := service.NewQuestionnaireService(engine, questionnaireRepo, redisClient, validate, notificationService, cfg.DedupeTTL, logger)
	contactService := service.NewContactService(contactRepo, redisClient, validate, contactDelivery, notificationService, cfg.DedupeTTL, logger)
	studentService := service.NewStudentProfileService(studentRepo, uploadService, validate, activityService, logger)
	authService := service.NewAuthService(repository.NewAdminUserRepository(db), validate, activityService, service.AuthConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := authService.EnsureAdmin(ctx, service.AdminSeed{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Name: cfg.AdminName}); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap admin user")
	}
	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.BodyLimit(),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		QuestionnaireHandler:      handler.NewQuestionnaireHandler(questionnaireService, logger),
		ContactHandler:            handler.NewContactHandler(contactService, logger),
		StudentHandler:            handler.NewStudentHandler(studentService, logger),
		AuthHandler:               handler.NewAuthHandler(authService, logger),
		AdminQuestionnaireHandler: handler.NewAdminQuestionnaireHandler(service.NewAdminQuestionnaireService(engine, questionnaireRepo, activityService, logger), logger),
		AdminContactHandler:       handler.NewAdminContactHandler(service.NewAdminContactService(contactRepo, activityService, logger), logger),
		AdminStudentHandler:       handler.NewAdminStudentHandler(studentService, logger),
		AdminDashboardHandler:     handler.NewAdminDashboardHandler(service.NewAdminDashboardService(contactRepo, questionnaireRepo, studentRepo, redisClient, cfg.DashboardCacheTTL, logger), logger),
		AdminActivityHandler:      handler.NewAdminActivityHandler(activityService, logger),
		NotificationHandler:       handler.NewNotificationHandler(notificationService, logger, 0),
		UploadHandler:             handler.NewUploadHandler(uploadService, logger),
		HealthProbes: map[string]handler.Probe{
			"postgres": database.PostgresProbe(db),
			"redis":    database.RedisProbe(redisClient),
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancel, logger)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
