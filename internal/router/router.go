package router

import (
	"errors"
	"fmt"

	"github.com/anonto42/motorhub/backend/internal/comments"
	"github.com/anonto42/motorhub/backend/internal/community"
	"github.com/anonto42/motorhub/backend/internal/content"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/handlers"
	"github.com/anonto42/motorhub/backend/internal/live"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/anonto42/motorhub/backend/pkg/config"
	"github.com/anonto42/motorhub/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Dependencies are the connections main has opened. Postgres, Mongo and
// Firebase may be nil.
type Dependencies struct {
	Config   *config.Config
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Firebase *firebase.App
	Logger   zerolog.Logger
}

type collections struct {
	messages      docstore.Collection[models.Message]
	replies       docstore.Collection[models.Reply]
	notifications docstore.Collection[models.Notification]
	comments      docstore.Collection[models.Comment]
}

func openCollections(deps Dependencies) (collections, error) {
	switch deps.Config.DocstoreDriver {
	case config.DriverFirestore:
		if deps.Firebase == nil || deps.Firebase.Firestore == nil {
			return collections{}, errors.New("firestore driver selected but no Firestore client is open")
		}
		fs := deps.Firebase.Firestore
		return collections{
			messages:      docstore.NewFirestoreCollection[models.Message](fs, models.CollectionMessages),
			replies:       docstore.NewFirestoreCollection[models.Reply](fs, models.CollectionReplies),
			notifications: docstore.NewFirestoreCollection[models.Notification](fs, models.CollectionNotifications),
			comments:      docstore.NewFirestoreCollection[models.Comment](fs, models.CollectionComments),
		}, nil
	case config.DriverMongo:
		if deps.Mongo == nil {
			return collections{}, errors.New("mongo driver selected but no MongoDB client is open")
		}
		db := deps.Mongo.Database(deps.Config.MongoDatabase)
		return collections{
			messages:      docstore.NewMongoCollection[models.Message](db, models.CollectionMessages),
			replies:       docstore.NewMongoCollection[models.Reply](db, models.CollectionReplies),
			notifications: docstore.NewMongoCollection[models.Notification](db, models.CollectionNotifications),
			comments:      docstore.NewMongoCollection[models.Comment](db, models.CollectionComments),
		}, nil
	case config.DriverMemory:
		deps.Logger.Warn().Msg("Using the in-memory document store, data is lost on restart")
		return collections{
			messages:      docstore.NewMemoryCollection[models.Message](models.CollectionMessages),
			replies:       docstore.NewMemoryCollection[models.Reply](models.CollectionReplies),
			notifications: docstore.NewMemoryCollection[models.Notification](models.CollectionNotifications),
			comments:      docstore.NewMemoryCollection[models.Comment](models.CollectionComments),
		}, nil
	default:
		return collections{}, fmt.Errorf("unknown docstore driver %q", deps.Config.DocstoreDriver)
	}
}

// SetupRoutes wires repositories, services and handlers and registers every
// route. The returned Board still has to be started by the caller.
func SetupRoutes(e *echo.Echo, deps Dependencies) (*community.Board, error) {
	cfg, logger := deps.Config, deps.Logger

	colls, err := openCollections(deps)
	if err != nil {
		return nil, err
	}

	// --- Initialize Repositories ---
	messageRepo := repositories.NewDocstoreMessageRepository(colls.messages)
	replyRepo := repositories.NewDocstoreReplyRepository(colls.replies)
	notificationRepo := repositories.NewDocstoreNotificationRepository(colls.notifications)
	commentRepo := repositories.NewDocstoreCommentRepository(colls.comments)

	// --- Services ---
	fanout := notifications.NewFanout(notificationRepo, logger)
	messageStore := community.NewMessageStore(messageRepo, replyRepo, logger)
	replyStore := community.NewReplyStore(messageRepo, replyRepo, fanout, logger)
	board := community.NewBoard(messageStore, replyStore, logger)
	commentService := comments.NewService(commentRepo, logger)
	contentClient := content.NewClient(cfg.ContentAPIURL, cfg.ContentAPITimeout, nil)

	// A nil *auth.Client must not end up inside a non-nil interface.
	var provider handlers.AuthProvider
	authCfg := middleware.AuthConfig{JWTSecret: cfg.JWTSecret}
	if deps.Firebase != nil && deps.Firebase.AuthClient != nil {
		provider = deps.Firebase.AuthClient
		authCfg.Firebase = deps.Firebase.AuthClient
	} else {
		logger.Warn().Msg("Firebase is not configured, only local accounts can sign in")
	}

	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	public := e.Group("/api/v1", middleware.OptionalAuthenticate(authCfg))
	api := e.Group("/api/v1", middleware.Authenticate(authCfg))

	communityHandler := handlers.NewCommunityHandler(messageStore, replyStore, board)
	communityHandler.RegisterPublicCommunityRoutes(public)
	communityHandler.RegisterCommunityRoutes(api)
	logger.Debug().Msg("Community routes configured")

	notificationHandler := handlers.NewNotificationHandler(fanout)
	notificationHandler.RegisterNotificationRoutes(api)
	logger.Debug().Msg("Notification routes configured")

	commentHandler := handlers.NewCommentHandler(commentService)
	commentHandler.RegisterPublicCommentRoutes(public)
	commentHandler.RegisterCommentRoutes(api)
	logger.Debug().Msg("Comment routes configured")

	contentHandler := handlers.NewContentHandler(contentClient)
	contentHandler.RegisterContentRoutes(public)
	logger.Debug().Msg("Content routes configured")

	liveHandler := live.NewHandler(board, fanout, cfg.NotificationPollInterval, logger)
	liveHandler.RegisterPublicRoutes(public)
	liveHandler.RegisterRoutes(api)
	logger.Debug().Msg("WebSocket routes configured")

	if deps.Postgres != nil {
		if err := deps.Postgres.AutoMigrate(&models.User{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		userRepo := repositories.NewPostgresUserRepository(deps.Postgres)

		authHandler := handlers.NewAuthHandler(userRepo, provider, handlers.AuthOptions{
			JWTSecret:        cfg.JWTSecret,
			TokenTTL:         cfg.JWTTTL,
			ExposeResetLinks: cfg.IsDevelopment(),
		}, logger)
		authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
		authHandler.RegisterSessionRoutes(api.Group("/auth"))

		userHandler := handlers.NewUserHandler(userRepo, provider, logger)
		userHandler.RegisterProfileRoutes(api)
		logger.Debug().Msg("Auth and profile routes configured")
	}

	// Authenticated groups register a catch-all that runs their middleware,
	// so unknown API paths would answer 401 without a token.
	for _, prefix := range []string{"/api/v1", "/api/v1/auth"} {
		e.RouteNotFound(prefix, echo.NotFoundHandler)
		e.RouteNotFound(prefix+"/*", echo.NotFoundHandler)
	}

	logger.Info().Str("docstore", cfg.DocstoreDriver).Msg("All routes configured")
	return board, nil
}
