package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connections. Either may be nil when not configured.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	logger   zerolog.Logger
}

// InitDB connects to the databases cfg names. Postgres is only needed for
// profiles and local accounts; Mongo only for the mongo docstore driver.
func InitDB(ctx context.Context, cfg *Config, logger zerolog.Logger) (*DB, error) {
	db := &DB{logger: logger}

	if cfg.PostgresConnStr != "" {
		postgresDB, err := initPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.Postgres = postgresDB
		logger.Info().Msg("Successfully connected to PostgreSQL")
	} else {
		logger.Warn().Msg("POSTGRES_CONN_STR not set, profile and local auth routes are disabled")
	}

	if cfg.DocstoreDriver == DriverMongo {
		mongoClient, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = mongoClient
		logger.Info().Msg("Successfully connected to MongoDB")
	}

	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			db.logger.Error().Err(err).Msg("Error getting SQL DB from GORM")
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Error().Err(err).Msg("Error closing PostgreSQL connection")
		} else {
			db.logger.Info().Msg("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Error().Err(err).Msg("Error closing MongoDB connection")
		} else {
			db.logger.Info().Msg("MongoDB connection closed")
		}
	}
}
