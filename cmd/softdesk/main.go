package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/softdesk-dev/softdesk/db"
	"github.com/softdesk-dev/softdesk/internal/auth"
	"github.com/softdesk-dev/softdesk/internal/router"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize JWT secret")
	}

	dsn := os.Getenv("DATABASE_URL")

	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL environment variable is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	r := router.NewRouter()

	port := os.Getenv("PORT")

	if port == "" {
		port = "3000"
		log.Info().Msg("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
