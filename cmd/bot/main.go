package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/syh52/lexicon-srs/internal/handler"
	"github.com/syh52/lexicon-srs/internal/planner"
	"github.com/syh52/lexicon-srs/internal/repository"
	"github.com/syh52/lexicon-srs/internal/scheduler"
	"github.com/syh52/lexicon-srs/internal/service"
	"github.com/syh52/lexicon-srs/internal/srs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.S().Info("logger initialized")

	if err := godotenv.Load(); err != nil {
		zap.S().Debug("load .env file", zap.Error(err))
	}

	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	postgresHost := os.Getenv("POSTGRES_HOST")
	postgresPort := os.Getenv("POSTGRES_PORT")
	postgresUser := os.Getenv("POSTGRES_USER")
	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	postgresDB := os.Getenv("POSTGRES_DB")

	if telegramToken == "" || postgresHost == "" {
		zap.S().Fatal("missing required environment variables")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		postgresHost, postgresPort, postgresUser, postgresPassword, postgresDB)

	repo, err := repository.NewDB(dsn, 10, 20)
	if err != nil {
		zap.S().Error("connect to PostgreSQL", zap.Error(err), zap.String("host", postgresHost))
		os.Exit(1)
	}
	defer repo.Close()

	if err = repo.Up("migrations"); err != nil {
		zap.S().Error("run migrations", zap.Error(err))
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	fsrsParams := srs.DefaultFSRSParams()
	fsrsParams.EnableFuzz = true

	svc := service.NewService(repo,
		srs.NewSM2Scheduler(),
		srs.NewFSRSScheduler(fsrsParams, rng),
		planner.NewGenerator(rng),
	)

	bot, err := handler.NewTelegramHandler(telegramToken, svc)
	if err != nil {
		zap.S().Error("create telegram handler", zap.Error(err))
		os.Exit(1)
	}

	reminders := scheduler.New(svc, bot)
	reminders.Start()
	defer reminders.Stop()

	bot.Start()
}
