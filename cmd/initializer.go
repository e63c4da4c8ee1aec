package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"panterabot/internal/bot"
	"panterabot/internal/bot/notify"
	"panterabot/internal/bot/sqldb"
	"panterabot/internal/bot/store"
	"panterabot/internal/config"
)

type application struct {
	logger  *zap.SugaredLogger
	db      *sql.DB
	rdb     *redis.Client
	botDeps *bot.BotDeps
}

func initializeApp(ctx context.Context, cfg config.Config, botCfg bot.BotConfig, logger *zap.SugaredLogger) (*application, error) {
	app := &application{logger: logger}
	deps := &bot.BotDeps{Logger: logger, Config: botCfg}

	dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, dialect, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	logger.Infof("Successfully connected to %s database", dialect)
	app.db = db
	deps.DB = db
	deps.Dialect = dialect

	if cfg.Redis.Addr != "" {
		rdb, err := openRedis(ctx, cfg)
		if err != nil {
			app.close()
			return nil, err
		}
		app.rdb = rdb
		deps.RDB = rdb
	}

	if botCfg.S3.Bucket != "" {
		client, err := store.NewS3Client(botCfg.S3)
		if err != nil {
			app.close()
			return nil, err
		}
		deps.S3 = client
	}

	if botCfg.FCMCredentialsFile != "" {
		client, err := notify.NewMessagingClient(ctx, botCfg.FCMCredentialsFile)
		if err != nil {
			app.close()
			return nil, err
		}
		deps.Push = client
	}

	app.botDeps = deps
	return app, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (app *application) close() {
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
