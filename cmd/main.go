package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"panterabot/internal/bot"
	"panterabot/internal/config"
)

const (
	shutdownTimeout = 15 * time.Second
	writeSlack      = 5 * time.Second
)

// serverWriteTimeout outlasts one tick: POST /bot/stop waits for the tick in flight.
func serverWriteTimeout(tick time.Duration) time.Duration {
	return tick + writeSlack
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	if envErr != nil {
		sugar.Infof("no .env file loaded: %v", envErr)
	}

	port := cfg.Server.Address
	if v := os.Getenv("PORT"); v != "" {
		port = ":" + v
	}
	addr := flag.String("addr", port, "HTTP network address")
	flag.Parse()

	botCfg, err := bot.LoadBotConfig()
	if err != nil {
		sugar.Fatalf("load bot config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp(ctx, cfg, botCfg, sugar)
	if err != nil {
		sugar.Fatalf("initialize: %v", err)
	}
	defer app.close()

	handler, err := app.routes()
	if err != nil {
		sugar.Fatalf("register routes: %v", err)
	}
	if err := bot.StartBotWorkers(ctx, app.botDeps); err != nil {
		sugar.Fatalf("start bot workers: %v", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "capacitor://localhost", "http://localhost"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Device-Token"},
	})

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     zap.NewStdLog(logger),
		Handler:      c.Handler(handler),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: serverWriteTimeout(botCfg.TickTimeout),
	}

	go func() {
		sugar.Infof("Starting server on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	sugar.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := bot.StopBot(shutdownCtx, app.botDeps); err != nil {
		sugar.Errorf("stop bot: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("server shutdown: %v", err)
	}
}
