package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codegate/bot"
	"codegate/impl/activation"
	"codegate/impl/auth"
	"codegate/impl/core"
	"codegate/impl/housekeeping"
	"codegate/impl/ratelimit"
	"codegate/internal/config"
	"codegate/internal/database"
	"codegate/internal/http-server/api"
	"codegate/internal/http-server/middleware/throttle"
	"codegate/lib/clock"
	"codegate/lib/logger"
	"codegate/lib/metrics"
	"codegate/lib/sl"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	hashPassword := flag.String("hash", "", "print the bcrypt hash of a password for admin.password_hash and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash password:", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, conf.LogPath)
	log.Info("starting codegate", slog.String("config", *configPath), slog.String("env", conf.Env))

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.Admins, log)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			tgBot.SetDigestInterval(time.Duration(conf.Telegram.DigestMinutes) * time.Minute)
			log = slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, logger.ParseLevel(conf.Telegram.LogLevel)))
			log.Info("telegram bot created")
		}
	}

	store, err := database.Open(conf)
	if err != nil {
		log.Error("database connection", sl.Err(err))
		os.Exit(1)
	}
	defer store.Close()
	log.With(slog.String("driver", conf.Database.Driver)).Info("database connected")

	clk := clock.System{}
	m := metrics.New()

	engine := activation.New(store, clk, log)
	engine.SetRecorder(m)

	authService, err := auth.New(auth.Options{
		Password:     conf.Admin.Password,
		PasswordHash: conf.Admin.PasswordHash,
		Secret:       conf.Admin.JwtSecret,
		TTL:          conf.SessionTTL(),
	}, clk)
	if err != nil {
		log.Error("auth service", sl.Err(err))
		os.Exit(1)
	}

	limiter := ratelimit.New(clk)
	handler := core.New(engine, log)
	handler.SetAuthService(authService)
	handler.SetLoginLimiter(limiter, ratelimit.Rule{
		MaxAttempts:   conf.RateLimit.MaxAttempts,
		Window:        time.Duration(conf.RateLimit.WindowSec) * time.Second,
		BlockDuration: time.Duration(conf.RateLimit.BlockSec) * time.Second,
	})
	handler.SetLoginRecorder(m)

	deviceThrottle := throttle.New(conf.RateLimit.DeviceRps, conf.RateLimit.DeviceBurst)
	deviceThrottle.OnThrottled(m.Throttled)

	hk := housekeeping.New(log)
	if err = hk.AddSweep(conf.Housekeeping.SweepSchedule, "login-limiter", limiter); err != nil {
		log.Error("housekeeping", sl.Err(err))
		os.Exit(1)
	}
	if err = hk.AddSweep(conf.Housekeeping.SweepSchedule, "device-throttle", deviceThrottle); err != nil {
		log.Error("housekeeping", sl.Err(err))
		os.Exit(1)
	}
	if conf.Housekeeping.PurgeSchedule != "" {
		grace := time.Duration(conf.Housekeeping.PurgeGraceDays) * 24 * time.Hour
		if err = hk.AddPurge(conf.Housekeeping.PurgeSchedule, grace, engine, m.Purged); err != nil {
			log.Error("housekeeping", sl.Err(err))
			os.Exit(1)
		}
	}
	hk.Start()

	if tgBot != nil {
		tgBot.SetCore(handler)
		go func() {
			if err := tgBot.Start(); err != nil {
				log.Error("telegram bot", sl.Err(err))
			}
		}()
	}

	server := api.New(conf, log, handler, api.Options{Metrics: m, Throttle: deviceThrottle})
	go func() {
		if err := server.Start(); err != nil {
			log.Error("api server", sl.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.With(slog.String("signal", sig.String())).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(ctx); err != nil {
		log.Error("api server shutdown", sl.Err(err))
	}
	hk.Stop(ctx)
	if tgBot != nil {
		tgBot.Stop()
	}
	log.Info("codegate stopped")
}
