package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"coupondrop/impl/auth"
	"coupondrop/impl/core"
	"coupondrop/impl/guard"
	"coupondrop/internal/config"
	"coupondrop/internal/database"
	"coupondrop/internal/http-server/api"
	"coupondrop/lib/clock"
	"coupondrop/lib/logger"
	"coupondrop/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	adminSeed := flag.String("admin", "", "seed an admin account as username:password and exit")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.Setup(conf.Env, *logPath)
	log.Info("starting coupondrop", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if err := db.EnsureIndexes(); err != nil {
		log.Error("ensure indexes", sl.Err(err))
		os.Exit(1)
	}

	if *adminSeed != "" {
		username, password, ok := strings.Cut(*adminSeed, ":")
		if !ok || username == "" || password == "" {
			log.Error("invalid -admin value, expected username:password")
			os.Exit(1)
		}
		if err := db.UpsertAdmin(username, password); err != nil {
			log.Error("seed admin", sl.Err(err))
			os.Exit(1)
		}
		log.Info("admin account seeded", slog.String("username", username))
		return
	}

	if conf.Auth.Secret == "" {
		log.Error("auth secret is not configured")
		os.Exit(1)
	}

	clk := clock.System{}
	authService := auth.New(db, conf.Auth.Secret, conf.TokenTTL(), clk)
	abuseGuard := guard.New(db, conf.AbuseWindow(), clk)
	handler := core.New(db, authService, abuseGuard, clk, log)

	if err := api.New(conf, log, handler); err != nil {
		log.Error("api server stopped", sl.Err(err))
		os.Exit(1)
	}
}
