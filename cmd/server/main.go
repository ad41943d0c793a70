package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/learnstack/coursewallet/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	if errEnv := godotenv.Load(); errEnv != nil {
		log.Debug(".env file not found")
	}

	configPath := flag.String("config", "", "path to config.yaml")
	migrateOnly := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, *configPath); errMigrate != nil {
			log.Fatalf("migrate: %v", errMigrate)
		}
		return
	}

	if errRun := app.RunServer(ctx, *configPath); errRun != nil {
		log.Fatalf("server: %v", errRun)
	}
}
