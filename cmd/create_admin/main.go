package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/inkwellcms/inkwell/internal/blogs"
	"github.com/inkwellcms/inkwell/internal/config"
	"github.com/inkwellcms/inkwell/internal/db"
	"github.com/inkwellcms/inkwell/internal/users"

	log "github.com/sirupsen/logrus"
)

// Makes sure the admin account exists, reading credentials from
// INKWELL_ADMIN_USERNAME / INKWELL_ADMIN_PASSWORD. Deploy glue: always
// exits 0, a missing admin account is not worth a failed rollout.
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.SetOutput(os.Stdout)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Errorf("load config: %s", err)
		return
	}

	adminUsername := os.Getenv("INKWELL_ADMIN_USERNAME")
	adminPassword := os.Getenv("INKWELL_ADMIN_PASSWORD")
	if adminUsername == "" || adminPassword == "" {
		log.Error("admin credentials not set. use INKWELL_ADMIN_USERNAME and INKWELL_ADMIN_PASSWORD")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("INKWELL_DB_PASSWORD"),
		DBName:     cfg.PostgresDBName,
	})
	if err != nil {
		log.Errorf("new db pool: %s", err)
		return
	}
	defer dbPool.Close()

	if err := users.EnsureAdmin(
		ctx,
		users.NewRepo(dbPool),
		blogs.NewRepo(dbPool),
		adminUsername,
		adminPassword,
	); err != nil {
		log.Errorf("ensure admin account: %s", err)
		return
	}

	fmt.Printf("admin account [%s] present\n", adminUsername)
}
