package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"activity-plan-service/internal/adapters/cache"
	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/api"
	"activity-plan-service/internal/config"
	"activity-plan-service/internal/platform/db"
	"activity-plan-service/internal/ports"
	"activity-plan-service/internal/services"
)

const reportTTL = 24 * time.Hour

// main is the application composition root.
// It wires concrete adapters (SQL, Redis) behind ports and starts the HTTP server.
func main() {
	cfg := config.Load()

	version := matsim.Version(cfg.MatsimVersion)
	if err := version.Validate(); err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	repo := repositories.NewSQLPopulationRepository(conn, cfg.DBDriver)

	// Initialize schema and seed an empty database on startup for local runs.
	if err := initAndSeed(conn, repo, cfg, version); err != nil {
		log.Fatal(err)
	}

	reports, err := newReportCache(cfg, conn)
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(api.Deps{
		Repo:        repo,
		Cache:       reports,
		DB:          conn,
		Version:     version,
		CORSOrigins: cfg.CORSOrigins,
	})

	log.Printf("Server listening addr=:%s driver=%s matsim=%d", cfg.Port, cfg.DBDriver, version)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// newReportCache prefers Redis when REDIS_ADDR is set and falls back to the
// report_cache table.
func newReportCache(cfg *config.Config, conn *sql.DB) (ports.ReportCache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewSQLReportCache(conn, cfg.DBDriver, reportTTL), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("report cache: ping redis %s: %w", cfg.RedisAddr, err)
	}
	return cache.NewRedisReportCache(client, reportTTL), nil
}

func initAndSeed(conn *sql.DB, repo *repositories.SQLPopulationRepository, cfg *config.Config, version matsim.Version) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(cfg.SeedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("No seed file found path=%s", cfg.SeedPath)
		return nil
	}

	ctx := context.Background()
	existing, err := repo.ListPersons(ctx)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	opts := services.DefaultImportOptions()
	opts.Read.Version = version
	opts.HouseholdKey = cfg.HouseholdKey
	res, err := services.ImportFile(ctx, cfg.SeedPath, repo, opts)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	log.Printf("Seeded population persons=%d households=%d", res.Persons, res.Households)

	if !cfg.RepairOnSeed {
		return nil
	}
	ro := services.DefaultRepairOptions()
	ro.Workers = cfg.RepairWorkers
	report, err := services.RepairPopulation(ctx, repo, ro)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	log.Printf("Repaired seed population persons=%d repaired=%d invalid=%d", report.Persons, report.Repaired, len(report.Failures))
	return nil
}
