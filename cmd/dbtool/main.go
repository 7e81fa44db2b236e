package main

import (
	"database/sql"
	"flag"
	"fleet-route-optimizer/internal/adapters/repositories"
	"fleet-route-optimizer/internal/config"
	"fleet-route-optimizer/internal/platform/db"

	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	seedPath := flag.String("seed", cfg.SeedPath, "path to the JSON seed file")
	schemaOnly := flag.Bool("schema-only", false, "create tables without seeding")
	flag.Parse()

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	if err := initAndSeed(conn, *seedPath, *schemaOnly); err != nil {
		logrus.Fatal(err)
	}
}

func initAndSeed(conn *sql.DB, seedPath string, schemaOnly bool) error {
	logrus.Info("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		return err
	}
	logrus.Info("Schema ready.")

	if schemaOnly {
		return nil
	}

	logrus.WithField("path", seedPath).Info("Seeding database...")
	if err := repositories.SeedFromJSON(conn, seedPath); err != nil {
		return err
	}
	logrus.Info("Seeding complete.")

	return nil
}
