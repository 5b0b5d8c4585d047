package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/ad-checkout/internal/catalog"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|version|force N]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := catalog.NewMigrator(dbURL)
	if err != nil {
		log.Fatalf("Failed to open migrator: %v", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("close migrator: %v", errors.Join(srcErr, dbErr))
		}
	}()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatalf("Failed to read version: %v", verr)
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
		return
	case "force":
		v, perr := strconv.Atoi(flag.Arg(1))
		if perr != nil {
			log.Fatalf("force needs a version: %v", perr)
		}
		err = m.Force(v)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
	fmt.Println("migrate", cmd, "done")
}
