package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/polls/internal/adapters/repository"
	"github.com/vncsmyrnk/polls/internal/config"
)

const usage = `usage: migrations [-t sqlite|postgres] [-d url] up
       migrations [-t sqlite|postgres] [-d url] down <migration name>`

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}

	var dbType, dbURL string
	flag.StringVar(&dbType, "t", "", "Database type (sqlite or postgres)")
	flag.StringVar(&dbURL, "d", "", "Database URL, or a file path for sqlite")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal(usage)
	}

	dbType, dbURL, err := config.ResolveDatabase(dbType, dbURL, os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, dbType, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	switch flag.Arg(0) {
	case "up":
		applied, err := store.Migrate(ctx)
		if err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		if len(applied) == 0 {
			fmt.Println("No pending migrations.")
			return
		}
		for _, name := range applied {
			fmt.Printf("Applied %s\n", name)
		}
	case "down":
		if flag.NArg() < 2 {
			log.Fatal("a migration name is required.")
		}
		if err := store.Rollback(ctx, flag.Arg(1)); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Println("Migration rolled back successfully.")
	default:
		log.Fatal(usage)
	}
}
