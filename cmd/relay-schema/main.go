// Command relay-schema bootstraps or inspects the SQLite schema described
// in the storage layer, standing in for external migration tooling.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ngoyal88/msgproxy/pkg/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		handleInit()
	case "info":
		handleInfo()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("relay-schema commands:")
	fmt.Println("  init  -db <path>   Create/upgrade the SQLite schema at path")
	fmt.Println("  info  -db <path>   Print row counts for the schema at path")
}

func handleInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "./relay.db", "SQLite database path")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	store, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("failed to open/create schema: %v", err)
	}
	defer store.Close()

	fmt.Printf("✅ schema ready at %s\n", *dbPath)
}

func handleInfo() {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dbPath := fs.String("db", "./relay.db", "SQLite database path")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	store, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("failed to open schema: %v", err)
	}
	defer store.Close()

	now := time.Now()
	projections, err := store.GetStatsProjections(now.AddDate(-10, 0, 0), now.AddDate(1, 0, 0))
	if err != nil {
		log.Fatalf("failed to scan exchanges: %v", err)
	}

	llm := 0
	for _, p := range projections {
		if p.HasLLM {
			llm++
		}
	}
	fmt.Printf("exchanges: %d\nllm exchanges: %d\n", len(projections), llm)
}
