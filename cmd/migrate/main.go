package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"propbot/migrations"
)

var commands = map[string]struct {
	help string
	run  func(db *sql.DB) error
}{
	"up":      {"migrate to the latest version", func(db *sql.DB) error { return goose.Up(db, ".") }},
	"up-one":  {"migrate one version up", func(db *sql.DB) error { return goose.UpByOne(db, ".") }},
	"down":    {"roll back one version", func(db *sql.DB) error { return goose.Down(db, ".") }},
	"redo":    {"roll back and re-apply the latest version", func(db *sql.DB) error { return goose.Redo(db, ".") }},
	"status":  {"show migration status", func(db *sql.DB) error { return goose.Status(db, ".") }},
	"version": {"show current version", func(db *sql.DB) error { return goose.Version(db, ".") }},
	"reset":   {"roll back all migrations", func(db *sql.DB) error { return goose.Reset(db, ".") }},
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		log.Fatalf("unknown command: %s", name)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	if err := cmd.run(db); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s  %s\n", name, commands[name].help)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
