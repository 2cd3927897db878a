package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/artiscatalog/internal/backup"
	"github.com/HerbHall/artiscatalog/internal/config"
)

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	output := fs.String("output", "", "output file path (default: artiscatalog-backup-{timestamp}.tar.gz)")
	configFile := fs.String("config", "", "config file to read database.path from and include in the backup")
	dbPath := fs.String("db", "", "database path (overrides database.path)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	v, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath == "" {
		*dbPath = v.GetString("database.path")
	}
	if *output == "" {
		*output = fmt.Sprintf("artiscatalog-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	m, err := backup.Backup(context.Background(), *dbPath, *configFile, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup created: %s (database %s", *output, m.Database)
	if m.Config != "" {
		fmt.Printf(", config %s", m.Config)
	}
	fmt.Println(")")
}
