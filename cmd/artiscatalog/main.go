// Command artiscatalog serves the Artis laminate catalog.
//
// Usage:
//
//	artiscatalog [serve] [--config path]
//	artiscatalog backup [--output file] [--config path]
//	artiscatalog restore --input file [--data-dir dir] [--force]
//	artiscatalog hash-password [password]
//	artiscatalog version
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/artiscatalog/internal/version"
)

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "backup":
		runBackup(args)
	case "restore":
		runRestore(args)
	case "hash-password":
		runHashPassword(args)
	case "version":
		fmt.Println(version.Info())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: artiscatalog <command> [flags]

commands:
  serve          run the HTTP server (default)
  backup         archive the database and config
  restore        restore a backup archive
  hash-password  print a bcrypt hash for auth.password_hash
  version        print build information`)
}
