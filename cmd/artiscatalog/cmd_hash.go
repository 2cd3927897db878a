package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/artiscatalog/internal/auth"
)

// runHashPassword prints a bcrypt hash of the password given as an argument
// or on the first line of stdin.
func runHashPassword(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	password := fs.Arg(0)
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "error: password required as argument or on stdin")
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
