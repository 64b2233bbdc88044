package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/kitchenops/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

func main() {
	var dsn string

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: KOPS_POSTGRES_DSN)")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("KOPS_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("KOPS_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		fail("ensure schema failed: %v", err)
	}
	fmt.Println("schema ok")
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
