package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aniket-work/autonomous-agri-nexus/internal/config"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const memoryURL = ":memory:"

// Open connects to the knowledge database. file: and :memory: URLs use the embedded
// sqlite driver; libsql://, http(s):// and ws(s):// URLs go through libsql.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	rawURL := strings.TrimSpace(cfg.KnowledgeDatabaseURL)
	if rawURL == "" || rawURL == memoryURL {
		return OpenMemory(ctx)
	}

	dsn, err := buildDSN(rawURL, cfg.KnowledgeAuthToken)
	if err != nil {
		return nil, err
	}

	driver := "libsql"
	if strings.HasPrefix(dsn, "file:") {
		driver = "sqlite"
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == "sqlite" {
		database.SetMaxOpenConns(1)
	}

	if err := ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

// OpenMemory opens a private in-memory sqlite database. It is pinned to one
// connection because every sqlite connection gets its own memory database.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	database, err := sql.Open("sqlite", memoryURL)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(0)
	database.SetConnMaxIdleTime(0)

	if err := ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func ping(ctx context.Context, database *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

func buildDSN(rawURL, authToken string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty database url")
	}

	if strings.HasPrefix(rawURL, "file:") {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	if strings.HasPrefix(rawURL, "libsql://") {
		query := parsed.Query()
		if query.Get("authToken") == "" && strings.TrimSpace(authToken) != "" {
			query.Set("authToken", strings.TrimSpace(authToken))
			parsed.RawQuery = query.Encode()
		}
	}

	return parsed.String(), nil
}
