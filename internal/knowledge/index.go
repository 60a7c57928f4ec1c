package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const fallbackBaseURL = "https://bulletins.agrinexus.local/search/"

type Bulletin struct {
	Topic     string `json:"topic"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SourceURL string `json:"sourceUrl"`
}

// Topic groups bulletins under a keyword key. A query matches the topic when
// every word of Key appears in it.
type Topic struct {
	Key       string
	Bulletins []Bulletin
}

// Index is a deterministic bulletin lookup stored in sqlite/libsql.
type Index struct {
	db *sql.DB
}

func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

func (i *Index) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS topics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  topic_key TEXT NOT NULL UNIQUE
);`,
		`CREATE TABLE IF NOT EXISTS bulletins (
  topic_id INTEGER NOT NULL REFERENCES topics(id),
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  source_url TEXT NOT NULL,
  PRIMARY KEY (topic_id, position)
);`,
	}
	for _, stmt := range statements {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate knowledge index: %w", err)
		}
	}
	return nil
}

func (i *Index) Seed(ctx context.Context, topics []Topic) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, topic := range topics {
		key := normalize(topic.Key)
		if key == "" {
			return errors.New("topic key is required")
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO topics (topic_key) VALUES (?) ON CONFLICT(topic_key) DO NOTHING;`, key); err != nil {
			return fmt.Errorf("insert topic %q: %w", key, err)
		}
		var topicID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM topics WHERE topic_key = ?;`, key).Scan(&topicID); err != nil {
			return fmt.Errorf("read topic %q: %w", key, err)
		}
		for pos, b := range topic.Bulletins {
			if strings.TrimSpace(b.SourceURL) == "" {
				return fmt.Errorf("bulletin %q under %q has no source url", b.Title, key)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO bulletins (topic_id, position, title, body, source_url)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(topic_id, position) DO UPDATE SET
  title = excluded.title,
  body = excluded.body,
  source_url = excluded.source_url;
`, topicID, pos, strings.TrimSpace(b.Title), strings.TrimSpace(b.Body), strings.TrimSpace(b.SourceURL)); err != nil {
				return fmt.Errorf("insert bulletin %q: %w", b.Title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (i *Index) SeedDefaults(ctx context.Context) error {
	return i.Seed(ctx, DefaultTopics())
}

// Search returns bulletins of every matching topic in topic then position order,
// capped at limit. With no match it returns the single fallback bulletin for the query.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Bulletin, error) {
	normalized := normalize(query)
	if normalized == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	rows, err := i.db.QueryContext(ctx, `
SELECT t.topic_key, b.title, b.body, b.source_url
FROM bulletins b
JOIN topics t ON t.id = b.topic_id
ORDER BY t.id ASC, b.position ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("query knowledge index: %w", err)
	}
	defer rows.Close()

	words := wordSet(normalized)
	results := make([]Bulletin, 0, limit)
	for rows.Next() {
		var b Bulletin
		if err := rows.Scan(&b.Topic, &b.Title, &b.Body, &b.SourceURL); err != nil {
			return nil, fmt.Errorf("scan bulletin: %w", err)
		}
		if !containsAll(words, b.Topic) {
			continue
		}
		if len(results) < limit {
			results = append(results, b)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bulletins: %w", err)
	}

	if len(results) == 0 {
		return []Bulletin{Fallback(normalized)}, nil
	}
	return results, nil
}

// Fallback is the bulletin served when no topic matches a query.
func Fallback(query string) Bulletin {
	normalized := normalize(query)
	return Bulletin{
		Topic:     "",
		Title:     "Agricultural Bulletin: " + normalized,
		Body:      "Recent studies show that regarding " + normalized + ", optimal management requires monitoring soil conditions and weather patterns closely.",
		SourceURL: fallbackBaseURL + url.PathEscape(strings.ReplaceAll(normalized, " ", "-")),
	}
}

func normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

func wordSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	out := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		out[field] = struct{}{}
	}
	return out
}

func containsAll(words map[string]struct{}, key string) bool {
	for _, word := range strings.Fields(key) {
		if _, ok := words[word]; !ok {
			return false
		}
	}
	return true
}
