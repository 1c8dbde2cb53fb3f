package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/horizontego/job-ingest/internal/domain"
)

// listSeparator joins list fields into one text column
const listSeparator = "\n"

// Country is one row of the countries reference table
type Country struct {
	Code     string
	Name     string
	Currency string
}

// DefaultCountries are seeded when the reference table is created
var DefaultCountries = []Country{
	{Code: "NOR", Name: "Noruega", Currency: "NOK"},
	{Code: "CAN", Name: "Canadá", Currency: "CAD"},
}

// PostgresStore stores postings in PostgreSQL
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

// NewPostgresStore opens a connection and ensures the schema exists
func NewPostgresStore(ctx context.Context, connStr string, tableName string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if tableName == "" {
		tableName = "jobs"
	}

	s := &PostgresStore{
		db:        db,
		tableName: tableName,
	}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// ensureSchema creates the countries and jobs tables if they don't exist
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS countries (
			id SERIAL PRIMARY KEY,
			code VARCHAR(3) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create countries: %w", err)
	}

	for _, c := range DefaultCountries {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO countries (code, name, currency) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Name, c.Currency)
		if err != nil {
			return fmt.Errorf("seed country %s: %w", c.Code, err)
		}
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			country_id INTEGER NOT NULL,
			title TEXT,
			company TEXT,
			location TEXT,
			description TEXT,
			requirements TEXT,
			tasks TEXT,
			benefits TEXT,
			salary TEXT,
			details TEXT,
			source_url TEXT NOT NULL,
			source_name TEXT NOT NULL,
			external_id TEXT,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			scraped_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (source_name, source_url)
		)
	`, pq.QuoteIdentifier(s.tableName))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.tableName, err)
	}
	return nil
}

const postingColumns = `id, country_id, title, company, location, description,
	requirements, tasks, benefits, salary, details,
	source_url, source_name, external_id, is_verified, scraped_at`

// FindByExternalURL looks up a posting by its source and URL
func (s *PostgresStore) FindByExternalURL(ctx context.Context, source, url string) (*domain.Posting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE source_name = $1 AND source_url = $2 LIMIT 1`,
		postingColumns, pq.QuoteIdentifier(s.tableName))

	p, err := scanPosting(s.db.QueryRowContext(ctx, query, source, url))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", url, err)
	}
	return p, nil
}

// Insert writes a new posting and sets its ID
func (s *PostgresStore) Insert(ctx context.Context, p *domain.Posting) error {
	details, err := encodeDetails(p.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			country_id, title, company, location, description,
			requirements, tasks, benefits, salary, details,
			source_url, source_name, external_id, is_verified, scraped_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		RETURNING id
	`, pq.QuoteIdentifier(s.tableName))

	var scrapedAt sql.NullTime
	if !p.ScrapedAt.IsZero() {
		scrapedAt = sql.NullTime{Time: p.ScrapedAt, Valid: true}
	}

	err = s.db.QueryRowContext(ctx, query,
		p.CountryID, nullString(p.Title), nullString(p.Company), nullString(p.Location), nullString(p.Description),
		joinList(p.Requirements), joinList(p.Tasks), joinList(p.Benefits), nullString(p.Salary), details,
		p.ExternalURL, p.SourceName, nullString(p.ExternalID), p.IsVerified, scrapedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("insert %s: %w", p.ExternalURL, ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", p.ExternalURL, err)
	}
	return nil
}

// Get loads a posting by id
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Posting, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, postingColumns, pq.QuoteIdentifier(s.tableName))

	p, err := scanPosting(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get posting %d: %w", id, err)
	}
	return p, nil
}

// Search returns active postings matching f, newest first
func (s *PostgresStore) Search(ctx context.Context, f Filter) ([]*domain.Posting, error) {
	conditions := []string{"is_active = TRUE"}
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.CountryID != 0 {
		add("country_id = $%d", f.CountryID)
	}
	if f.SourceName != "" {
		add("source_name = $%d", f.SourceName)
	}
	if f.Location != "" {
		add("location = $%d", f.Location)
	}
	if f.Keyword != "" {
		args = append(args, "%"+f.Keyword+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	args = append(args, f.limit())

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY scraped_at DESC NULLS LAST, id DESC LIMIT $%d`,
		postingColumns, pq.QuoteIdentifier(s.tableName), strings.Join(conditions, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search postings: %w", err)
	}
	defer rows.Close()

	var postings []*domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return postings, nil
}

// ResolveCountry returns the id of the country with the given code
func (s *PostgresStore) ResolveCountry(ctx context.Context, code string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `SELECT id FROM countries WHERE code = $1`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("country %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve country %s: %w", code, err)
	}
	return id, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (*domain.Posting, error) {
	var (
		p                                             domain.Posting
		title, company, location, description, salary sql.NullString
		requirements, tasks, benefits, details        sql.NullString
		externalID                                    sql.NullString
		scrapedAt                                     sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.CountryID, &title, &company, &location, &description,
		&requirements, &tasks, &benefits, &salary, &details,
		&p.ExternalURL, &p.SourceName, &externalID, &p.IsVerified, &scrapedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Title = title.String
	p.Company = company.String
	p.Location = location.String
	p.Description = description.String
	p.Salary = salary.String
	p.ExternalID = externalID.String
	p.Requirements = splitList(requirements)
	p.Tasks = splitList(tasks)
	p.Benefits = splitList(benefits)
	if scrapedAt.Valid {
		p.ScrapedAt = scrapedAt.Time
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &p.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}

	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func joinList(items []string) sql.NullString {
	return nullString(strings.Join(items, listSeparator))
}

func splitList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	return strings.Split(s.String, listSeparator)
}

func encodeDetails(details map[string]string) (sql.NullString, error) {
	if len(details) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
