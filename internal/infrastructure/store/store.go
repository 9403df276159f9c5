package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veriscan/backend/internal/domain"
)

// DB wraps the sqlite database holding the product catalog, the result
// cache table and the validation-log sink.
type DB struct {
	sql *sql.DB
}

// Open opens (and if needed creates) the sqlite database at path.
// ":memory:" is accepted for tests.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS products (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  brand           TEXT,
  barcode         TEXT,
  category        TEXT NOT NULL,
  status          TEXT NOT NULL CHECK (status IN ('approved','pending','flagged')),
  country         TEXT,
  state           TEXT,
  nutrition_grade TEXT,
  image_url       TEXT,
  created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
CREATE TABLE IF NOT EXISTS cache_entries (
  query_hash  TEXT PRIMARY KEY,
  result_data TEXT NOT NULL,
  expires_at  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS validation_logs (
  id              INTEGER PRIMARY KEY,
  user_id         TEXT,
  product_name    TEXT NOT NULL,
  result_summary  TEXT NOT NULL,
  risk_level      TEXT NOT NULL CHECK (risk_level IN ('low','medium','high')),
  confidence      REAL NOT NULL,
  checked_internal INTEGER NOT NULL CHECK (checked_internal IN (0,1)),
  checked_external INTEGER NOT NULL CHECK (checked_external IN (0,1)),
  created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_logs_time ON validation_logs(created_at);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

// Close closes the underlying database handle
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// FindApproved looks up an approved catalog product by barcode first,
// then by case-insensitive name.
func (d *DB) FindApproved(ctx context.Context, name, barcode string) (*domain.Product, error) {
	if barcode != "" {
		p, err := d.scanProduct(d.sql.QueryRowContext(ctx,
			`SELECT id, name, brand, barcode, category, status, country, state, nutrition_grade, image_url
			 FROM products WHERE barcode = ? AND status = 'approved' LIMIT 1`, barcode))
		if err == nil {
			return p, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
	}

	if name == "" {
		return nil, domain.ErrProductNotFound
	}

	p, err := d.scanProduct(d.sql.QueryRowContext(ctx,
		`SELECT id, name, brand, barcode, category, status, country, state, nutrition_grade, image_url
		 FROM products WHERE name LIKE ? AND status = 'approved' LIMIT 1`, "%"+name+"%"))
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return p, nil
}

// Search queries the catalog with the user's filters applied as
// exact/IN predicates. Returns matching rows plus the total count.
func (d *DB) Search(ctx context.Context, query string, filters domain.SearchFilters) ([]domain.Product, int, error) {
	where := []string{"status = 'approved'"}
	args := []interface{}{}

	if query != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+query+"%")
	}
	if filters.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filters.Category)
	}
	if filters.Country != "" {
		where = append(where, "country = ?")
		args = append(args, filters.Country)
	}
	if filters.State != "" {
		where = append(where, "state = ?")
		args = append(args, filters.State)
	}
	if len(filters.NutritionGrades) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filters.NutritionGrades)), ",")
		where = append(where, "nutrition_grade IN ("+placeholders+")")
		for _, g := range filters.NutritionGrades {
			args = append(args, strings.ToLower(g))
		}
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := d.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit)

	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, name, brand, barcode, category, status, country, state, nutrition_grade, image_url
		 FROM products WHERE `+clause+` ORDER BY name LIMIT ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := d.scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return products, total, nil
}

// InsertProduct adds a catalog row (admin CRUD and test seeding)
func (d *DB) InsertProduct(ctx context.Context, p *domain.Product) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO products(id, name, brand, barcode, category, status, country, state, nutrition_grade, image_url)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullIfEmpty(p.Brand), nullIfEmpty(p.Barcode), p.Category, p.Status,
		nullIfEmpty(p.Country), nullIfEmpty(p.State), nullIfEmpty(strings.ToLower(p.NutritionGrade)), nullIfEmpty(p.ImageURL))
	return err
}

// Append writes one validation-log row
func (d *DB) Append(ctx context.Context, entry *domain.ValidationLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO validation_logs(user_id, product_name, result_summary, risk_level, confidence, checked_internal, checked_external, created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		nullIfEmpty(entry.UserID), entry.ProductName, entry.ResultSummary, string(entry.RiskLevel),
		entry.Confidence, boolToInt(entry.SourcesChecked.Internal), boolToInt(entry.SourcesChecked.External), createdAt)
	return err
}

// Recent returns the newest validation-log rows, newest first
func (d *DB) Recent(ctx context.Context, limit int) ([]domain.ValidationLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, user_id, product_name, result_summary, risk_level, confidence, checked_internal, checked_external, created_at
		 FROM validation_logs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ValidationLogEntry
	for rows.Next() {
		var (
			e                  domain.ValidationLogEntry
			userID             sql.NullString
			internal, external int
			risk               string
		)
		if err := rows.Scan(&e.ID, &userID, &e.ProductName, &e.ResultSummary, &risk,
			&e.Confidence, &internal, &external, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.RiskLevel = domain.RiskLevel(risk)
		e.SourcesChecked = domain.SourcesChecked{Internal: internal == 1, External: external == 1}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (d *DB) scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	var brand, barcode, country, state, grade, image sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &brand, &barcode, &p.Category, &p.Status,
		&country, &state, &grade, &image); err != nil {
		return nil, err
	}
	p.Brand = brand.String
	p.Barcode = barcode.String
	p.Country = country.String
	p.State = state.String
	p.NutritionGrade = grade.String
	p.ImageURL = image.String
	return &p, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
