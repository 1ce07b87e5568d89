package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lysyi3m/regnews/app/news"
)

const createdAtLayout = "2006-01-02 15:04:05"

var baseColumns = []string{
	"id", "uid", "title", "link", "date", "time", "region", "zone",
	"source", "reasons", "score", "summary", "extractor", "created_at",
}

// NewsRepository stores classified news in SQLite. Each configured market
// owns an indicator column on the news table.
type NewsRepository struct {
	db          *DB
	markets     []string
	defaultDate time.Time
}

// NewNewsRepository builds a repository for the given market vocabulary.
// defaultDate stands in for the date of undated records when filtering.
func NewNewsRepository(db *DB, markets []string, defaultDate time.Time) *NewsRepository {
	return &NewsRepository{
		db:          db,
		markets:     markets,
		defaultDate: defaultDate,
	}
}

// Initialize brings the schema up to date and adds missing market
// indicator columns. Safe to call repeatedly.
func (r *NewsRepository) Initialize(ctx context.Context) error {
	version, dirty, err := RunMigrations(r.db)
	if err != nil {
		return &StorageError{Op: "initialize", Err: err}
	}
	slog.Debug("Migrations applied", "version", version, "dirty", dirty)

	existing, err := r.columns(ctx)
	if err != nil {
		return &StorageError{Op: "initialize", Err: err}
	}

	for _, market := range r.markets {
		if existing[strings.ToLower(market)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE news ADD COLUMN %s INTEGER NOT NULL DEFAULT 0", quoteIdent(market))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Op: "initialize", Err: fmt.Errorf("failed to add market column %q: %w", market, err)}
		}
		existing[strings.ToLower(market)] = true
		slog.Info("Market column added", "market", market)
	}

	return nil
}

func (r *NewsRepository) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('news')")
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		// SQLite identifiers are case-insensitive.
		columns[strings.ToLower(name)] = true
	}

	return columns, rows.Err()
}

// UpsertBatch inserts items whose identity key is not stored yet and returns
// how many rows were added. Existing keys are left untouched. The batch is
// atomic: on any failure nothing is written.
func (r *NewsRepository) UpsertBatch(ctx context.Context, items []news.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StorageError{Op: "upsert", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	inserted := 0
	for _, item := range items {
		query, args, err := r.insertQuery(item)
		if err != nil {
			return 0, &StorageError{Op: "upsert", Err: err}
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, &StorageError{Op: "upsert", Err: fmt.Errorf("failed to insert item %q: %w", item.Title, err)}
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return 0, &StorageError{Op: "upsert", Err: fmt.Errorf("failed to read affected rows: %w", err)}
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Op: "upsert", Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	return inserted, nil
}

func (r *NewsRepository) insertQuery(item news.Item) (string, []any, error) {
	reasons := item.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode reasons: %w", err)
	}

	columns := []string{"uid", "title", "link", "date", "time", "region", "zone", "source", "reasons", "score", "summary", "extractor"}
	values := []any{
		news.UID(item), item.Title, item.Link, nullable(item.Day()), nullable(item.Clock()),
		item.Region, item.Zone, item.Source, string(reasonsJSON), item.Score, item.Summary, item.Extractor,
	}

	for _, market := range r.markets {
		columns = append(columns, quoteIdent(market))
		values = append(values, indicator(item.Markets, market))
	}

	return sq.Insert("news").
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT(uid) DO NOTHING").
		ToSql()
}

// Query returns the records matching filter, newest first.
func (r *NewsRepository) Query(ctx context.Context, filter Filter) ([]news.Record, error) {
	columns := slices.Clone(baseColumns)
	for _, market := range r.markets {
		columns = append(columns, quoteIdent(market))
	}

	effectiveDate := fmt.Sprintf("COALESCE(date, '%s')", r.defaultDate.Format(time.DateOnly))

	builder := sq.Select(columns...).
		From("news").
		Where(sq.Eq{"region": filter.Regions}).
		Where(effectiveDate+" BETWEEN ? AND ?", filter.Start.Format(time.DateOnly), filter.End.Format(time.DateOnly)).
		OrderBy(effectiveDate+" DESC", "time DESC", "id DESC")

	if len(filter.Markets) > 0 {
		builder = builder.Where(r.marketCondition(filter.Markets))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, &StorageError{Op: "query", Err: fmt.Errorf("failed to build query: %w", err)}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	records := []news.Record{}
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Op: "query", Err: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	return records, nil
}

// marketCondition ORs the indicator columns of the requested markets.
// Markets outside the vocabulary cannot match anything.
func (r *NewsRepository) marketCondition(markets []string) sq.Sqlizer {
	condition := sq.Or{}
	for _, requested := range markets {
		for _, market := range r.markets {
			if strings.EqualFold(market, strings.TrimSpace(requested)) {
				condition = append(condition, sq.Gt{quoteIdent(market): 0})
				break
			}
		}
	}
	if len(condition) == 0 {
		return sq.Expr("1=0")
	}
	return condition
}

func (r *NewsRepository) scanRecord(rows *sql.Rows) (news.Record, error) {
	var (
		record                           news.Record
		link, date, clock, zone, summary sql.NullString
		extractor, reasons, createdAt    sql.NullString
	)

	indicators := make([]int64, len(r.markets))
	dest := []any{
		&record.ID, &record.UID, &record.Title, &link, &date, &clock, &record.Region, &zone,
		&record.Source, &reasons, &record.Score, &summary, &extractor, &createdAt,
	}
	for i := range indicators {
		dest = append(dest, &indicators[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return news.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	record.Link = link.String
	record.Time = clock.String
	record.Zone = zone.String
	record.Summary = summary.String
	record.Extractor = extractor.String

	if date.Valid && date.String != "" {
		d, err := time.Parse(time.DateOnly, date.String)
		if err != nil {
			return news.Record{}, fmt.Errorf("invalid stored date %q: %w", date.String, err)
		}
		record.Date = &d
	}

	record.Reasons = []string{}
	if reasons.Valid && reasons.String != "" {
		if err := json.Unmarshal([]byte(reasons.String), &record.Reasons); err != nil {
			return news.Record{}, fmt.Errorf("invalid stored reasons: %w", err)
		}
	}

	if createdAt.Valid {
		if t, err := time.Parse(createdAtLayout, createdAt.String); err == nil {
			record.CreatedAt = t
		}
	}

	record.Markets = []string{}
	for i, market := range r.markets {
		if indicators[i] > 0 {
			record.Markets = append(record.Markets, market)
		}
	}

	return record, nil
}

// LatestDate returns the most recent stored date for region, or nil when
// the region has no dated records.
func (r *NewsRepository) LatestDate(ctx context.Context, region string) (*time.Time, error) {
	query, args, err := sq.Select("MAX(date)").
		From("news").
		Where(sq.Eq{"region": region}).
		Where(sq.NotEq{"date": nil}).
		ToSql()
	if err != nil {
		return nil, &StorageError{Op: "latest date", Err: err}
	}

	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&latest); err != nil {
		return nil, &StorageError{Op: "latest date", Err: err}
	}

	if !latest.Valid || latest.String == "" {
		return nil, nil
	}

	d, err := time.Parse(time.DateOnly, latest.String)
	if err != nil {
		return nil, &StorageError{Op: "latest date", Err: fmt.Errorf("invalid stored date %q: %w", latest.String, err)}
	}

	return &d, nil
}

func (r *NewsRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&count); err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return count, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func indicator(markets []string, market string) int {
	for _, m := range markets {
		if strings.EqualFold(m, market) {
			return 1
		}
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
