package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activity-plan-service/internal/platform/db"
	"activity-plan-service/internal/platform/obs"
	"activity-plan-service/internal/ports"
)

// SQLReportCache keeps validation reports in the report_cache table.
type SQLReportCache struct {
	DB     *sql.DB
	Driver string
	TTL    time.Duration
	now    func() time.Time
}

var _ ports.ReportCache = (*SQLReportCache)(nil)

// NewSQLReportCache returns a cache whose entries expire after ttl; zero
// keeps entries forever.
func NewSQLReportCache(conn *sql.DB, driver string, ttl time.Duration) *SQLReportCache {
	return &SQLReportCache{DB: conn, Driver: driver, TTL: ttl, now: time.Now}
}

func (s *SQLReportCache) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "report.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("report cache: db is nil")
	}
	if key == "" {
		return nil, false, errors.New("get report cache: key must not be empty")
	}

	q := `
	SELECT report, created_at
	FROM report_cache
	WHERE cache_key = ?;
	`
	var report string
	var created int64
	err = s.DB.QueryRowContext(ctx, db.Rebind(s.Driver, q), key).Scan(&report, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get report cache: query report_cache table: %w", err)
	}

	if s.TTL > 0 && s.now().Sub(time.Unix(created, 0)) > s.TTL {
		return nil, false, nil
	}
	return []byte(report), true, nil
}

func (s *SQLReportCache) Put(ctx context.Context, key string, report []byte) error {
	if s.DB == nil {
		return errors.New("report cache: db is nil")
	}
	if key == "" {
		return errors.New("insert report cache: key must not be empty")
	}

	q := `
	INSERT INTO report_cache (cache_key, report, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE
	SET report = EXCLUDED.report,
		created_at = EXCLUDED.created_at;
	`
	if _, err := s.DB.ExecContext(ctx, db.Rebind(s.Driver, q), key, string(report), s.now().Unix()); err != nil {
		return fmt.Errorf("insert report cache key=%q: %w", key, err)
	}
	return nil
}
