package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// driverNames maps configured storage names to database/sql drivers.
var driverNames = map[string]string{
	"sqlite":   "sqlite3",
	"postgres": "postgres",
	"mysql":    "mysql",
}

// SQLStorage reads queue metadata from a relational table. Columns:
// id, queue_type, from_addr, to_addrs (JSON array), subject, size, priority,
// created_at, updated_at, next_retry, retry_count, last_error.
type SQLStorage struct {
	db      *sql.DB
	storage string
	table   string
}

// OpenSQLStorage opens and pings the database behind storage ("sqlite",
// "postgres" or "mysql"). table must already be a validated identifier.
func OpenSQLStorage(ctx context.Context, storage, dsn, table string) (*SQLStorage, error) {
	driver, ok := driverNames[storage]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL storage %q", storage)
	}

	if storage == "mysql" {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s queue database: %w", storage, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s queue database: %w", storage, err)
	}

	return NewSQLStorage(db, storage, table), nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewSQLStorage wraps an already open database.
func NewSQLStorage(db *sql.DB, storage, table string) *SQLStorage {
	return &SQLStorage{db: db, storage: storage, table: table}
}

// Name identifies the backend
func (s *SQLStorage) Name() string {
	return s.storage
}

func (s *SQLStorage) placeholder() string {
	if s.storage == "postgres" {
		return "$1"
	}
	return "?"
}

// List returns all messages in a specific queue
func (s *SQLStorage) List(ctx context.Context, queueType QueueType) ([]Message, error) {
	query := fmt.Sprintf(`SELECT id, queue_type, from_addr, to_addrs, subject, size, priority,
		created_at, updated_at, next_retry, retry_count, last_error
		FROM %s WHERE queue_type = %s`, s.table, s.placeholder())

	rows, err := s.db.QueryContext(ctx, query, string(queueType))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s queue: %w", queueType, err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			msg        Message
			qType      string
			to         sql.NullString
			subject    sql.NullString
			lastError  sql.NullString
			createdAt  sql.NullTime
			updatedAt  sql.NullTime
			nextRetry  sql.NullTime
			priority   sql.NullInt64
			retryCount sql.NullInt64
		)
		if err := rows.Scan(&msg.ID, &qType, &msg.From, &to, &subject, &msg.Size, &priority,
			&createdAt, &updatedAt, &nextRetry, &retryCount, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}

		msg.QueueType = QueueType(qType)
		msg.Subject = subject.String
		msg.LastError = lastError.String
		msg.CreatedAt = createdAt.Time
		msg.UpdatedAt = updatedAt.Time
		msg.NextRetry = nextRetry.Time
		msg.Priority = Priority(priority.Int64)
		msg.RetryCount = int(retryCount.Int64)
		msg.To = decodeRecipients(to.String)
		if len(msg.To) > 0 {
			msg.Domain = extractDomain(msg.To[0])
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s queue: %w", queueType, err)
	}

	return messages, nil
}

// Stats aggregates counts and sizes per queue type in the database
func (s *SQLStorage) Stats(ctx context.Context) (QueueStats, error) {
	query := fmt.Sprintf(`SELECT queue_type, COUNT(*), COALESCE(SUM(size), 0)
		FROM %s GROUP BY queue_type`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	stats := QueueStats{}
	for rows.Next() {
		var (
			qType string
			count int
			size  int64
		)
		if err := rows.Scan(&qType, &count, &size); err != nil {
			return QueueStats{}, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		stats.add(QueueType(qType), count, size)
	}

	if err := rows.Err(); err != nil {
		return QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}

	stats.LastUpdated = time.Now()
	return stats, nil
}

// Close closes the database handle
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// decodeRecipients accepts a JSON array or a comma separated list.
func decodeRecipients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var to []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &to) == nil {
		return to
	}

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			to = append(to, part)
		}
	}
	return to
}
