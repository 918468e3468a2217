package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadgate-systems/leadgate/internal/models"
)

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
	query := `
		SELECT id, email, first_name, last_name, phone, company, source,
			status, score, metadata, assigned_to_id,
			created_at, updated_at, last_contact_at, contacted_at, converted_at
		FROM leads
		WHERE email = lower($1)
	`
	return scanLead(s.pool.QueryRow(ctx, query, email))
}

func (s *PostgresStore) Create(ctx context.Context, lead *models.Lead) error {
	metadata, err := json.Marshal(lead.Metadata)
	if err != nil {
		return fmt.Errorf("marshal lead metadata: %w", err)
	}

	query := `
		INSERT INTO leads (id, email, first_name, last_name, phone, company,
			source, status, score, metadata, assigned_to_id, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
	`
	_, err = s.pool.Exec(ctx, query,
		lead.ID, lead.Email, lead.FirstName, lead.LastName, lead.Phone,
		lead.Company, lead.Source, lead.Status, lead.Score, metadata,
		lead.AssignedToID, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrLeadExists
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// Merge runs fn against the row locked FOR UPDATE inside a transaction, so
// concurrent duplicate submissions for the same email serialize instead of
// losing updates.
func (s *PostgresStore) Merge(ctx context.Context, email string, fn func(*models.Lead) error) (*models.Lead, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, email, first_name, last_name, phone, company, source,
			status, score, metadata, assigned_to_id,
			created_at, updated_at, last_contact_at, contacted_at, converted_at
		FROM leads
		WHERE email = lower($1)
		FOR UPDATE
	`
	lead, err := scanLead(tx.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	if err := fn(lead); err != nil {
		return nil, err
	}
	lead.UpdatedAt = time.Now().UTC()

	metadata, err := json.Marshal(lead.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal lead metadata: %w", err)
	}

	update := `
		UPDATE leads
		SET first_name = $2, last_name = $3, phone = $4, company = $5,
			score = $6, metadata = $7, updated_at = $8
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update,
		lead.ID, lead.FirstName, lead.LastName, lead.Phone, lead.Company,
		lead.Score, metadata, lead.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to merge lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge tx: %w", err)
	}
	return lead, nil
}

func (s *PostgresStore) AddActivity(ctx context.Context, activity *models.LeadActivity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}

	query := `
		INSERT INTO lead_activities (id, lead_id, type, description, user_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		activity.ID, activity.LeadID, activity.Type, activity.Description,
		activity.UserID, metadata, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, type, platform, payload, status,
			attempts, last_error, next_retry_at, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`
	_, err := s.pool.Exec(ctx, query,
		event.ID, event.Type, event.Platform, []byte(event.Payload), event.Status,
		event.Attempts, event.LastError, event.NextRetryAt, event.ProcessedAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook event: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		UPDATE webhook_events
		SET status = $2, attempts = $3, last_error = NULLIF($4, ''),
			next_retry_at = $5, processed_at = $6
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		event.ID, event.Status, event.Attempts, event.LastError,
		event.NextRetryAt, event.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *PostgresStore) ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*models.WebhookEvent, error) {
	query := `
		SELECT id, type, platform, payload, status, attempts,
			COALESCE(last_error, ''), next_retry_at, processed_at, created_at
		FROM webhook_events
		WHERE status = 'FAILED'
			AND attempts < $1
			AND (next_retry_at IS NULL OR next_retry_at <= $2)
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, maxAttempts, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable events: %w", err)
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		e := &models.WebhookEvent{}
		var payload []byte
		if err := rows.Scan(
			&e.ID, &e.Type, &e.Platform, &payload, &e.Status, &e.Attempts,
			&e.LastError, &e.NextRetryAt, &e.ProcessedAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) RetryStats(ctx context.Context, maxAttempts int, now time.Time) (models.DeadLetterStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE attempts < $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)),
			COUNT(*) FILTER (WHERE attempts < $1 AND next_retry_at > $2),
			COUNT(*) FILTER (WHERE attempts >= $1),
			COUNT(*)
		FROM webhook_events
		WHERE status = 'FAILED'
	`
	var stats models.DeadLetterStats
	err := s.pool.QueryRow(ctx, query, maxAttempts, now).Scan(
		&stats.Pending, &stats.Retrying, &stats.DeadLettered, &stats.Total,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to compute retry stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) InsertPerf(ctx context.Context, entry *models.WebhookPerformanceLog) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal perf metadata: %w", err)
	}

	query := `
		INSERT INTO webhook_performance_logs (id, platform, endpoint, method,
			status_code, processing_time_ms, payload_size, error_message, metadata, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		entry.ID, entry.Platform, entry.Endpoint, entry.Method, entry.StatusCode,
		entry.ProcessingTime, entry.PayloadSize, entry.ErrorMessage, metadata, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert performance log: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryPerf(ctx context.Context, start, end time.Time, platform string) ([]*models.WebhookPerformanceLog, error) {
	query := `
		SELECT id, platform, endpoint, method, status_code, processing_time_ms,
			payload_size, COALESCE(error_message, ''), metadata, ts
		FROM webhook_performance_logs
		WHERE ts >= $1 AND ts < $2
			AND ($3 = '' OR platform = $3)
		ORDER BY ts
	`
	rows, err := s.pool.Query(ctx, query, start, end, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.WebhookPerformanceLog
	for rows.Next() {
		e := &models.WebhookPerformanceLog{}
		var metadata []byte
		if err := rows.Scan(
			&e.ID, &e.Platform, &e.Endpoint, &e.Method, &e.StatusCode,
			&e.ProcessingTime, &e.PayloadSize, &e.ErrorMessage, &metadata, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan performance log: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal perf metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UpsertAlert(ctx context.Context, alert *models.WebhookAlert) error {
	// The partial unique index on (type, platform) WHERE NOT resolved
	// makes repeated breaches of an ongoing condition refresh the open
	// alert instead of stacking duplicates.
	query := `
		INSERT INTO webhook_alerts (id, type, severity, platform, message,
			threshold, current_value, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		ON CONFLICT (type, platform) WHERE NOT resolved
		DO UPDATE SET current_value = EXCLUDED.current_value,
			severity = EXCLUDED.severity,
			message = EXCLUDED.message
	`
	_, err := s.pool.Exec(ctx, query,
		alert.ID, alert.Type, alert.Severity, alert.Platform, alert.Message,
		alert.Threshold, alert.CurrentValue, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]*models.WebhookAlert, error) {
	query := `
		SELECT id, type, severity, COALESCE(platform, ''), message,
			threshold, current_value, resolved, resolved_at, created_at
		FROM webhook_alerts
		WHERE NOT resolved
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.WebhookAlert
	for rows.Next() {
		a := &models.WebhookAlert{}
		if err := rows.Scan(
			&a.ID, &a.Type, &a.Severity, &a.Platform, &a.Message,
			&a.Threshold, &a.CurrentValue, &a.Resolved, &a.ResolvedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) ResolveAlert(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE webhook_alerts
		SET resolved = true, resolved_at = $2
		WHERE id = $1 AND NOT resolved
	`
	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already resolved; check which.
		var exists bool
		if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM webhook_alerts WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check alert: %w", err)
		}
		if !exists {
			return ErrAlertNotFound
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	lead := &models.Lead{}
	var metadata []byte
	var assignedTo *string

	err := row.Scan(
		&lead.ID, &lead.Email, &lead.FirstName, &lead.LastName, &lead.Phone,
		&lead.Company, &lead.Source, &lead.Status, &lead.Score, &metadata,
		&assignedTo, &lead.CreatedAt, &lead.UpdatedAt,
		&lead.LastContact, &lead.ContactedAt, &lead.ConvertedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if assignedTo != nil {
		lead.AssignedToID = *assignedTo
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal lead metadata: %w", err)
		}
	}
	return lead, nil
}
