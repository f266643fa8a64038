package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var tableKeywords = []struct {
	keyword string
	table   string
}{
	{"revoked", "revoked_tokens"},
	{"refresh", "refresh_tokens"},
	{"member", "community_members"},
	{"comment", "comments"},
	{"like", "post_likes"},
	{"post", "posts"},
	{"communit", "communities"},
	{"user", "users"},
	{"account", "users"},
}

func extractTableFromOperation(operation string) string {
	operation = strings.ToLower(operation)
	for _, k := range tableKeywords {
		if strings.Contains(operation, k.keyword) {
			return k.table
		}
	}
	return "unknown"
}

func HandleQueryError(err error, notFoundErr error, operation string, startTime time.Time) error {
	MeasureQueryDuration(operation, startTime)

	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFoundErr != nil {
		return notFoundErr
	}
	metrics.DBQueryErrors.WithLabelValues(operation, extractTableFromOperation(operation), fmt.Sprintf("%T", err)).Inc()
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func HandleExecError(err error, operation string, startTime time.Time) error {
	MeasureQueryDuration(operation, startTime)

	if err == nil {
		return nil
	}
	metrics.DBQueryErrors.WithLabelValues(operation, extractTableFromOperation(operation), fmt.Sprintf("%T", err)).Inc()
	return fmt.Errorf("failed to %s: %w", operation, err)
}

func MeasureQueryDuration(operation string, startTime time.Time) {
	table := extractTableFromOperation(operation)
	metrics.DBQueryDurationSeconds.WithLabelValues(operation, table).Observe(time.Since(startTime).Seconds())
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
