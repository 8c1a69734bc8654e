package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/onnwee/live-alerts/alerts"
)

const (
	tableAlerts     = "alerts"
	colSubscriberID = "subscriber_id"
	colChannel      = "channel"
	colTargetID     = "target_id"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// SubscriptionStore persists alert subscriptions in the alerts table.
// It implements alerts.Store.
type SubscriptionStore struct {
	DB *sql.DB
}

var _ alerts.Store = (*SubscriptionStore)(nil)

func loadAllQuery() squirrel.SelectBuilder {
	return psql.Select(colSubscriberID, colChannel, colTargetID).
		From(tableAlerts).
		OrderBy("id")
}

func insertQuery(sub alerts.Subscription) squirrel.InsertBuilder {
	return psql.Insert(tableAlerts).
		Columns(colSubscriberID, colChannel, colTargetID).
		Values(sub.SubscriberID, sub.Channel, sub.TargetID).
		Suffix("ON CONFLICT (subscriber_id, channel, target_id) DO NOTHING")
}

func deleteQuery(sub alerts.Subscription) squirrel.DeleteBuilder {
	return psql.Delete(tableAlerts).
		Where(squirrel.Eq{
			colSubscriberID: sub.SubscriberID,
			colChannel:      sub.Channel,
			colTargetID:     sub.TargetID,
		})
}

// LoadAll returns every subscription in insertion order.
func (s *SubscriptionStore) LoadAll(ctx context.Context) ([]alerts.Subscription, error) {
	query, args, err := loadAllQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []alerts.Subscription
	for rows.Next() {
		var sub alerts.Subscription
		if err := rows.Scan(&sub.SubscriberID, &sub.Channel, &sub.TargetID); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Insert stores sub. Inserting an existing triple is a no-op.
func (s *SubscriptionStore) Insert(ctx context.Context, sub alerts.Subscription) error {
	query, args, err := insertQuery(sub).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Delete removes the row matching all three fields of sub.
func (s *SubscriptionStore) Delete(ctx context.Context, sub alerts.Subscription) error {
	query, args, err := deleteQuery(sub).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}
