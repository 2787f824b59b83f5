package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

const notificationColumns = `id, user_id, type, title, message, data, read, created_at, read_at`

// NotificationRepository is the postgres-backed notification store.
type NotificationRepository struct {
	pool      *pgxpool.Pool
	tx        *TransactionManager
	retention int
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository creates a repository. When retention is positive
// only the newest retention notifications are kept per user.
func NewNotificationRepository(pool *pgxpool.Pool, retention int) *NotificationRepository {
	return &NotificationRepository{
		pool:      pool,
		tx:        NewTransactionManager(pool),
		retention: retention,
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	var created *domain.Notification

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		q := GetDBTX(ctx, r.pool)

		row := q.QueryRow(ctx, `
			INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at, read_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+notificationColumns,
			toPgUUID(n.ID), n.UserID, n.Type, n.Title, n.Message, n.Data, n.Read,
			n.CreatedAt, toPgTimestamptz(n.ReadAt),
		)

		var err error
		created, err = scanNotification(row)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}

		if r.retention > 0 {
			_, err = q.Exec(ctx, `
				DELETE FROM notifications
				WHERE id IN (
					SELECT id FROM notifications
					WHERE user_id = $1
					ORDER BY created_at DESC, id DESC
					OFFSET $2
				)`,
				n.UserID, r.retention,
			)
			if err != nil {
				return fmt.Errorf("prune notifications: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]*domain.Notification, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		userID, unreadOnly, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`,
		toPgUUID(id), userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = $2
		WHERE user_id = $1 AND read = FALSE`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		id        pgtype.UUID
		n         domain.Notification
		createdAt pgtype.Timestamptz
		readAt    pgtype.Timestamptz
	)

	err := row.Scan(&id, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.Read, &createdAt, &readAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, err
	}

	n.ID = uuid.UUID(id.Bytes)
	n.CreatedAt = createdAt.Time.UTC()
	if readAt.Valid {
		t := readAt.Time.UTC()
		n.ReadAt = &t
	}
	return &n, nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
