package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("subscriber not found")

// SubscriberRepository handles CRUD operations on newsletter subscribers.
type SubscriberRepository struct {
	DB  *sql.DB
	log *zap.Logger
}

func NewSubscriberRepository(db *sql.DB, log *zap.Logger) *SubscriberRepository {
	return &SubscriberRepository{
		DB:  db,
		log: log.With(zap.String("component", "SubscriberRepository")),
	}
}

// GetByEmail returns the subscriber row for email or ErrNotFound.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (models.Subscriber, error) {
	var sub models.Subscriber
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, status, token, ip, consent, created_at
		 FROM subscribers WHERE email = ?`, email,
	).Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Status, &sub.Token, &sub.IP, &sub.Consent, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to query subscriber", zap.String("email", email), zap.Error(err))
		return models.Subscriber{}, err
	}
	return sub, nil
}

// Create inserts a new pending subscriber row.
func (r *SubscriberRepository) Create(ctx context.Context, sub models.Subscriber) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscribers (id, name, email, status, token, ip, consent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Email, sub.Status, sub.Token, sub.IP, sub.Consent, sub.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to insert subscriber",
			zap.String("email", sub.Email), zap.Error(err))
		return err
	}
	r.log.Info("subscriber created",
		zap.String("id", sub.ID), zap.String("email", sub.Email))
	return nil
}

// Delete removes a subscriber row by id. Used only to roll back a row whose
// confirmation email could not be sent.
func (r *SubscriberRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		r.log.Error("failed to delete subscriber", zap.String("id", id), zap.Error(err))
		return err
	}
	r.log.Info("subscriber deleted", zap.String("id", id))
	return nil
}

// ConfirmByID flips a pending subscriber to confirmed. Reports false when no
// pending row matched the id.
func (r *SubscriberRepository) ConfirmByID(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE subscribers SET status = ? WHERE id = ? AND status = ?`,
		models.StatusConfirmed, id, models.StatusPending,
	)
	if err != nil {
		r.log.Error("failed to confirm subscriber", zap.String("id", id), zap.Error(err))
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpiredPending deletes pending rows created before the cutoff, whose
// confirmation tokens can no longer verify.
func (r *SubscriberRepository) PurgeExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM subscribers WHERE status = ? AND created_at < ?`,
		models.StatusPending, cutoff,
	)
	if err != nil {
		r.log.Error("failed to purge expired pending subscribers", zap.Error(err))
		return 0, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if count > 0 {
		r.log.Info("purged expired pending subscribers", zap.Int64("count", count))
	}
	return count, nil
}
