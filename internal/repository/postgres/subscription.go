package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Titansingh/ProfessionalBackend/internal/domain"
	"github.com/Titansingh/ProfessionalBackend/pkg/database"
	apperrors "github.com/Titansingh/ProfessionalBackend/pkg/errors"
)

// SubscriptionRepository implements repository.SubscriptionRepository using
// PostgreSQL.
type SubscriptionRepository struct {
	db DB
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription
// repository.
func NewSubscriptionRepository(db DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetChannelProfile loads the channel view of a user in one query: profile
// fields, subscriber count, subscribed-to count, and whether viewerID is
// among the subscribers. An empty viewerID yields is_subscribed = false.
func (r *SubscriptionRepository) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	query := `
		SELECT
			u.id, u.username, u.full_name, u.email, u.avatar_url, u.cover_image_url,
			(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
			(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
			EXISTS (
				SELECT 1 FROM subscriptions s
				WHERE s.channel_id = u.id AND s.subscriber_id = $2
			) AS is_subscribed
		FROM users u
		WHERE u.username = $1`

	var p domain.ChannelProfile

	ctx, end := database.TraceQuery(ctx, "GetChannelProfile", query)
	err := r.db.QueryRow(ctx, query, username, viewerID).Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.Email,
		&p.AvatarURL,
		&p.CoverImageURL,
		&p.SubscriberCount,
		&p.SubscribedToCount,
		&p.IsSubscribed,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("channel", username)
		}
		return nil, fmt.Errorf("scan channel profile: %w", err)
	}

	return &p, nil
}
