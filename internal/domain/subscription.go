package domain

import "time"

// Subscription links a subscriber to a channel. Channels are users.
type Subscription struct {
	SubscriberID string    `json:"subscriber_id"`
	ChannelID    string    `json:"channel_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChannelProfile is the public view of a user's channel, including
// subscription counts and whether the viewing user is subscribed.
type ChannelProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	CoverImageURL     string `json:"cover_image_url,omitempty"`
	SubscriberCount   int    `json:"subscriber_count"`
	SubscribedToCount int    `json:"subscribed_to_count"`
	IsSubscribed      bool   `json:"is_subscribed"`
}
