package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"horizon/internal/models"
)

const socialBase = "/api/social"

// SearchUsers finds users by username substring. The backend ignores
// queries shorter than three characters, so the client does not send them.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if len(query) < 3 {
		return nil, nil
	}
	var users []models.User
	err := c.getJSON(ctx, socialBase+"/users/search/?q="+url.QueryEscape(query), &users)
	return users, err
}

func (c *Client) Friends(ctx context.Context) ([]models.Friend, error) {
	var friends []models.Friend
	err := c.getJSON(ctx, socialBase+"/friends/", &friends)
	return friends, err
}

// FriendRequests returns all requests the current user participates in,
// both directions, all statuses. Partitioning is the caller's concern.
func (c *Client) FriendRequests(ctx context.Context) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := c.getJSON(ctx, socialBase+"/friends/requests/", &requests)
	return requests, err
}

func (c *Client) SendFriendRequest(ctx context.Context, toUserID string) error {
	body := struct {
		ToUserID string `json:"to_user_id"`
	}{ToUserID: toUserID}
	return c.postJSON(ctx, socialBase+"/friends/requests/", body, nil)
}

func (c *Client) RespondFriendRequest(ctx context.Context, requestID string, status models.RequestStatus) error {
	body, err := encodeJSON(struct {
		Status models.RequestStatus `json:"status"`
	}{Status: status})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("%s/friends/requests/%s/", socialBase, requestID)
	return c.do(ctx, http.MethodPatch, path, body, "application/json", nil)
}

func (c *Client) CancelFriendRequest(ctx context.Context, requestID string) error {
	path := fmt.Sprintf("%s/friends/requests/%s/", socialBase, requestID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Messages returns the full conversation with a peer, oldest first.
// Fetching also marks the peer's messages as read on the backend.
func (c *Client) Messages(ctx context.Context, peerID string) ([]models.Message, error) {
	var messages []models.Message
	err := c.getJSON(ctx, socialBase+"/messages/?user_id="+url.QueryEscape(peerID), &messages)
	return messages, err
}

// SendMessage submits a new message as a multipart form.
func (c *Client) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	body, contentType, err := msg.encode()
	if err != nil {
		return fmt.Errorf("failed to encode message form: %w", err)
	}
	return c.do(ctx, http.MethodPost, socialBase+"/messages/", body, contentType, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("%s/messages/%s/", socialBase, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) BlockUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/block/", socialBase, userID)
	return c.do(ctx, http.MethodPost, path, nil, "", nil)
}

func (c *Client) UnblockUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/block/", socialBase, userID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// BlockedEntry is one row of the blocked-users list.
type BlockedEntry struct {
	ID      string      `json:"id"`
	Blocked models.User `json:"blocked"`
}

func (c *Client) BlockedUsers(ctx context.Context) ([]BlockedEntry, error) {
	var blocked []BlockedEntry
	err := c.getJSON(ctx, socialBase+"/blocked/", &blocked)
	return blocked, err
}

func (c *Client) MuteUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/mute/", socialBase, userID)
	return c.do(ctx, http.MethodPost, path, nil, "", nil)
}

func (c *Client) UnmuteUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/unmute/", socialBase, userID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) ClearChat(ctx context.Context, peerID string) error {
	path := fmt.Sprintf("%s/users/%s/clear-chat/", socialBase, peerID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) RemoveFriend(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/remove-friend/", socialBase, userID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) ProfileSettings(ctx context.Context) (models.ProfileSettings, error) {
	var settings models.ProfileSettings
	err := c.getJSON(ctx, socialBase+"/profile/settings/", &settings)
	return settings, err
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	IsOnlineHidden      *bool `json:"is_online_hidden,omitempty"`
	AllowFriendRequests *bool `json:"allow_friend_requests,omitempty"`
}

func (c *Client) UpdateProfileSettings(ctx context.Context, patch SettingsPatch) error {
	return c.postJSON(ctx, socialBase+"/profile/settings/", patch, nil)
}

// SocialMe returns the current user as the social API sees it.
func (c *Client) SocialMe(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.getJSON(ctx, socialBase+"/me/", &user)
	return user, err
}
