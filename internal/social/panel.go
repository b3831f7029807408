// Package social maintains the friends panel: the friend list, pending
// friend requests in both directions, profile settings, and the
// optimistic mutations over them.
package social

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"horizon/internal/api"
	"horizon/internal/models"
	"horizon/internal/notify"
)

// Panel holds the friends-panel state, refreshed on a fixed interval.
type Panel struct {
	client   *api.Client
	hub      *notify.Hub
	interval time.Duration

	// OnSelect is invoked when a friend is chosen as the active peer.
	// The active conversation itself is owned by the caller.
	OnSelect func(friend models.Friend)

	mux      sync.RWMutex
	self     models.User
	friends  []models.Friend
	received []models.FriendRequest
	sent     []models.FriendRequest
	settings models.ProfileSettings
}

func NewPanel(client *api.Client, hub *notify.Hub, interval time.Duration) *Panel {
	return &Panel{client: client, hub: hub, interval: interval}
}

func (p *Panel) Friends() []models.Friend {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.friends
}

func (p *Panel) Received() []models.FriendRequest {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.received
}

func (p *Panel) Sent() []models.FriendRequest {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.sent
}

func (p *Panel) Settings() models.ProfileSettings {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.settings
}

func (p *Panel) Self() models.User {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.self
}

// Select reports a friend as the chosen conversation peer.
func (p *Panel) Select(friend models.Friend) {
	if p.OnSelect != nil {
		p.OnSelect(friend)
	}
}

// Run refreshes the panel immediately and then on the poll interval,
// until the context is cancelled.
func (p *Panel) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// refresh fetches friends, requests, settings and the current user
// concurrently. A failed cycle keeps the previous state.
func (p *Panel) refresh(ctx context.Context) {
	var (
		friends  []models.Friend
		requests []models.FriendRequest
		settings models.ProfileSettings
		self     models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		friends, err = p.client.Friends(gctx)
		return err
	})
	g.Go(func() (err error) {
		requests, err = p.client.FriendRequests(gctx)
		return err
	})
	g.Go(func() (err error) {
		settings, err = p.client.ProfileSettings(gctx)
		return err
	})
	g.Go(func() (err error) {
		self, err = p.client.SocialMe(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() == nil {
			slog.Error("friends panel refresh failed", "error", err)
		}
		return
	}

	received, sent := partitionPending(requests, self.ID)

	p.mux.Lock()
	p.self = self
	p.friends = friends
	p.received = received
	p.sent = sent
	p.settings = settings
	p.mux.Unlock()
}

// partitionPending splits pending requests by direction relative to the
// current user. Non-pending requests are dropped.
func partitionPending(requests []models.FriendRequest, selfID string) (received, sent []models.FriendRequest) {
	for _, r := range requests {
		if r.Status != models.RequestPending {
			continue
		}
		if r.ToUser.ID == selfID {
			received = append(received, r)
		} else if r.FromUser.ID == selfID {
			sent = append(sent, r)
		}
	}
	return received, sent
}

// SearchUsers looks up users by username fragment for adding friends.
func (p *Panel) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	return p.client.SearchUsers(ctx, query)
}

func (p *Panel) SendRequest(ctx context.Context, toUserID string) error {
	if err := p.client.SendFriendRequest(ctx, toUserID); err != nil {
		p.hub.Error("не удалось отправить заявку в друзья")
		return fmt.Errorf("failed to send friend request: %w", err)
	}
	p.hub.Success("заявка отправлена")
	p.refresh(ctx)
	return nil
}

// Accept confirms a received request optimistically: the request row is
// removed at once and re-inserted at its old position if the backend
// refuses.
func (p *Panel) Accept(ctx context.Context, requestID string) error {
	return p.respond(ctx, requestID, models.RequestAccepted, "заявка принята")
}

// Reject declines a received request, with the same optimistic removal
// and rollback as Accept.
func (p *Panel) Reject(ctx context.Context, requestID string) error {
	return p.respond(ctx, requestID, models.RequestRejected, "заявка отклонена")
}

func (p *Panel) respond(ctx context.Context, requestID string, status models.RequestStatus, okText string) error {
	undo, ok := p.removeRequest(&p.received, requestID)
	if !ok {
		return models.ErrNotFound
	}
	if err := p.client.RespondFriendRequest(ctx, requestID, status); err != nil {
		undo()
		p.hub.Error("не удалось обновить заявку")
		return fmt.Errorf("failed to respond to friend request: %w", err)
	}
	p.hub.Success(okText)
	if status == models.RequestAccepted {
		p.refresh(ctx)
	}
	return nil
}

// Cancel withdraws a sent request, optimistically removed and restored
// on failure.
func (p *Panel) Cancel(ctx context.Context, requestID string) error {
	undo, ok := p.removeRequest(&p.sent, requestID)
	if !ok {
		return models.ErrNotFound
	}
	if err := p.client.CancelFriendRequest(ctx, requestID); err != nil {
		undo()
		p.hub.Error("не удалось отменить заявку")
		return fmt.Errorf("failed to cancel friend request: %w", err)
	}
	p.hub.Success("заявка отменена")
	return nil
}

// removeRequest takes a request out of one of the panel's lists and
// returns the inverse operation: re-insert the same element at the
// index it held.
func (p *Panel) removeRequest(list *[]models.FriendRequest, requestID string) (undo func(), ok bool) {
	p.mux.Lock()
	defer p.mux.Unlock()

	for i, r := range *list {
		if r.ID != requestID {
			continue
		}
		removed, at := r, i
		*list = append((*list)[:i:i], (*list)[i+1:]...)
		return func() {
			p.mux.Lock()
			defer p.mux.Unlock()
			l := *list
			if at > len(l) {
				at = len(l)
			}
			l = append(l[:at:at], append([]models.FriendRequest{removed}, l[at:]...)...)
			*list = l
		}, true
	}
	return nil, false
}

// SetOnlineHidden flips the online-visibility setting optimistically
// and reverts the local boolean when persistence fails.
func (p *Panel) SetOnlineHidden(ctx context.Context, hidden bool) error {
	return p.patchSettings(ctx,
		func(s *models.ProfileSettings) { s.IsOnlineHidden = hidden },
		func(s *models.ProfileSettings) { s.IsOnlineHidden = !hidden },
		api.SettingsPatch{IsOnlineHidden: &hidden})
}

// SetAllowFriendRequests flips whether others may send friend requests.
func (p *Panel) SetAllowFriendRequests(ctx context.Context, allow bool) error {
	return p.patchSettings(ctx,
		func(s *models.ProfileSettings) { s.AllowFriendRequests = allow },
		func(s *models.ProfileSettings) { s.AllowFriendRequests = !allow },
		api.SettingsPatch{AllowFriendRequests: &allow})
}

func (p *Panel) patchSettings(ctx context.Context, apply, revert func(*models.ProfileSettings), patch api.SettingsPatch) error {
	p.mux.Lock()
	apply(&p.settings)
	p.mux.Unlock()

	if err := p.client.UpdateProfileSettings(ctx, patch); err != nil {
		p.mux.Lock()
		revert(&p.settings)
		p.mux.Unlock()
		p.hub.Error("не удалось сохранить настройки")
		return fmt.Errorf("failed to update profile settings: %w", err)
	}
	return nil
}

// BlockedByMe reports whether the current user has blocked the given
// peer, from the blocked-users list. Called when a conversation opens.
func (p *Panel) BlockedByMe(ctx context.Context, peerID string) (bool, error) {
	blocked, err := p.client.BlockedUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch blocked users: %w", err)
	}
	for _, b := range blocked {
		if b.Blocked.ID == peerID {
			return true, nil
		}
	}
	return false, nil
}

func (p *Panel) Block(ctx context.Context, userID string) error {
	if err := p.client.BlockUser(ctx, userID); err != nil {
		p.hub.Error("не удалось заблокировать пользователя")
		return fmt.Errorf("failed to block user: %w", err)
	}
	p.hub.Success("пользователь заблокирован")
	p.refresh(ctx)
	return nil
}

func (p *Panel) Unblock(ctx context.Context, userID string) error {
	if err := p.client.UnblockUser(ctx, userID); err != nil {
		p.hub.Error("не удалось разблокировать пользователя")
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	p.hub.Success("пользователь разблокирован")
	p.refresh(ctx)
	return nil
}

func (p *Panel) Mute(ctx context.Context, userID string) error {
	if err := p.client.MuteUser(ctx, userID); err != nil {
		p.hub.Error("не удалось отключить уведомления")
		return fmt.Errorf("failed to mute user: %w", err)
	}
	p.refresh(ctx)
	return nil
}

func (p *Panel) Unmute(ctx context.Context, userID string) error {
	if err := p.client.UnmuteUser(ctx, userID); err != nil {
		p.hub.Error("не удалось включить уведомления")
		return fmt.Errorf("failed to unmute user: %w", err)
	}
	p.refresh(ctx)
	return nil
}

func (p *Panel) ClearChat(ctx context.Context, peerID string) error {
	if err := p.client.ClearChat(ctx, peerID); err != nil {
		p.hub.Error("не удалось очистить переписку")
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	p.hub.Success("переписка очищена")
	return nil
}

func (p *Panel) RemoveFriend(ctx context.Context, userID string) error {
	if err := p.client.RemoveFriend(ctx, userID); err != nil {
		p.hub.Error("не удалось удалить из друзей")
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	p.hub.Success("пользователь удалён из друзей")
	p.refresh(ctx)
	return nil
}
