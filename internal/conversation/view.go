package conversation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c-pro/geche"
	"golang.org/x/sync/errgroup"

	"horizon/internal/api"
	"horizon/internal/downloads"
	"horizon/internal/models"
	"horizon/internal/notify"
)

// DayLabels returns one label per message: the day-separator text shown
// above that message, or "" when it shares a calendar day with the
// previous one. Pure over its inputs, so recomputing over an unchanged
// list yields the same separators.
func DayLabels(messages []models.Message, now time.Time) []string {
	labels := make([]string, len(messages))
	var prev time.Time
	for i, m := range messages {
		ts := m.Timestamp.Local()
		if i == 0 || !sameDay(ts, prev) {
			labels[i] = dayLabel(ts, now)
		}
		prev = ts
	}
	return labels
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayLabel(ts, now time.Time) string {
	switch {
	case sameDay(ts, now):
		return "Сегодня"
	case sameDay(ts, now.AddDate(0, 0, -1)):
		return "Вчера"
	}
	return ts.Format("02.01.2006")
}

// SearchCursor walks the matches of a case-insensitive substring search
// over a message window. Next and Prev wrap around.
type SearchCursor struct {
	ids []string
	pos int
}

// NewSearchCursor collects the IDs of messages whose content contains
// query, ignoring case. A blank query matches nothing.
func NewSearchCursor(messages []models.Message, query string) *SearchCursor {
	c := &SearchCursor{pos: -1}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c
	}
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), query) {
			c.ids = append(c.ids, m.ID)
		}
	}
	return c
}

func (c *SearchCursor) Count() int {
	return len(c.ids)
}

// Next advances to the next match, wrapping to the first after the
// last. Returns the matched message ID, or "" when there are no matches.
func (c *SearchCursor) Next() string {
	if len(c.ids) == 0 {
		return ""
	}
	c.pos = (c.pos + 1) % len(c.ids)
	return c.ids[c.pos]
}

// Prev steps back to the previous match, wrapping to the last before
// the first.
func (c *SearchCursor) Prev() string {
	if len(c.ids) == 0 {
		return ""
	}
	if c.pos <= 0 {
		c.pos = len(c.ids)
	}
	c.pos--
	return c.ids[c.pos]
}

// View bundles the per-message operations of an open conversation.
type View struct {
	client *api.Client
	conv   *Conversation
	hub    *notify.Hub
	store  *downloads.Store

	// Bodies re-fetched for forwarding, keyed by attachment ID. Keeps
	// a multi-recipient forward from downloading the same file twice.
	bodies geche.Geche[string, []byte]
}

func NewView(ctx context.Context, client *api.Client, conv *Conversation, hub *notify.Hub, store *downloads.Store) *View {
	return &View{
		client: client,
		conv:   conv,
		hub:    hub,
		store:  store,
		bodies: geche.NewMapTTLCache[string, []byte](ctx, 5*time.Minute, time.Minute),
	}
}

// Download fetches an attachment body and saves it into the downloads
// directory, returning the saved path.
func (v *View) Download(ctx context.Context, att models.Attachment) (string, error) {
	data, err := v.client.FetchFile(ctx, att.File)
	if err != nil {
		v.hub.Error("не удалось скачать файл")
		return "", fmt.Errorf("failed to fetch attachment %s: %w", att.ID, err)
	}
	path, err := v.store.Save(bytes.NewReader(data), attachmentName(att))
	if err != nil {
		v.hub.Error("не удалось сохранить файл")
		return "", fmt.Errorf("failed to save attachment %s: %w", att.ID, err)
	}
	v.hub.Success("файл сохранён: " + path)
	return path, nil
}

// Delete removes one of the current user's own messages. The local
// window is only touched after the backend confirms.
func (v *View) Delete(ctx context.Context, msg models.Message, selfID string) error {
	if msg.Sender.ID != selfID {
		return fmt.Errorf("can only delete own messages")
	}
	if err := v.client.DeleteMessage(ctx, msg.ID); err != nil {
		v.hub.Error("не удалось удалить сообщение")
		return fmt.Errorf("failed to delete message %s: %w", msg.ID, err)
	}
	v.conv.removeLocal(msg.ID)
	return nil
}

// Copy returns the plain content of a message.
func (v *View) Copy(msg models.Message) string {
	return msg.Content
}

// Forward re-sends a message to each recipient as an independent new
// message attributed to the original author: re-forwarding keeps the
// origin, not the relay. Attachment bodies are re-fetched (cached) and
// re-uploaded; one failed recipient does not stop the others, and a
// single bulk notice is raised regardless of individual failures.
func (v *View) Forward(ctx context.Context, msg models.Message, recipientIDs []string) error {
	files, err := v.attachmentUploads(ctx, msg)
	if err != nil {
		v.hub.Error("не удалось переслать сообщение")
		return err
	}

	origin := msg.Sender.ID
	if msg.ForwardedFrom != nil {
		origin = msg.ForwardedFrom.ID
	}

	var g errgroup.Group
	for _, id := range recipientIDs {
		g.Go(func() error {
			out := api.OutgoingMessage{
				ReceiverID:      id,
				Content:         msg.Content,
				ForwardedFromID: origin,
				Files:           files,
			}
			return v.client.SendMessage(ctx, out)
		})
	}
	err = g.Wait()

	v.hub.Success("сообщение переслано")
	return err
}

func (v *View) attachmentUploads(ctx context.Context, msg models.Message) ([]api.Upload, error) {
	var files []api.Upload
	for _, att := range msg.Attachments {
		data, err := v.bodies.Get(att.ID)
		if err != nil {
			data, err = v.client.FetchFile(ctx, att.File)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch attachment %s: %w", att.ID, err)
			}
			v.bodies.Set(att.ID, data)
		}
		files = append(files, api.Upload{Name: attachmentName(att), Data: data})
	}
	return files, nil
}

func attachmentName(att models.Attachment) string {
	if i := strings.LastIndexByte(att.File, '/'); i >= 0 && i+1 < len(att.File) {
		return att.File[i+1:]
	}
	return att.ID
}
