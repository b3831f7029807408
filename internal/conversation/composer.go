package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"horizon/internal/api"
	"horizon/internal/content"
	"horizon/internal/models"
	"horizon/internal/notify"
)

var (
	ErrNothingToSend = errors.New("nothing to send")
	ErrBusy          = errors.New("a send is already in flight")
)

// StagedFile is an attachment selected for the next message.
type StagedFile struct {
	ID        string
	Name      string
	Data      []byte
	MediaType string
}

// Composer assembles the outgoing message for a conversation: draft
// text, staged attachments and an optional reply target. At most one
// send is in flight at a time.
type Composer struct {
	client   *api.Client
	conv     *Conversation
	poller   *Poller
	hub      *notify.Hub
	maxBytes int64

	mux      sync.Mutex
	draft    string
	staged   []StagedFile
	reply    *models.MessageRef
	inFlight bool
}

func NewComposer(client *api.Client, conv *Conversation, poller *Poller, hub *notify.Hub, maxBytes int64) *Composer {
	return &Composer{
		client:   client,
		conv:     conv,
		poller:   poller,
		hub:      hub,
		maxBytes: maxBytes,
	}
}

func (c *Composer) Draft() string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.draft
}

func (c *Composer) SetDraft(text string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.draft = text
}

func (c *Composer) Staged() []StagedFile {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]StagedFile(nil), c.staged...)
}

func (c *Composer) ReplyTarget() *models.MessageRef {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.reply
}

// SetReply marks a message as the reply target of the next send.
func (c *Composer) SetReply(msg models.Message) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.reply = &models.MessageRef{ID: msg.ID, Sender: msg.Sender, Content: msg.Content}
}

func (c *Composer) ClearReply() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.reply = nil
}

func (c *Composer) Unstage(fileID string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for i, f := range c.staged {
		if f.ID == fileID {
			c.staged = append(c.staged[:i:i], c.staged[i+1:]...)
			return
		}
	}
}

// Stage adds files to the next message. Each file is checked against
// the size ceiling individually: oversized ones are dropped and
// reported by name in a single notification, the rest are staged.
// Media type is inferred from the file's leading bytes.
func (c *Composer) Stage(files []api.Upload) {
	var rejected []string
	var accepted []StagedFile
	for _, f := range files {
		if int64(len(f.Data)) > c.maxBytes {
			rejected = append(rejected, f.Name)
			continue
		}
		accepted = append(accepted, StagedFile{
			ID:        uuid.NewString(),
			Name:      f.Name,
			Data:      f.Data,
			MediaType: inferMediaType(f.Data),
		})
	}

	c.mux.Lock()
	c.staged = append(c.staged, accepted...)
	c.mux.Unlock()

	if len(rejected) > 0 {
		c.hub.Error(fmt.Sprintf("файлы превышают %d МБ: %s",
			c.maxBytes>>20, strings.Join(rejected, ", ")))
	}
}

// Send submits the composed message. It refuses when there is nothing
// to send (blank draft, no attachments), when a send is already in
// flight, or when the relation is blocked in either direction. On
// success the draft, staged files and reply target are cleared and an
// immediate poll refresh is requested; on failure the draft stays.
func (c *Composer) Send(ctx context.Context) error {
	c.mux.Lock()
	if content.IsBlank(c.draft) && len(c.staged) == 0 {
		c.mux.Unlock()
		return ErrNothingToSend
	}
	if c.inFlight {
		c.mux.Unlock()
		return ErrBusy
	}
	if c.conv.BlockRelation().Either() {
		c.mux.Unlock()
		return models.ErrBlocked
	}
	c.inFlight = true
	msg := c.buildLocked()
	c.mux.Unlock()

	err := c.client.SendMessage(ctx, msg)

	c.mux.Lock()
	c.inFlight = false
	if err == nil {
		c.draft = ""
		c.staged = nil
		c.reply = nil
	}
	c.mux.Unlock()

	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 403 {
			// Direct evidence the peer blocked us.
			c.conv.SetBlockedMe(true)
		}
		c.hub.Error("не удалось отправить сообщение")
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.poller.Refresh()
	return nil
}

func (c *Composer) buildLocked() api.OutgoingMessage {
	msg := api.OutgoingMessage{
		ReceiverID: c.conv.Peer().ID,
		Content:    content.Sanitize(c.draft),
	}
	if c.reply != nil {
		msg.ReplyToID = c.reply.ID
	}
	for _, f := range c.staged {
		msg.Files = append(msg.Files, api.Upload{Name: f.Name, Data: f.Data})
	}
	return msg
}

func inferMediaType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}
