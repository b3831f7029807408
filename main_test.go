package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"horizon/internal/api"
	"horizon/internal/auth"
	"horizon/internal/conversation"
	"horizon/internal/downloads"
	"horizon/internal/models"
	"horizon/internal/notify"
)

// fakeBackend is an in-memory stand-in for the Horizon REST API:
// session auth with a CSRF cookie, one conversation per peer.
type fakeBackend struct {
	mu       sync.Mutex
	loggedIn bool
	messages map[string][]models.Message
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: map[string][]models.Message{}}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.loggedIn = true
		b.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "e2e-token", Path: "/"})
		_, _ = w.Write([]byte(`{}`))
	})

	mux.HandleFunc("GET /api/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.loggedIn {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{ID: "me", Username: "me"})
	})

	mux.HandleFunc("GET /api/social/messages/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		peer := r.URL.Query().Get("user_id")
		_ = json.NewEncoder(w).Encode(b.messages[peer])
	})

	mux.HandleFunc("POST /api/social/messages/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") == "" {
			http.Error(w, `{"error":"CSRF token missing"}`, http.StatusForbidden)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, `{"error":"bad form"}`, http.StatusBadRequest)
			return
		}
		peer := r.FormValue("receiver_id")
		msg := models.Message{
			ID:        uuid.NewString(),
			Sender:    models.User{ID: "me", Username: "me"},
			Content:   r.FormValue("content"),
			Timestamp: time.Now(),
		}
		b.mu.Lock()
		b.messages[peer] = append(b.messages[peer], msg)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	return mux
}

func TestSendFlow(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := api.New(srv.URL)
	require.NoError(t, err)

	session := auth.NewSession(client)
	require.NoError(t, session.Login(ctx, "me@example.com", "secret"))
	require.NotNil(t, session.User())

	hub := notify.NewHub()
	conv := conversation.New(models.User{})
	// A long poll interval: anything visible below must come from the
	// immediate fetch paths, never from a timer tick.
	poller := conversation.NewPoller(client, conv, time.Hour)
	composer := conversation.NewComposer(client, conv, poller, hub, 15<<20)

	store, err := downloads.NewStore(t.TempDir())
	require.NoError(t, err)
	_ = conversation.NewView(ctx, client, conv, hub, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = poller.Run(ctx)
	}()

	peer := models.User{ID: "peer1", Username: "alex"}
	poller.SwitchPeer(peer)

	// Seed a reply target and a draft, then send.
	composer.SetDraft("hi")
	composer.SetReply(models.Message{ID: "m0", Sender: peer, Content: "earlier"})
	require.NoError(t, composer.Send(ctx))

	require.Empty(t, composer.Draft(), "draft must be cleared after a successful send")
	require.Nil(t, composer.ReplyTarget(), "reply target must be cleared after a successful send")
	require.Empty(t, composer.Staged())

	// The message must become visible through the immediate refresh,
	// well before the one-hour ticker could fire.
	require.Eventually(t, func() bool {
		messages := conv.Messages()
		return len(messages) == 1 && messages[0].Content == "hi"
	}, 2*time.Second, 10*time.Millisecond, "sent message did not appear via immediate refresh")

	cancel()
	<-done
}

func TestSendFlow_FailurePreservesDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	hub := notify.NewHub()
	events := hub.Subscribe()
	conv := conversation.New(models.User{ID: "peer1"})
	poller := conversation.NewPoller(client, conv, time.Hour)
	composer := conversation.NewComposer(client, conv, poller, hub, 15<<20)

	composer.SetDraft("важное сообщение")
	require.Error(t, composer.Send(ctx))
	require.Equal(t, "важное сообщение", composer.Draft(), "failed send must preserve the draft")

	select {
	case ev := <-events:
		require.Equal(t, notify.LevelError, ev.Level)
	default:
		t.Fatal("no error notification after a failed send")
	}

	// The failed send must not leave the composer stuck in flight.
	err = composer.Send(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, conversation.ErrBusy)
}
