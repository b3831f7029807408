package conversation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"horizon/internal/api"
	"horizon/internal/downloads"
	"horizon/internal/models"
	"horizon/internal/notify"
)

type forwardBackend struct {
	mu        sync.Mutex
	sends     []*http.Request
	receivers []string
	fileHits  int
	failFor   map[string]bool
}

func (b *forwardBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/social/messages/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		receiver := r.FormValue("receiver_id")
		b.mu.Lock()
		b.sends = append(b.sends, r)
		b.receivers = append(b.receivers, receiver)
		fail := b.failFor[receiver]
		b.mu.Unlock()
		if fail {
			http.Error(w, `{"error":"delivery failed"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("GET /media/note.txt", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.fileHits++
		b.mu.Unlock()
		_, _ = w.Write([]byte("attachment body"))
	})
	return mux
}

func TestView_Forward(t *testing.T) {
	backend := &forwardBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	store, err := downloads.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := New(models.User{ID: "peer"})
	view := NewView(ctx, client, conv, notify.NewHub(), store)

	original := models.Message{
		ID:      "m1",
		Sender:  models.User{ID: "author", Username: "author"},
		Content: "смотри что нашёл",
		Attachments: []models.Attachment{
			{ID: "att1", File: "/media/note.txt"},
		},
		Timestamp: time.Now(),
	}

	if err := view.Forward(ctx, original, []string{"r1", "r2", "r3"}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()

	if len(backend.sends) != 3 {
		t.Fatalf("expected 3 independent sends, got %d", len(backend.sends))
	}
	got := map[string]bool{}
	for _, r := range backend.receivers {
		got[r] = true
	}
	for _, want := range []string{"r1", "r2", "r3"} {
		if !got[want] {
			t.Errorf("no send issued to recipient %s", want)
		}
	}
	for _, r := range backend.sends {
		if r.FormValue("forwarded_from_id") != "author" {
			t.Errorf("forwarded_from_id = %q, want author", r.FormValue("forwarded_from_id"))
		}
		files := r.MultipartForm.File["uploaded_files"]
		if len(files) != 1 {
			t.Errorf("expected 1 re-uploaded file, got %d", len(files))
		}
	}

	// The body cache keeps one forward from downloading the same
	// attachment once per recipient.
	if backend.fileHits != 1 {
		t.Errorf("attachment fetched %d times, want 1", backend.fileHits)
	}
}

func TestView_ForwardKeepsOriginalAuthor(t *testing.T) {
	backend := &forwardBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	store, err := downloads.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := New(models.User{ID: "peer"})
	view := NewView(ctx, client, conv, notify.NewHub(), store)

	// A message that was itself forwarded: the relay sent it, but the
	// attribution points at the origin.
	relayed := models.Message{
		ID:            "m2",
		Sender:        models.User{ID: "relay", Username: "relay"},
		ForwardedFrom: &models.User{ID: "origin", Username: "origin"},
		Content:       "передай дальше",
		Timestamp:     time.Now(),
	}

	if err := view.Forward(ctx, relayed, []string{"r1"}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(backend.sends))
	}
	if got := backend.sends[0].FormValue("forwarded_from_id"); got != "origin" {
		t.Errorf("forwarded_from_id = %q, want origin", got)
	}
}

func TestView_ForwardPartialFailure(t *testing.T) {
	backend := &forwardBackend{failFor: map[string]bool{"r2": true}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	store, err := downloads.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub()
	events := hub.Subscribe()
	conv := New(models.User{ID: "peer"})
	view := NewView(ctx, client, conv, hub, store)

	original := models.Message{
		ID:        "m1",
		Sender:    models.User{ID: "author"},
		Content:   "всем привет",
		Timestamp: time.Now(),
	}

	err = view.Forward(ctx, original, []string{"r1", "r2", "r3"})
	if err == nil {
		t.Error("expected an error for the failed recipient")
	}

	backend.mu.Lock()
	attempts := len(backend.receivers)
	backend.mu.Unlock()
	if attempts != 3 {
		t.Errorf("one failure stopped the fan-out: %d of 3 sends attempted", attempts)
	}

	// Regardless of the failure, the user sees a single bulk success
	// notice, mirroring the product behavior.
	select {
	case ev := <-events:
		if ev.Level != notify.LevelSuccess {
			t.Errorf("notice level = %s, want success", ev.Level)
		}
	default:
		t.Fatal("no bulk notice raised")
	}
	select {
	case ev := <-events:
		t.Errorf("more than one notice raised: %+v", ev)
	default:
	}
}
