package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"horizon/internal/api"
)

func TestTranslate(t *testing.T) {
	t.Run("known message", func(t *testing.T) {
		got := Translate("Unable to log in with provided credentials.")
		if got != "Неверный email или пароль" {
			t.Errorf("Translate = %q", got)
		}
	})

	t.Run("unknown message falls back to raw", func(t *testing.T) {
		raw := "Some backend message nobody mapped."
		if got := Translate(raw); got != raw {
			t.Errorf("Translate = %q, want the raw message", got)
		}
	})
}

func TestSession_Bootstrap(t *testing.T) {
	t.Run("no session means nil user, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client, err := api.New(srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		s := NewSession(client)
		if err := s.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap = %v, want nil", err)
		}
		if s.User() != nil {
			t.Error("expected nil user without a session")
		}
	})

	t.Run("existing session restores the user", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"u1","username":"steve","social_accounts":["discord"]}`))
		}))
		defer srv.Close()

		client, err := api.New(srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		s := NewSession(client)
		if err := s.Bootstrap(context.Background()); err != nil {
			t.Fatal(err)
		}
		user := s.User()
		if user == nil || user.Username != "steve" {
			t.Fatalf("unexpected user: %+v", user)
		}
		if !user.HasProvider("discord") {
			t.Error("linked provider lost")
		}
	})
}

func TestSession_LoginTranslatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Unable to log in with provided credentials."}`))
	}))
	defer srv.Close()

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(client)

	err = s.Login(context.Background(), "a@b.c", "wrong")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if err.Error() != "Неверный email или пароль" {
		t.Errorf("error = %q, want the translated message", err.Error())
	}
}

func TestSession_RegisterPrechecksUsername(t *testing.T) {
	// No server: the local check must refuse before any request.
	s := NewSession(nil)
	err := s.Register(context.Background(), "a@b.c", "password123", "ab")
	if err == nil {
		t.Fatal("expected registration to fail on a short username")
	}
	if !strings.Contains(err.Error(), "минимум 3 символа") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSession_ProviderLoginURL(t *testing.T) {
	client, err := api.New("https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(client)

	got := s.ProviderLoginURL("discord", true, "/profile")
	if !strings.HasPrefix(got, "https://example.com/accounts/discord/login/?") {
		t.Errorf("unexpected URL: %s", got)
	}
	if !strings.Contains(got, "process=connect") {
		t.Errorf("connect mode missing: %s", got)
	}
}
