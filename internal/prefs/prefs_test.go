package prefs

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_ThemeRoundTrip(t *testing.T) {
	store := newTestStore(t)

	theme, err := store.Theme()
	if err != nil {
		t.Fatal(err)
	}
	if theme != ThemeSystem {
		t.Errorf("fresh store theme = %s, want system", theme)
	}

	if err := store.SetTheme(ThemeDark); err != nil {
		t.Fatal(err)
	}
	theme, err = store.Theme()
	if err != nil {
		t.Fatal(err)
	}
	if theme != ThemeDark {
		t.Errorf("theme = %s, want dark", theme)
	}
}

func TestStore_RejectsUnknownTheme(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetTheme(Theme("sepia")); err == nil {
		t.Error("expected SetTheme to reject an unknown value")
	}
}

func TestManager_Effective(t *testing.T) {
	system := SchemeDark
	mgr, err := NewManager(newTestStore(t), func() Scheme { return system })
	if err != nil {
		t.Fatal(err)
	}

	if got := mgr.Effective(); got != SchemeDark {
		t.Errorf("system mode effective = %s, want dark", got)
	}

	system = SchemeLight
	if got := mgr.Effective(); got != SchemeLight {
		t.Errorf("system mode must follow the OS scheme, got %s", got)
	}

	if err := mgr.SetTheme(ThemeDark); err != nil {
		t.Fatal(err)
	}
	if got := mgr.Effective(); got != SchemeDark {
		t.Errorf("explicit dark effective = %s", got)
	}
}

func TestManager_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	mgr, err := NewManager(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.SetTheme(ThemeLight); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()
	mgr, err = NewManager(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if mgr.Theme() != ThemeLight {
		t.Errorf("theme after restart = %s, want light", mgr.Theme())
	}
}

func TestManager_Subscribe(t *testing.T) {
	mgr, err := NewManager(newTestStore(t), func() Scheme { return SchemeLight })
	if err != nil {
		t.Fatal(err)
	}
	updates := mgr.Subscribe()

	if err := mgr.SetTheme(ThemeDark); err != nil {
		t.Fatal(err)
	}
	if got := <-updates; got != SchemeDark {
		t.Errorf("update after SetTheme = %s, want dark", got)
	}

	// OS changes are ignored outside system mode.
	mgr.SystemChanged()
	select {
	case got := <-updates:
		t.Errorf("unexpected update %s in explicit mode", got)
	default:
	}

	if err := mgr.SetTheme(ThemeSystem); err != nil {
		t.Fatal(err)
	}
	<-updates
	mgr.SystemChanged()
	if got := <-updates; got != SchemeLight {
		t.Errorf("system change update = %s, want light", got)
	}
}
