package prefs

import "sync"

// Scheme is a resolved color scheme: never "system".
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// SystemSchemeFunc reports the operating system's current color scheme.
type SystemSchemeFunc func() Scheme

// Manager owns the process-wide theme preference: initialized from the
// store, resolved through the OS scheme when set to "system", persisted on
// every change and broadcast to subscribers on explicit set and on OS
// scheme change.
type Manager struct {
	mu     sync.Mutex
	store  *Store
	theme  Theme
	system SystemSchemeFunc
	subs   []chan Scheme
}

func NewManager(store *Store, system SystemSchemeFunc) (*Manager, error) {
	theme, err := store.Theme()
	if err != nil {
		return nil, err
	}
	if system == nil {
		system = func() Scheme { return SchemeLight }
	}
	return &Manager{
		store:  store,
		theme:  theme,
		system: system,
	}, nil
}

func (m *Manager) Theme() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Effective resolves the preference to a concrete scheme.
func (m *Manager) Effective() Scheme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effectiveLocked()
}

func (m *Manager) effectiveLocked() Scheme {
	switch m.theme {
	case ThemeLight:
		return SchemeLight
	case ThemeDark:
		return SchemeDark
	}
	return m.system()
}

// SetTheme persists the preference and notifies subscribers.
func (m *Manager) SetTheme(theme Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetTheme(theme); err != nil {
		return err
	}
	m.theme = theme
	m.notifyLocked()
	return nil
}

// SystemChanged is called by the OS scheme source when the system
// preference flips. Subscribers only hear about it in system mode.
func (m *Manager) SystemChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.theme != ThemeSystem {
		return
	}
	m.notifyLocked()
}

func (m *Manager) Subscribe() <-chan Scheme {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Scheme, 4)
	m.subs = append(m.subs, ch)
	return ch
}

func (m *Manager) notifyLocked() {
	scheme := m.effectiveLocked()
	for _, ch := range m.subs {
		select {
		case ch <- scheme:
		default:
		}
	}
}
