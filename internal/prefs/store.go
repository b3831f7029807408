package prefs

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var bucketPrefs = []byte("prefs")

var keyTheme = []byte("theme")

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}

// DBTheme is the stored form of the theme preference.
type DBTheme struct {
	Mode      string `msgpack:"mode"`
	UpdatedAt int64  `msgpack:"updatedAt"`
}

func (t *DBTheme) MarshalBinary() (data []byte, err error) {
	type alias DBTheme
	return msgpack.Marshal((*alias)(t))
}

func (t *DBTheme) UnmarshalBinary(data []byte) error {
	type alias DBTheme
	return msgpack.Unmarshal(data, (*alias)(t))
}

// Store persists client preferences. The theme choice is the only
// durable client state; everything social is refetched from the backend.
type Store struct {
	db *bbolt.DB
}

func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open prefs db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create prefs bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Theme returns the stored preference. Missing or unknown values fall
// back to ThemeSystem rather than erroring.
func (s *Store) Theme() (Theme, error) {
	theme := ThemeSystem
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPrefs).Get(keyTheme)
		if data == nil {
			return nil
		}
		var stored DBTheme
		if err := stored.UnmarshalBinary(data); err != nil {
			return err
		}
		if t := Theme(stored.Mode); t.Valid() {
			theme = t
		}
		return nil
	})
	return theme, err
}

func (s *Store) SetTheme(theme Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		stored := DBTheme{
			Mode:      string(theme),
			UpdatedAt: time.Now().Unix(),
		}
		data, err := stored.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPrefs).Put(keyTheme, data)
	})
}
