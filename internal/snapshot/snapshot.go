package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

// DefaultKey namespaces the persisted state document. The suffix tracks
// snapshot shape revisions carried over from earlier releases.
const DefaultKey = "teamhub_state_v8"

// Version is the snapshot record version written on save. Records with a
// higher version than we understand are discarded rather than merged.
const Version = 1

var ErrNotFound = errors.New("not found")

// Store persists the whole application state as one JSON document keyed
// in the snapshots table. Save is synchronous and called after every
// mutation; there is no batching.
type Store struct {
	DB  *sql.DB
	Key string
	Now func() time.Time
}

func New(db *sql.DB) Store {
	return Store{DB: db, Key: DefaultKey, Now: time.Now}
}

func (s Store) key() string {
	if s.Key == "" {
		return DefaultKey
	}
	return s.Key
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load reads the persisted state and merges it over the seed's defaults
// field by field, so fields introduced after the record was written still
// get valid values. A missing or malformed record falls back to the seed;
// deserialization failures are logged, never returned.
func (s Store) Load(ctx context.Context, seed domain.AppState) domain.AppState {
	payload, version, err := s.read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("snapshot: load failed, reseeding: %v", err)
		}
		return seed
	}
	if version > Version {
		log.Printf("snapshot: record version %d newer than supported %d, reseeding", version, Version)
		return seed
	}
	st, err := Merge(payload, seed)
	if err != nil {
		log.Printf("snapshot: corrupt record, reseeding: %v", err)
		return seed
	}
	return st
}

// Save serializes the entire state and writes it through.
func (s Store) Save(ctx context.Context, state domain.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	ts := s.now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO snapshots(key,version,payload,updated_at) VALUES (?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET version=excluded.version, payload=excluded.payload, updated_at=excluded.updated_at`,
		s.key(), Version, string(payload), ts)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s Store) read(ctx context.Context) ([]byte, int, error) {
	var payload string
	var version int
	err := s.DB.QueryRowContext(ctx, `SELECT payload, version FROM snapshots WHERE key=?`, s.key()).Scan(&payload, &version)
	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(payload), version, nil
}

// Merge overlays a raw snapshot document onto seed defaults. Every field
// has an explicit default; the record is rejected outright when tasks is
// absent or not array-shaped.
func Merge(payload []byte, seed domain.AppState) (domain.AppState, error) {
	var raw struct {
		Tasks             *[]domain.Task          `json:"tasks"`
		Goals             *[]domain.Goal          `json:"goals"`
		DraftGoals        *[]domain.Goal          `json:"draftGoals"`
		DraftTasks        *[]domain.Task          `json:"draftTasks"`
		Users             *[]domain.User          `json:"users"`
		CurrentUser       *domain.User            `json:"currentUser"`
		ActiveFocusTaskID *string                 `json:"activeFocusTaskId"`
		FocusStartTime    *int64                  `json:"focusStartTime"`
		ActivityLog       *[]domain.ActivityEvent `json:"activityLog"`
		IsDraftMode       *bool                   `json:"isDraftMode"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return seed, fmt.Errorf("decode snapshot: %w", err)
	}
	if raw.Tasks == nil {
		return seed, errors.New("snapshot missing tasks array")
	}

	st := domain.AppState{
		Tasks:       *raw.Tasks,
		Goals:       seed.Goals,
		DraftGoals:  []domain.Goal{},
		DraftTasks:  []domain.Task{},
		Users:       seed.Users,
		CurrentUser: seed.CurrentUser,
		ActivityLog: []domain.ActivityEvent{},
	}
	if st.Tasks == nil {
		st.Tasks = []domain.Task{}
	}
	if raw.Goals != nil {
		st.Goals = *raw.Goals
	}
	if raw.DraftGoals != nil {
		st.DraftGoals = *raw.DraftGoals
	}
	if raw.DraftTasks != nil {
		st.DraftTasks = *raw.DraftTasks
	}
	if raw.Users != nil {
		st.Users = *raw.Users
	}
	if raw.CurrentUser != nil {
		st.CurrentUser = *raw.CurrentUser
	} else if len(st.Users) > 0 {
		st.CurrentUser = st.Users[0]
	}
	if raw.ActiveFocusTaskID != nil {
		st.ActiveFocusTaskID = *raw.ActiveFocusTaskID
	}
	if raw.FocusStartTime != nil {
		st.FocusStartTime = *raw.FocusStartTime
	}
	if raw.ActivityLog != nil {
		st.ActivityLog = *raw.ActivityLog
	}
	if raw.IsDraftMode != nil {
		st.IsDraftMode = *raw.IsDraftMode
	}
	if st.Goals == nil {
		st.Goals = []domain.Goal{}
	}
	if st.Users == nil {
		st.Users = []domain.User{}
	}
	return st, nil
}

// GetSetting reads one persisted scalar (theme preference, last role).
func (s Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// PutSetting writes one persisted scalar.
func (s Store) PutSetting(ctx context.Context, key, value string) error {
	ts := s.now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings(key,value,updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, ts)
	return err
}
