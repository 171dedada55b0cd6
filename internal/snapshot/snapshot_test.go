package snapshot_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/sjournalfx-cmyk/teamhub/internal/db"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/migrate"
	"github.com/sjournalfx-cmyk/teamhub/internal/snapshot"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := snapshot.New(newTestDB(t))
	ctx := context.Background()
	seed := snapshot.Seed(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))

	state := seed
	state.Tasks = append(state.Tasks, domain.Task{
		ID: "t-extra", Title: "extra", Status: domain.StatusWorkingOnIt,
		Priority: domain.PriorityLow, Day: domain.DayFri, Tags: []string{},
	})
	state.IsDraftMode = true
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := store.Load(ctx, seed)
	if len(got.Tasks) != len(state.Tasks) {
		t.Fatalf("expected %d tasks, got %d", len(state.Tasks), len(got.Tasks))
	}
	if _, ok := got.TaskByID("t-extra"); !ok {
		t.Fatalf("expected persisted task back")
	}
	if !got.IsDraftMode {
		t.Fatalf("expected draft mode to persist")
	}
}

func TestLoadMissingRecordReturnsSeed(t *testing.T) {
	store := snapshot.New(newTestDB(t))
	seed := snapshot.Seed(time.Now())
	got := store.Load(context.Background(), seed)
	if len(got.Tasks) != len(seed.Tasks) || len(got.Users) != len(seed.Users) {
		t.Fatalf("expected seed state back")
	}
}

func TestLoadCorruptRecordReseeds(t *testing.T) {
	conn := newTestDB(t)
	store := snapshot.New(conn)
	ctx := context.Background()
	_, err := conn.ExecContext(ctx, `INSERT INTO snapshots(key,version,payload,updated_at) VALUES (?,?,?,?)`,
		snapshot.DefaultKey, snapshot.Version, "{not json", "2025-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	seed := snapshot.Seed(time.Now())
	got := store.Load(ctx, seed)
	if len(got.Tasks) != len(seed.Tasks) {
		t.Fatalf("corrupt payload should reseed")
	}
}

func TestLoadNewerVersionReseeds(t *testing.T) {
	conn := newTestDB(t)
	store := snapshot.New(conn)
	ctx := context.Background()
	seed := snapshot.Seed(time.Now())
	payload, _ := json.Marshal(domain.AppState{Tasks: []domain.Task{{ID: "future"}}})
	_, err := conn.ExecContext(ctx, `INSERT INTO snapshots(key,version,payload,updated_at) VALUES (?,?,?,?)`,
		snapshot.DefaultKey, snapshot.Version+1, string(payload), "2025-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got := store.Load(ctx, seed)
	if _, ok := got.TaskByID("future"); ok {
		t.Fatalf("newer record version must not be merged")
	}
}

func TestMergeRejectsMissingTasks(t *testing.T) {
	seed := snapshot.Seed(time.Now())
	if _, err := snapshot.Merge([]byte(`{"goals":[]}`), seed); err == nil {
		t.Fatalf("expected rejection when tasks is absent")
	}
	if _, err := snapshot.Merge([]byte(`{"tasks":"nope"}`), seed); err == nil {
		t.Fatalf("expected rejection when tasks is not an array")
	}
}

func TestMergeDefaultsMissingFields(t *testing.T) {
	seed := snapshot.Seed(time.Now())
	st, err := snapshot.Merge([]byte(`{"tasks":[{"id":"t9","title":"only"}]}`), seed)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(st.Tasks) != 1 || st.Tasks[0].ID != "t9" {
		t.Fatalf("tasks should come from the record")
	}
	if len(st.Users) != len(seed.Users) {
		t.Fatalf("users should fall back to the seed roster")
	}
	if st.CurrentUser.ID != seed.Users[0].ID {
		t.Fatalf("current user should default to the first roster entry")
	}
	if st.ActivityLog == nil || len(st.ActivityLog) != 0 {
		t.Fatalf("activity log should default to empty, got %v", st.ActivityLog)
	}
	if st.DraftGoals == nil || st.DraftTasks == nil {
		t.Fatalf("draft collections should default to empty slices")
	}
	if st.IsDraftMode {
		t.Fatalf("draft mode should default off")
	}
}

func TestMergePrefersRecordCurrentUser(t *testing.T) {
	seed := snapshot.Seed(time.Now())
	st, err := snapshot.Merge([]byte(`{"tasks":[],"currentUser":{"id":"u2","name":"Mike Ross"}}`), seed)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if st.CurrentUser.ID != "u2" {
		t.Fatalf("expected record current user, got %q", st.CurrentUser.ID)
	}
}

func TestSettings(t *testing.T) {
	store := snapshot.New(newTestDB(t))
	ctx := context.Background()
	if _, err := store.GetSetting(ctx, "theme"); err != snapshot.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.PutSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutSetting(ctx, "theme", "light"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.GetSetting(ctx, "theme")
	if err != nil || got != "light" {
		t.Fatalf("expected light, got %q err=%v", got, err)
	}
}
