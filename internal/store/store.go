package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/snapshot"
)

// Signals returned by mutations. Neither indicates a failure: state is
// untouched and the caller decides what flow to open next.
var (
	// ErrEvidenceRequired means a performer tried to self-mark a task
	// Done; completion must go through the evidence submission flow.
	ErrEvidenceRequired = errors.New("completion evidence required")
	// ErrNotAccepted means a status change was attempted on a directive
	// the performer has not acknowledged yet.
	ErrNotAccepted = errors.New("directive not accepted")
)

const activityCap = 50

// Actor identifies who is performing a mutation and under which session
// role. The role drives the review-workflow asymmetry.
type Actor struct {
	UserID string
	Name   string
	Role   domain.Role
}

// Store owns the single AppState value. Every mutation produces a new
// state by structural copy, optionally appends one activity event, and
// writes the whole snapshot through synchronously. Lookups that miss are
// silent no-ops.
type Store struct {
	mu    sync.Mutex
	state domain.AppState
	snap  snapshot.Store

	Now   func() time.Time
	NewID func() string
}

// New builds a store around an already-loaded state.
func New(snap snapshot.Store, state domain.AppState) *Store {
	return &Store{
		state: state,
		snap:  snap,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Open loads the persisted snapshot (falling back to the seed) and
// returns a store over it.
func Open(ctx context.Context, snap snapshot.Store) *Store {
	seed := snapshot.Seed(time.Now())
	return New(snap, snap.Load(ctx, seed))
}

func (s *Store) now() int64 {
	if s.Now != nil {
		return s.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

func (s *Store) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// State returns a deep copy of the current state.
func (s *Store) State() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// CurrentActor derives an actor from the denormalized current user and a
// session role.
func (s *Store) CurrentActor(role domain.Role) Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Actor{UserID: s.state.CurrentUser.ID, Name: s.state.CurrentUser.Name, Role: role}
}

// apply runs one transition against a structural copy of the state. When
// fn reports false the transition is abandoned and nothing changes. On
// success the copy becomes current and is written through; the in-memory
// transition holds even if the write fails.
func (s *Store) apply(ctx context.Context, fn func(st *domain.AppState) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneState(s.state)
	if !fn(&next) {
		return nil
	}
	s.state = next
	return s.snap.Save(ctx, next)
}

func (s *Store) logActivity(st *domain.AppState, actor Actor, action, target string) {
	ev := domain.ActivityEvent{
		ID:         "ev-" + s.newID(),
		UserID:     actor.UserID,
		UserName:   actor.Name,
		Action:     action,
		TargetName: target,
		Timestamp:  s.now(),
	}
	st.ActivityLog = append(st.ActivityLog, ev)
	if len(st.ActivityLog) > activityCap {
		st.ActivityLog = st.ActivityLog[len(st.ActivityLog)-activityCap:]
	}
}

// RecordSession logs the login/logout narrative events.
func (s *Store) RecordSession(ctx context.Context, actor Actor, connected bool, target string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		action := "established connection to"
		if !connected {
			action = "terminated session from"
		}
		s.logActivity(st, actor, action, target)
		return true
	})
}

func taskIndex(st *domain.AppState, id string) int {
	for i := range st.Tasks {
		if st.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// AddTask appends a task, stamping its draft flag from the global draft
// mode.
func (s *Store) AddTask(ctx context.Context, actor Actor, task domain.Task) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		if task.ID == "" {
			task.ID = "t-" + s.newID()
		}
		if task.Tags == nil {
			task.Tags = []string{}
		}
		task.IsDraft = st.IsDraftMode
		st.Tasks = append(st.Tasks, task)
		s.logActivity(st, actor, "initialized mission", task.Title)
		return true
	})
}

// UpdateTask replaces a task record wholesale by id.
func (s *Store) UpdateTask(ctx context.Context, actor Actor, task domain.Task) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, task.ID)
		if i < 0 {
			return false
		}
		st.Tasks[i] = task
		return true
	})
}

// DeleteTask removes a task. Activity history referencing it is kept.
func (s *Store) DeleteTask(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		title := st.Tasks[i].Title
		st.Tasks = append(st.Tasks[:i], st.Tasks[i+1:]...)
		s.logActivity(st, actor, "aborted mission", title)
		return true
	})
}

// MoveTask reschedules a task to another day bucket.
func (s *Store) MoveTask(ctx context.Context, actor Actor, id string, day domain.Day) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].Day = day
		return true
	})
}

// UpdateTaskStatus applies a status transition. The review rule lives
// here, not at the caller: a performer setting Done gets
// ErrEvidenceRequired and no state change, regardless of whether the
// request came from the UI, the CLI, or an AI tool call. A performer
// acting on an unacknowledged directive gets ErrNotAccepted. Admin
// actors may set any status directly, including Done.
func (s *Store) UpdateTaskStatus(ctx context.Context, actor Actor, id string, status domain.TaskStatus) error {
	var signal error
	err := s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		if actor.Role == domain.RolePerformer {
			if !st.Tasks[i].IsAccepted {
				signal = ErrNotAccepted
				return false
			}
			if status == domain.StatusDone {
				signal = ErrEvidenceRequired
				return false
			}
		}
		st.Tasks[i].Status = status
		s.logActivity(st, actor, "set status to "+string(status)+" for", st.Tasks[i].Title)
		return true
	})
	if signal != nil {
		return signal
	}
	return err
}

// AcceptTask marks a dispatched directive as acknowledged.
func (s *Store) AcceptTask(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].IsAccepted = true
		s.logActivity(st, actor, "accepted directive", st.Tasks[i].Title)
		return true
	})
}

// SubmitForReview moves a task to Ready for Review with the attached
// evidence. Deliverables are immutable once attached here.
func (s *Store) SubmitForReview(ctx context.Context, actor Actor, id string, deliverables []domain.Deliverable, comment string) error {
	var signal error
	err := s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		if actor.Role == domain.RolePerformer && !st.Tasks[i].IsAccepted {
			signal = ErrNotAccepted
			return false
		}
		st.Tasks[i].Status = domain.StatusReadyForReview
		st.Tasks[i].Deliverables = cloneDeliverables(deliverables)
		st.Tasks[i].CompletionComment = comment
		s.logActivity(st, actor, "submitted deliverables for", st.Tasks[i].Title)
		return true
	})
	if signal != nil {
		return signal
	}
	return err
}

// ApproveTask closes a reviewed task.
func (s *Store) ApproveTask(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].Status = domain.StatusDone
		s.logActivity(st, actor, "verified and closed", st.Tasks[i].Title)
		return true
	})
}

// RequestRevision sends a reviewed task back to work with a comment.
func (s *Store) RequestRevision(ctx context.Context, actor Actor, id, comment string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].Status = domain.StatusWorkingOnIt
		st.Tasks[i].ReviewComment = comment
		s.logActivity(st, actor, "requested revision for", st.Tasks[i].Title)
		return true
	})
}

// ToggleTaskBlocker flips the blocked flag as a paired transition:
// setting it forces Stuck, clearing it forces Working on it.
func (s *Store) ToggleTaskBlocker(ctx context.Context, actor Actor, id, message, suggestion string) error {
	var signal error
	err := s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		if actor.Role == domain.RolePerformer && !st.Tasks[i].IsAccepted {
			signal = ErrNotAccepted
			return false
		}
		t := &st.Tasks[i]
		if !t.IsBlocked {
			s.logActivity(st, actor, "reported friction for", t.Title)
			t.Status = domain.StatusStuck
		} else {
			s.logActivity(st, actor, "resolved friction for", t.Title)
			t.Status = domain.StatusWorkingOnIt
		}
		t.IsBlocked = !t.IsBlocked
		t.BlockerMessage = message
		t.BlockerSuggestion = suggestion
		return true
	})
	if signal != nil {
		return signal
	}
	return err
}

// ToggleFocus starts a focus session on a task, or stops the current one
// when the same task is given. Starting a session while another is
// active switches atomically; stopping never logs.
func (s *Store) ToggleFocus(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		if st.ActiveFocusTaskID == id {
			st.ActiveFocusTaskID = ""
			st.FocusStartTime = 0
			return true
		}
		t, ok := st.TaskByID(id)
		if !ok {
			return false
		}
		s.logActivity(st, actor, "entered deep focus on", t.Title)
		st.ActiveFocusTaskID = id
		st.FocusStartTime = s.now()
		return true
	})
}

// SetBreakdown stores an AI execution breakdown on a task and resets the
// completed-step set.
func (s *Store) SetBreakdown(ctx context.Context, actor Actor, id string, steps, suggestions []string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		st.Tasks[i].Breakdown = append([]string(nil), steps...)
		st.Tasks[i].AISuggestions = append([]string(nil), suggestions...)
		st.Tasks[i].CompletedSteps = []int{}
		s.logActivity(st, actor, "requested tactical analysis for", st.Tasks[i].Title)
		return true
	})
}

// ToggleBreakdownStep flips membership of one step index in the task's
// completed set. Not logged.
func (s *Store) ToggleBreakdownStep(ctx context.Context, actor Actor, id string, index int) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := taskIndex(st, id)
		if i < 0 {
			return false
		}
		t := &st.Tasks[i]
		for j, step := range t.CompletedSteps {
			if step == index {
				t.CompletedSteps = append(t.CompletedSteps[:j], t.CompletedSteps[j+1:]...)
				return true
			}
		}
		t.CompletedSteps = append(t.CompletedSteps, index)
		return true
	})
}

// DispatchWeek promotes every draft task to live, pending acceptance.
// One aggregate event is logged, not one per task.
func (s *Store) DispatchWeek(ctx context.Context, actor Actor) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		for i := range st.Tasks {
			if st.Tasks[i].IsDraft {
				st.Tasks[i].IsDraft = false
				st.Tasks[i].IsAccepted = false
			}
		}
		s.logActivity(st, actor, "dispatched weekly instructions", "Fleet")
		return true
	})
}

// SetDraftMode toggles whether newly added tasks are staged as drafts.
func (s *Store) SetDraftMode(ctx context.Context, actor Actor, enabled bool) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		st.IsDraftMode = enabled
		action := "deactivated draft mode"
		if enabled {
			action = "activated draft mode"
		}
		s.logActivity(st, actor, action, "Workspace")
		return true
	})
}
