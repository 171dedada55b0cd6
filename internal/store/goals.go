package store

import (
	"context"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

func goalIndex(st *domain.AppState, id string) int {
	for i := range st.Goals {
		if st.Goals[i].ID == id {
			return i
		}
	}
	return -1
}

func draftGoalIndex(st *domain.AppState, id string) int {
	for i := range st.DraftGoals {
		if st.DraftGoals[i].ID == id {
			return i
		}
	}
	return -1
}

// AddGoal appends a live goal, normalizing its derived progress.
func (s *Store) AddGoal(ctx context.Context, actor Actor, goal domain.Goal) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		if goal.ID == "" {
			goal.ID = "g-" + s.newID()
		}
		goal.Progress = goal.DerivedProgress()
		st.Goals = append(st.Goals, goal)
		s.logActivity(st, actor, "defined strategic goal", goal.Title)
		return true
	})
}

// UpdateGoal replaces a goal by id, re-deriving progress when milestones
// exist.
func (s *Store) UpdateGoal(ctx context.Context, actor Actor, goal domain.Goal) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := goalIndex(st, goal.ID)
		if i < 0 {
			return false
		}
		goal.Progress = goal.DerivedProgress()
		st.Goals[i] = goal
		return true
	})
}

func (s *Store) DeleteGoal(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := goalIndex(st, id)
		if i < 0 {
			return false
		}
		st.Goals = append(st.Goals[:i], st.Goals[i+1:]...)
		return true
	})
}

// ToggleMilestone flips one milestone's completion flag and re-derives
// the parent goal's progress.
func (s *Store) ToggleMilestone(ctx context.Context, actor Actor, goalID, milestoneID string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := goalIndex(st, goalID)
		if i < 0 {
			return false
		}
		g := &st.Goals[i]
		found := false
		for j := range g.Milestones {
			if g.Milestones[j].ID == milestoneID {
				g.Milestones[j].IsCompleted = !g.Milestones[j].IsCompleted
				found = true
				break
			}
		}
		if !found {
			return false
		}
		g.Progress = g.DerivedProgress()
		return true
	})
}

// AddDraftGoal stages a goal without making it live. Not logged.
func (s *Store) AddDraftGoal(ctx context.Context, actor Actor, goal domain.Goal) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		if goal.ID == "" {
			goal.ID = "draft-" + s.newID()
		}
		st.DraftGoals = append(st.DraftGoals, goal)
		return true
	})
}

// PromoteDraftGoal copies a staged goal into the live list and removes
// it from staging. The add itself produces the activity entry.
func (s *Store) PromoteDraftGoal(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := draftGoalIndex(st, id)
		if i < 0 {
			return false
		}
		goal := cloneGoal(st.DraftGoals[i])
		goal.Progress = goal.DerivedProgress()
		st.Goals = append(st.Goals, goal)
		st.DraftGoals = append(st.DraftGoals[:i], st.DraftGoals[i+1:]...)
		s.logActivity(st, actor, "defined strategic goal", goal.Title)
		return true
	})
}

// RemoveDraftGoal discards a staged goal.
func (s *Store) RemoveDraftGoal(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := draftGoalIndex(st, id)
		if i < 0 {
			return false
		}
		st.DraftGoals = append(st.DraftGoals[:i], st.DraftGoals[i+1:]...)
		return true
	})
}
