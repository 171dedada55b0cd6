package store

import "github.com/sjournalfx-cmyk/teamhub/internal/domain"

// Structural copy helpers. Mutations never touch the previous state in
// place: every transition works on a clone, so readers holding an older
// State() result never observe a partial write.

func cloneState(s domain.AppState) domain.AppState {
	out := s
	out.Tasks = cloneTasks(s.Tasks)
	out.Goals = cloneGoals(s.Goals)
	out.DraftGoals = cloneGoals(s.DraftGoals)
	out.DraftTasks = cloneTasks(s.DraftTasks)
	out.Users = cloneUsers(s.Users)
	out.CurrentUser = cloneUser(s.CurrentUser)
	out.ActivityLog = append([]domain.ActivityEvent(nil), s.ActivityLog...)
	if s.ActivityLog == nil {
		out.ActivityLog = []domain.ActivityEvent{}
	}
	return out
}

func cloneTasks(in []domain.Task) []domain.Task {
	out := make([]domain.Task, len(in))
	for i, t := range in {
		out[i] = cloneTask(t)
	}
	return out
}

func cloneTask(t domain.Task) domain.Task {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.Breakdown = append([]string(nil), t.Breakdown...)
	out.CompletedSteps = append([]int(nil), t.CompletedSteps...)
	out.AISuggestions = append([]string(nil), t.AISuggestions...)
	out.Resources = cloneDeliverables(t.Resources)
	out.Deliverables = cloneDeliverables(t.Deliverables)
	return out
}

func cloneDeliverables(in []domain.Deliverable) []domain.Deliverable {
	if in == nil {
		return nil
	}
	return append([]domain.Deliverable(nil), in...)
}

func cloneGoals(in []domain.Goal) []domain.Goal {
	out := make([]domain.Goal, len(in))
	for i, g := range in {
		out[i] = cloneGoal(g)
	}
	return out
}

func cloneGoal(g domain.Goal) domain.Goal {
	out := g
	out.Milestones = append([]domain.Milestone(nil), g.Milestones...)
	return out
}

func cloneUsers(in []domain.User) []domain.User {
	out := make([]domain.User, len(in))
	for i, u := range in {
		out[i] = cloneUser(u)
	}
	return out
}

func cloneUser(u domain.User) domain.User {
	out := u
	if u.Metrics != nil {
		m := *u.Metrics
		m.DailyActivity = append([]int(nil), u.Metrics.DailyActivity...)
		out.Metrics = &m
	}
	return out
}
