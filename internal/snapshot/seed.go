package snapshot

import (
	"time"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

// timestampForDay resolves a weekday to midnight of that day in the week
// containing now, in unix milliseconds.
func timestampForDay(now time.Time, day domain.Day) int64 {
	week := []domain.Day{domain.DaySun, domain.DayMon, domain.DayTue, domain.DayWed, domain.DayThu, domain.DayFri, domain.DaySat}
	target := -1
	for i, d := range week {
		if d == day {
			target = i
			break
		}
	}
	if target == -1 {
		return 0
	}
	diff := target - int(now.Weekday())
	t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, diff)
	return t.UnixMilli()
}

// Seed returns the fixed starting state used when no snapshot exists or
// a stored record is rejected.
func Seed(now time.Time) domain.AppState {
	users := []domain.User{
		{
			ID:       "u1",
			Name:     "Sarah Chen",
			Avatar:   "https://picsum.photos/seed/sarah/100/100",
			Timezone: "EST",
			Role:     "Lead Architect",
			Bio:      "Overseeing structural integrity and design standards.",
		},
		{
			ID:       "u2",
			Name:     "Mike Ross",
			Avatar:   "https://picsum.photos/seed/mike/100/100",
			Timezone: "PST",
			Role:     "Execution Lead",
			Bio:      "Dedicated to high-velocity project deployment.",
		},
		{
			ID:       "u3",
			Name:     "Elena Rodriguez",
			Avatar:   "https://picsum.photos/seed/elena/100/100",
			Timezone: "CET",
			Role:     "Audit Director",
			Bio:      "Ensuring all directives meet quality benchmarks.",
		},
	}

	goals := []domain.Goal{
		{
			ID:          "g1",
			Title:       "Objective: System Overhaul",
			Description: "Complete audit and modernization of core infrastructure.",
			Progress:    65,
			Color:       "bg-indigo-100 text-indigo-800",
			Milestones: []domain.Milestone{
				{ID: "m1", Title: "Validate Core Schematics", IsCompleted: true},
				{ID: "m2", Title: "Approve Resource Allocation", IsCompleted: true},
				{ID: "m3", Title: "Final System Audit", IsCompleted: false},
			},
		},
		{
			ID:          "g2",
			Title:       "Objective: Market Dominance",
			Description: "Strategic expansion into high-growth sectors.",
			Progress:    30,
			Color:       "bg-emerald-100 text-emerald-800",
			Milestones: []domain.Milestone{
				{ID: "m4", Title: "Establish Recon Units", IsCompleted: true},
				{ID: "m5", Title: "Deploy Outreach Directives", IsCompleted: false},
			},
		},
	}

	tasks := []domain.Task{
		{
			ID:            "t1",
			Title:         "Draft Strategic Briefing",
			Priority:      domain.PriorityHigh,
			Status:        domain.StatusNotStarted,
			Day:           domain.DayMon,
			EstimateHours: 2,
			AssigneeID:    "u1",
			GoalID:        "g1",
			Tags:          []string{"Planning", "High-Command"},
			ScheduledAt:   timestampForDay(now, domain.DayMon),
			IsScheduled:   true,
			IsAccepted:    true,
		},
		{
			ID:            "t2",
			Title:         "Verify Tactical Alignment",
			Priority:      domain.PriorityMedium,
			Status:        domain.StatusWorkingOnIt,
			Day:           domain.DayTue,
			EstimateHours: 1.5,
			AssigneeID:    "u1",
			GoalID:        "g1",
			Tags:          []string{"Review"},
			ScheduledAt:   timestampForDay(now, domain.DayTue),
			IsScheduled:   true,
			DependencyID:  "t1",
			IsAccepted:    true,
		},
		{
			ID:            "t3",
			Title:         "Command Council Debrief",
			Priority:      domain.PriorityHigh,
			Status:        domain.StatusDone,
			Day:           domain.DayTue,
			EstimateHours: 1,
			AssigneeID:    "u1",
			Tags:          []string{"Meeting"},
			ScheduledAt:   timestampForDay(now, domain.DayTue),
			IsScheduled:   true,
			IsAccepted:    true,
		},
		{
			ID:            "t4",
			Title:         "Deploy Technical Mandate",
			Priority:      domain.PriorityMedium,
			Status:        domain.StatusNotStarted,
			Day:           domain.DayWed,
			EstimateHours: 3,
			AssigneeID:    "u2",
			GoalID:        "g1",
			Tags:          []string{"Dev", "Mandate"},
			ScheduledAt:   timestampForDay(now, domain.DayWed),
			IsScheduled:   true,
			DependencyID:  "t2",
			IsAccepted:    true,
		},
	}

	return domain.AppState{
		Tasks:       tasks,
		Goals:       goals,
		DraftGoals:  []domain.Goal{},
		DraftTasks:  []domain.Task{},
		Users:       users,
		CurrentUser: users[0],
		ActivityLog: []domain.ActivityEvent{},
	}
}
