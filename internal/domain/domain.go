package domain

import "fmt"

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// TaskStatus is the visible board column of a task.
type TaskStatus string

const (
	StatusNotStarted     TaskStatus = "Not Started"
	StatusWorkingOnIt    TaskStatus = "Working on it"
	StatusReadyForReview TaskStatus = "Ready for Review"
	StatusDone           TaskStatus = "Done"
	StatusStuck          TaskStatus = "Stuck"
)

// ValidStatus reports whether s is one of the known task statuses.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusNotStarted, StatusWorkingOnIt, StatusReadyForReview, StatusDone, StatusStuck:
		return true
	}
	return false
}

// Day is a weekly scheduling bucket. Backlog sorts after every weekday.
type Day string

const (
	DayMon     Day = "Mon"
	DayTue     Day = "Tue"
	DayWed     Day = "Wed"
	DayThu     Day = "Thu"
	DayFri     Day = "Fri"
	DaySat     Day = "Sat"
	DaySun     Day = "Sun"
	DayBacklog Day = "Backlog"
)

var dayOrder = map[Day]int{
	DayMon: 0, DayTue: 1, DayWed: 2, DayThu: 3,
	DayFri: 4, DaySat: 5, DaySun: 6, DayBacklog: 99,
}

// DayIndex returns the fixed sort position of a day bucket. Unknown
// values sort like Backlog.
func DayIndex(d Day) int {
	if idx, ok := dayOrder[d]; ok {
		return idx
	}
	return dayOrder[DayBacklog]
}

// ValidDay reports whether d is a known scheduling bucket.
func ValidDay(d Day) bool {
	_, ok := dayOrder[d]
	return ok
}

// Role is the session role selected at login. It is a product toggle,
// not an authentication role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePerformer Role = "performer"
)

// DeliverableType classifies completion evidence.
type DeliverableType string

const (
	DeliverableLink       DeliverableType = "link"
	DeliverableImage      DeliverableType = "image"
	DeliverableComparison DeliverableType = "comparison"
	DeliverableCSV        DeliverableType = "csv"
	DeliverablePDF        DeliverableType = "pdf"
)

// Deliverable is an evidence artifact attached to a task. Immutable once
// attached through the review submission.
type Deliverable struct {
	ID         string          `json:"id"`
	Type       DeliverableType `json:"type"`
	URL        string          `json:"url,omitempty"`
	Data       string          `json:"data,omitempty"`
	FileName   string          `json:"fileName,omitempty"`
	BeforeData string          `json:"beforeData,omitempty"`
	AfterData  string          `json:"afterData,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// UserMetrics carries lightweight performance figures for a roster card.
type UserMetrics struct {
	Uptime        float64 `json:"uptime"`
	DailyActivity []int   `json:"dailyActivity,omitempty"`
}

type User struct {
	ID          string       `json:"id"`
	CustomID    string       `json:"customId,omitempty"`
	AccessCode  string       `json:"accessCode,omitempty"`
	Name        string       `json:"name"`
	Avatar      string       `json:"avatar,omitempty"`
	Timezone    string       `json:"timezone,omitempty"`
	Role        string       `json:"role,omitempty"` // display label, free text
	Bio         string       `json:"bio,omitempty"`
	StatusEmoji string       `json:"statusEmoji,omitempty"`
	StatusText  string       `json:"statusText,omitempty"`
	IsOnline    bool         `json:"isOnline,omitempty"`
	Metrics     *UserMetrics `json:"metrics,omitempty"`
}

type Task struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Priority          Priority      `json:"priority"`
	Status            TaskStatus    `json:"status"`
	Day               Day           `json:"day"`
	EstimateHours     float64       `json:"estimateHours"`
	AssigneeID        string        `json:"assigneeId"`
	GoalID            string        `json:"goalId,omitempty"`
	MilestoneID       string        `json:"milestoneId,omitempty"`
	Tags              []string      `json:"tags"`
	IsBlocked         bool          `json:"isBlocked,omitempty"`
	BlockerMessage    string        `json:"blockerMessage,omitempty"`
	BlockerSuggestion string        `json:"blockerSuggestion,omitempty"`
	IsDraft           bool          `json:"isDraft,omitempty"`
	IsAccepted        bool          `json:"isAccepted,omitempty"`
	VideoURL          string        `json:"videoUrl,omitempty"`
	DependencyID      string        `json:"dependencyId,omitempty"`
	ScheduledAt       int64         `json:"scheduledAt,omitempty"` // unix ms
	IsScheduled       bool          `json:"isScheduled,omitempty"`
	Breakdown         []string      `json:"breakdown,omitempty"`
	CompletedSteps    []int         `json:"completedSteps,omitempty"`
	AISuggestions     []string      `json:"aiSuggestions,omitempty"`
	Resources         []Deliverable `json:"resources,omitempty"`
	Deliverables      []Deliverable `json:"deliverables,omitempty"`
	CompletionComment string        `json:"completionComment,omitempty"`
	ReviewComment     string        `json:"reviewComment,omitempty"`
}

// HasStep reports whether the breakdown step at index is marked complete.
func (t Task) HasStep(index int) bool {
	for _, s := range t.CompletedSteps {
		if s == index {
			return true
		}
	}
	return false
}

type Milestone struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
	ScheduledAt int64  `json:"scheduledAt,omitempty"`
}

type Goal struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Progress    int         `json:"progress"`
	Milestones  []Milestone `json:"milestones"`
	Color       string      `json:"color"`
}

// DerivedProgress computes goal progress from milestone completion.
// Manual progress is only authoritative when a goal has zero milestones.
func (g Goal) DerivedProgress() int {
	if len(g.Milestones) == 0 {
		return g.Progress
	}
	completed := 0
	for _, m := range g.Milestones {
		if m.IsCompleted {
			completed++
		}
	}
	// round(100 * completed / total)
	return (completed*200 + len(g.Milestones)) / (len(g.Milestones) * 2)
}

// ActivityEvent is one row of the append-only activity feed. Actor name
// and id are denormalized so an entry survives user deletion.
type ActivityEvent struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Action     string `json:"action"`
	TargetName string `json:"targetName"`
	Timestamp  int64  `json:"timestamp"`
}

// AppState is the aggregate root. It is owned exclusively by the store;
// everything else reads it by value and mutates through store operations.
type AppState struct {
	Tasks             []Task          `json:"tasks"`
	Goals             []Goal          `json:"goals"`
	DraftGoals        []Goal          `json:"draftGoals"`
	DraftTasks        []Task          `json:"draftTasks"`
	Users             []User          `json:"users"`
	CurrentUser       User            `json:"currentUser"`
	ActiveFocusTaskID string          `json:"activeFocusTaskId,omitempty"`
	FocusStartTime    int64           `json:"focusStartTime,omitempty"`
	ActivityLog       []ActivityEvent `json:"activityLog"`
	IsDraftMode       bool            `json:"isDraftMode"`
}

// TaskByID returns the task with the given id, if present.
func (s AppState) TaskByID(id string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// GoalByID returns the live goal with the given id, if present.
func (s AppState) GoalByID(id string) (Goal, bool) {
	for _, g := range s.Goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// UserByID returns the roster user with the given id, if present.
func (s AppState) UserByID(id string) (User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// WeekStats aggregates figures for the executive weekly report.
type WeekStats struct {
	CompletedTitles []string `json:"completed_titles"`
	GoalProgress    []string `json:"goal_progress"`
	Blockers        []string `json:"blockers"`
}

// CollectWeekStats gathers completed task titles, goal progress lines and
// open blocker descriptions from the current state.
func CollectWeekStats(s AppState) WeekStats {
	var stats WeekStats
	for _, t := range s.Tasks {
		if t.Status == StatusDone {
			stats.CompletedTitles = append(stats.CompletedTitles, t.Title)
		}
		if t.IsBlocked {
			desc := t.Title
			if t.BlockerMessage != "" {
				desc += ": " + t.BlockerMessage
			}
			stats.Blockers = append(stats.Blockers, desc)
		}
	}
	for _, g := range s.Goals {
		stats.GoalProgress = append(stats.GoalProgress, fmt.Sprintf("%s (%d%% complete)", g.Title, g.DerivedProgress()))
	}
	return stats
}
