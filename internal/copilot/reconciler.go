package copilot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/store"
)

// ProposalStatus tracks one staged creation through human review.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a task the assistant wants to create, held back until a
// human approves it.
type Proposal struct {
	ID     string         `json:"id"`
	Task   domain.Task    `json:"task"`
	Status ProposalStatus `json:"status"`
}

// Turn is the outcome of one converse round-trip: the assistant's text,
// the per-command outcome notes, and any proposals staged this turn.
type Turn struct {
	Text      string     `json:"text"`
	Notes     []string   `json:"notes,omitempty"`
	Proposals []Proposal `json:"proposals,omitempty"`
	Offline   bool       `json:"offline,omitempty"`
}

const offlineReply = "Command link unstable. Retrying..."

const aiTag = "AI-Assigned"

// Reconciler mediates between the assistant and the store. Update and
// delete commands apply immediately; creations are staged as proposals,
// and objectives land in the draft sandbox.
type Reconciler struct {
	store     *store.Store
	assistant Assistant

	mu        sync.Mutex
	history   []ChatTurn
	proposals map[string]*Proposal
}

func NewReconciler(st *store.Store, a Assistant) *Reconciler {
	return &Reconciler{
		store:     st,
		assistant: a,
		proposals: make(map[string]*Proposal),
	}
}

// History returns the conversation so far.
func (r *Reconciler) History() []ChatTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChatTurn, len(r.history))
	copy(out, r.history)
	return out
}

// Proposals returns staged creations, pending first, stable by id.
func (r *Reconciler) Proposals() []Proposal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Proposal, 0, len(r.proposals))
	for _, p := range r.proposals {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == ProposalPending
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Converse sends one user message to the assistant and applies whatever
// commands come back. An unreachable assistant degrades to an offline
// turn with zero mutations rather than an error.
func (r *Reconciler) Converse(ctx context.Context, actor store.Actor, input string) (Turn, error) {
	r.mu.Lock()
	history := make([]ChatTurn, len(r.history))
	copy(history, r.history)
	r.mu.Unlock()

	reply, err := r.assistant.Converse(ctx, r.systemContext(), history, input)
	if err != nil {
		turn := Turn{Text: offlineReply, Offline: true}
		r.record(input, turn)
		return turn, nil
	}

	turn := Turn{Text: reply.Text}
	for _, call := range reply.ToolCalls {
		cmd, perr := ParseToolCall(call)
		if perr != nil {
			turn.Notes = append(turn.Notes, fmt.Sprintf("Unable to execute %s: %v", call.Function.Name, perr))
			continue
		}
		note, proposal, aerr := r.applyCommand(ctx, actor, cmd)
		if aerr != nil {
			turn.Notes = append(turn.Notes, fmt.Sprintf("Unable to execute %s: %v", call.Function.Name, aerr))
			continue
		}
		if note != "" {
			turn.Notes = append(turn.Notes, note)
		}
		if proposal != nil {
			turn.Proposals = append(turn.Proposals, *proposal)
		}
	}
	r.record(input, turn)
	return turn, nil
}

func (r *Reconciler) record(input string, turn Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input != "" {
		r.history = append(r.history, ChatTurn{Role: "user", Text: input})
	}
	r.history = append(r.history, ChatTurn{Role: "model", Text: turn.Text})
	for _, note := range turn.Notes {
		r.history = append(r.history, ChatTurn{Role: "model", Text: note})
	}
}

func (r *Reconciler) applyCommand(ctx context.Context, actor store.Actor, cmd Command) (string, *Proposal, error) {
	switch c := cmd.(type) {
	case CreateDirective:
		return r.stageCreate(c)
	case UpdateDirective:
		return r.applyUpdate(ctx, actor, c)
	case DeleteDirective:
		return r.applyDelete(ctx, actor, c)
	case CreateObjective:
		return r.applyObjective(ctx, actor, c)
	default:
		return "", nil, fmt.Errorf("unhandled command %T", cmd)
	}
}

// stageCreate holds the new task as a pending proposal. The status is
// always forced to Not Started and the assistant's authorship is tagged.
func (r *Reconciler) stageCreate(c CreateDirective) (string, *Proposal, error) {
	estimate := 1.0
	if c.EstimateHours != nil {
		estimate = *c.EstimateHours
	}
	day := domain.Day(c.Day)
	if !domain.ValidDay(day) {
		day = domain.DayBacklog
	}
	priority := domain.Priority(c.Priority)
	if priority != domain.PriorityLow && priority != domain.PriorityMedium && priority != domain.PriorityHigh {
		priority = domain.PriorityMedium
	}
	task := domain.Task{
		Title:         c.Title,
		Description:   c.Description,
		Priority:      priority,
		Status:        domain.StatusNotStarted,
		Day:           day,
		EstimateHours: estimate,
		AssigneeID:    c.AssigneeID,
		GoalID:        c.GoalID,
		Tags:          []string{aiTag},
	}
	p := &Proposal{ID: "p-" + uuid.NewString(), Task: task, Status: ProposalPending}
	r.mu.Lock()
	r.proposals[p.ID] = p
	r.mu.Unlock()
	return fmt.Sprintf("Directive @%s staged for approval.", c.Title), p, nil
}

// ApproveProposal commits a pending proposal into the board.
func (r *Reconciler) ApproveProposal(ctx context.Context, actor store.Actor, id string) error {
	r.mu.Lock()
	p, ok := r.proposals[id]
	if !ok || p.Status != ProposalPending {
		r.mu.Unlock()
		return fmt.Errorf("no pending proposal %q", id)
	}
	task := p.Task
	r.mu.Unlock()

	if err := r.store.AddTask(ctx, actor, task); err != nil {
		return err
	}
	r.mu.Lock()
	p.Status = ProposalApproved
	r.mu.Unlock()
	return nil
}

// RejectProposal discards a pending proposal without touching the board.
func (r *Reconciler) RejectProposal(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	if !ok || p.Status != ProposalPending {
		return fmt.Errorf("no pending proposal %q", id)
	}
	p.Status = ProposalRejected
	return nil
}

func (r *Reconciler) applyUpdate(ctx context.Context, actor store.Actor, c UpdateDirective) (string, *Proposal, error) {
	state := r.store.State()
	task, ok := state.TaskByID(c.TaskID)
	if !ok {
		return "", nil, fmt.Errorf("directive %q not found", c.TaskID)
	}
	if c.Title != nil {
		task.Title = *c.Title
	}
	if c.Description != nil {
		task.Description = *c.Description
	}
	if c.Priority != nil {
		task.Priority = domain.Priority(*c.Priority)
	}
	if c.Status != nil && domain.ValidStatus(domain.TaskStatus(*c.Status)) {
		task.Status = domain.TaskStatus(*c.Status)
	}
	if c.Day != nil && domain.ValidDay(domain.Day(*c.Day)) {
		task.Day = domain.Day(*c.Day)
	}
	if c.AssigneeID != nil {
		task.AssigneeID = *c.AssigneeID
	}
	if c.IsBlocked != nil {
		task.IsBlocked = *c.IsBlocked
	}
	if c.BlockerMessage != nil {
		task.BlockerMessage = *c.BlockerMessage
	}
	if c.EstimateHours != nil {
		task.EstimateHours = *c.EstimateHours
	}
	if err := r.store.UpdateTask(ctx, actor, task); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Directive @%s updated successfully.", task.Title), nil, nil
}

func (r *Reconciler) applyDelete(ctx context.Context, actor store.Actor, c DeleteDirective) (string, *Proposal, error) {
	state := r.store.State()
	task, ok := state.TaskByID(c.TaskID)
	if !ok {
		return "", nil, fmt.Errorf("directive %q not found", c.TaskID)
	}
	title := c.Title
	if title == "" {
		title = task.Title
	}
	if err := r.store.DeleteTask(ctx, actor, c.TaskID); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Tactical directive @%s has been rescinded.", title), nil, nil
}

// applyObjective lands the new goal in the draft sandbox, never straight
// into the live list.
func (r *Reconciler) applyObjective(ctx context.Context, actor store.Actor, c CreateObjective) (string, *Proposal, error) {
	milestones := make([]domain.Milestone, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		milestones = append(milestones, domain.Milestone{
			ID:    "m-" + uuid.NewString(),
			Title: m.Title,
		})
	}
	goal := domain.Goal{
		Title:       c.Title,
		Description: c.Description,
		Progress:    0,
		Milestones:  milestones,
		Color:       "bg-indigo-100 text-indigo-800",
	}
	if err := r.store.AddDraftGoal(ctx, actor, goal); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Strategic objective draft %q created in Sandbox.", c.Title), nil, nil
}

// AnalyzeTask asks the assistant for an execution breakdown and stores
// it on the task.
func (r *Reconciler) AnalyzeTask(ctx context.Context, actor store.Actor, taskID string) (Breakdown, error) {
	state := r.store.State()
	task, ok := state.TaskByID(taskID)
	if !ok {
		return Breakdown{}, fmt.Errorf("directive %q not found", taskID)
	}
	analysis, err := r.assistant.AnalyzeTask(ctx, task.Title, task.Description)
	if err != nil {
		return Breakdown{}, err
	}
	if err := r.store.SetBreakdown(ctx, actor, taskID, analysis.Steps, analysis.Suggestions); err != nil {
		return Breakdown{}, err
	}
	return analysis, nil
}

// SummarizeWeek produces the weekly executive summary from live state.
func (r *Reconciler) SummarizeWeek(ctx context.Context) (string, error) {
	state := r.store.State()
	return r.assistant.SummarizeWeek(ctx, domain.CollectWeekStats(state))
}

// Handle collapses a display name to the mention form used in prompts.
func Handle(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// systemContext renders the roster, board, objectives, and current
// friction into the grounding block the adviser prompt needs.
func (r *Reconciler) systemContext() string {
	state := r.store.State()
	var b strings.Builder

	b.WriteString("CURRENT ROSTER:\n")
	for _, u := range state.Users {
		fmt.Fprintf(&b, "- @%s (ID: %s)\n", Handle(u.Name), u.ID)
	}

	b.WriteString("\nACTIVE DIRECTIVES:\n")
	for _, t := range state.Tasks {
		fmt.Fprintf(&b, "- @%s (ID: %s, Status: %s, Day: %s)\n", t.Title, t.ID, t.Status, t.Day)
	}

	b.WriteString("\nSTRATEGIC OBJECTIVES:\n")
	for _, g := range state.Goals {
		fmt.Fprintf(&b, "- %s (ID: %s, %d%% complete)\n", g.Title, g.ID, g.DerivedProgress())
	}

	warnings := domain.DetectFriction(state.Tasks)
	if len(warnings) > 0 {
		b.WriteString("\nDETECTED FRICTION:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w.Message)
		}
	}
	return b.String()
}
