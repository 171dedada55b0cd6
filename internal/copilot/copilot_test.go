package copilot_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sjournalfx-cmyk/teamhub/internal/copilot"
	"github.com/sjournalfx-cmyk/teamhub/internal/db"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/migrate"
	"github.com/sjournalfx-cmyk/teamhub/internal/snapshot"
	"github.com/sjournalfx-cmyk/teamhub/internal/store"
)

var admin = store.Actor{UserID: "u1", Name: "Sarah Chen", Role: domain.RoleAdmin}

// fakeAssistant replays a scripted reply and records the context it saw.
type fakeAssistant struct {
	reply      copilot.Reply
	err        error
	lastSystem string
}

func (f *fakeAssistant) Converse(_ context.Context, systemContext string, _ []copilot.ChatTurn, _ string) (copilot.Reply, error) {
	f.lastSystem = systemContext
	return f.reply, f.err
}

func (f *fakeAssistant) AnalyzeTask(context.Context, string, string) (copilot.Breakdown, error) {
	if f.err != nil {
		return copilot.Breakdown{}, f.err
	}
	return copilot.Breakdown{
		Steps:       []string{"scope", "build", "verify"},
		Suggestions: []string{"timebox the spike"},
	}, nil
}

func (f *fakeAssistant) SummarizeWeek(context.Context, domain.WeekStats) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Strong week.", nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(snapshot.New(conn), snapshot.Seed(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)))
	n := 0
	st.NewID = func() string {
		n++
		return fmt.Sprintf("fixed-%d", n)
	}
	return st
}

func toolCall(name, args string) copilot.ToolCall {
	return copilot.ToolCall{
		ID:   "call-1",
		Type: "function",
		Function: copilot.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestParseToolCallRejectsUnknownAndMalformed(t *testing.T) {
	if _, err := copilot.ParseToolCall(toolCall("launch_missiles", "{}")); err == nil {
		t.Fatalf("unknown tool must be rejected")
	}
	if _, err := copilot.ParseToolCall(toolCall("create_directive", "{nope")); err == nil {
		t.Fatalf("malformed arguments must be rejected")
	}
	if _, err := copilot.ParseToolCall(toolCall("create_directive", `{"day":"Mon"}`)); err == nil {
		t.Fatalf("missing title must be rejected")
	}
	if _, err := copilot.ParseToolCall(toolCall("update_directive", `{"title":"x"}`)); err == nil {
		t.Fatalf("missing taskId must be rejected")
	}
	cmd, err := copilot.ParseToolCall(toolCall("create_directive", `{"title":"Ship it","priority":"High","day":"Tue","assigneeId":"u2"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	create, ok := cmd.(copilot.CreateDirective)
	if !ok || create.Title != "Ship it" || create.Day != "Tue" {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestConverseStagesCreateAsProposal(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAssistant{reply: copilot.Reply{
		Text: "Issuing directive.",
		ToolCalls: []copilot.ToolCall{
			toolCall("create_directive", `{"title":"Harden backups","priority":"High","day":"Wed","assigneeId":"u2","description":"nightly offsite"}`),
		},
	}}
	rec := copilot.NewReconciler(st, fake)

	tasksBefore := len(st.State().Tasks)
	turn, err := rec.Converse(context.Background(), admin, "we need backup hardening")
	if err != nil {
		t.Fatalf("converse: %v", err)
	}
	if len(st.State().Tasks) != tasksBefore {
		t.Fatalf("creation must stage, never insert directly")
	}
	if len(turn.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(turn.Proposals))
	}
	p := turn.Proposals[0]
	if p.Status != copilot.ProposalPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if p.Task.Status != domain.StatusNotStarted {
		t.Fatalf("proposal status must be forced to Not Started, got %s", p.Task.Status)
	}
	if len(p.Task.Tags) != 1 || p.Task.Tags[0] != "AI-Assigned" {
		t.Fatalf("proposal must carry the AI tag, got %v", p.Task.Tags)
	}
	if p.Task.EstimateHours != 1 {
		t.Fatalf("estimate should default to 1, got %v", p.Task.EstimateHours)
	}

	if err := rec.ApproveProposal(context.Background(), admin, p.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(st.State().Tasks) != tasksBefore+1 {
		t.Fatalf("approval must insert the task")
	}
	// approving twice must fail
	if err := rec.ApproveProposal(context.Background(), admin, p.ID); err == nil {
		t.Fatalf("expected error approving a non-pending proposal")
	}
}

func TestRejectProposalDiscardsWithoutMutation(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAssistant{reply: copilot.Reply{
		Text:      "Two directives staged.",
		ToolCalls: []copilot.ToolCall{
			toolCall("create_directive", `{"title":"One","priority":"Low","day":"Mon","assigneeId":"u1"}`),
			toolCall("create_directive", `{"title":"Two","priority":"Low","day":"Mon","assigneeId":"u1"}`),
		},
	}}
	rec := copilot.NewReconciler(st, fake)
	turn, err := rec.Converse(context.Background(), admin, "stage two")
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.Proposals) != 2 {
		t.Fatalf("expected 2 independent proposals, got %d", len(turn.Proposals))
	}
	tasksBefore := len(st.State().Tasks)
	if err := rec.RejectProposal(turn.Proposals[0].ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := rec.ApproveProposal(context.Background(), admin, turn.Proposals[1].ID); err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if len(st.State().Tasks) != tasksBefore+1 {
		t.Fatalf("only the approved proposal may land")
	}
	if err := rec.RejectProposal(turn.Proposals[0].ID); err == nil {
		t.Fatalf("rejecting twice should fail")
	}
}

func TestConverseAppliesPartialUpdate(t *testing.T) {
	st := newTestStore(t)
	before, _ := st.State().TaskByID("t1")
	fake := &fakeAssistant{reply: copilot.Reply{
		Text: "Updating.",
		ToolCalls: []copilot.ToolCall{
			toolCall("update_directive", `{"taskId":"t1","priority":"High","day":"Fri"}`),
		},
	}}
	rec := copilot.NewReconciler(st, fake)
	turn, err := rec.Converse(context.Background(), admin, "bump t1")
	if err != nil {
		t.Fatal(err)
	}
	after, _ := st.State().TaskByID("t1")
	if after.Priority != domain.PriorityHigh || after.Day != domain.DayFri {
		t.Fatalf("supplied fields not applied: %+v", after)
	}
	if after.Title != before.Title || after.Status != before.Status || after.AssigneeID != before.AssigneeID {
		t.Fatalf("omitted fields must be preserved: %+v", after)
	}
	want := fmt.Sprintf("Directive @%s updated successfully.", after.Title)
	if len(turn.Notes) != 1 || turn.Notes[0] != want {
		t.Fatalf("unexpected notes %v", turn.Notes)
	}
}

func TestConverseDeleteAndObjective(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAssistant{reply: copilot.Reply{
		Text: "Executing.",
		ToolCalls: []copilot.ToolCall{
			toolCall("delete_directive", `{"taskId":"t4","title":"ignored"}`),
			toolCall("create_strategic_objective", `{"title":"Zero downtime","description":"resilience push","milestones":[{"title":"chaos drill"},{"title":"failover"}]}`),
		},
	}}
	rec := copilot.NewReconciler(st, fake)
	turn, err := rec.Converse(context.Background(), admin, "clean up and plan")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.State().TaskByID("t4"); ok {
		t.Fatalf("t4 should be deleted")
	}
	state := st.State()
	if len(state.DraftGoals) != 1 {
		t.Fatalf("objective must land in the sandbox, got %d drafts", len(state.DraftGoals))
	}
	draft := state.DraftGoals[0]
	if draft.Progress != 0 || len(draft.Milestones) != 2 || draft.Milestones[0].IsCompleted {
		t.Fatalf("unexpected draft goal %+v", draft)
	}
	if draft.Color != "bg-indigo-100 text-indigo-800" {
		t.Fatalf("unexpected color %q", draft.Color)
	}
	wantObjective := `Strategic objective draft "Zero downtime" created in Sandbox.`
	found := false
	for _, note := range turn.Notes {
		if note == wantObjective {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing objective note in %v", turn.Notes)
	}
}

func TestConverseDegradesOffline(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAssistant{err: errors.New("dial tcp: connection refused")}
	rec := copilot.NewReconciler(st, fake)
	stateBefore := st.State()

	turn, err := rec.Converse(context.Background(), admin, "anything")
	if err != nil {
		t.Fatalf("offline must not surface an error, got %v", err)
	}
	if !turn.Offline || turn.Text != "Command link unstable. Retrying..." {
		t.Fatalf("unexpected offline turn %+v", turn)
	}
	stateAfter := st.State()
	if len(stateAfter.Tasks) != len(stateBefore.Tasks) || len(stateAfter.ActivityLog) != len(stateBefore.ActivityLog) {
		t.Fatalf("offline turn must not mutate state")
	}
	history := rec.History()
	if len(history) != 2 || history[1].Role != "model" {
		t.Fatalf("offline turn still joins the history: %+v", history)
	}
}

func TestConverseSkipsBadCallsAppliesGoodOnes(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAssistant{reply: copilot.Reply{
		Text: "Mixed bag.",
		ToolCalls: []copilot.ToolCall{
			toolCall("launch_missiles", "{}"),
			toolCall("update_directive", `{"taskId":"t1","status":"Stuck"}`),
		},
	}}
	rec := copilot.NewReconciler(st, fake)
	turn, err := rec.Converse(context.Background(), admin, "go")
	if err != nil {
		t.Fatal(err)
	}
	after, _ := st.State().TaskByID("t1")
	if after.Status != domain.StatusStuck {
		t.Fatalf("good call must still apply, got %s", after.Status)
	}
	if len(turn.Notes) != 2 || !strings.Contains(turn.Notes[0], "launch_missiles") {
		t.Fatalf("bad call should leave a note: %v", turn.Notes)
	}
}

func TestSystemContextCarriesRosterAndFriction(t *testing.T) {
	st := newTestStore(t)
	// invert a dependency: t2 depends on t1, push t1 after t2
	task, _ := st.State().TaskByID("t1")
	task.Day = domain.DaySun
	if err := st.UpdateTask(context.Background(), admin, task); err != nil {
		t.Fatal(err)
	}
	fake := &fakeAssistant{reply: copilot.Reply{Text: "standing by"}}
	rec := copilot.NewReconciler(st, fake)
	if _, err := rec.Converse(context.Background(), admin, "report"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fake.lastSystem, "- @sarahchen (ID: u1)") {
		t.Fatalf("roster handles missing:\n%s", fake.lastSystem)
	}
	if !strings.Contains(fake.lastSystem, "DETECTED FRICTION:") || !strings.Contains(fake.lastSystem, "Chain Conflict") {
		t.Fatalf("friction context missing:\n%s", fake.lastSystem)
	}
}

func TestHandle(t *testing.T) {
	if got := copilot.Handle("Elena  Rodriguez"); got != "elenarodriguez" {
		t.Fatalf("unexpected handle %q", got)
	}
}

func TestAnalyzeTaskStoresBreakdown(t *testing.T) {
	st := newTestStore(t)
	rec := copilot.NewReconciler(st, &fakeAssistant{})
	analysis, err := rec.AnalyzeTask(context.Background(), admin, "t1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(analysis.Steps) != 3 {
		t.Fatalf("unexpected steps %v", analysis.Steps)
	}
	task, _ := st.State().TaskByID("t1")
	if len(task.Breakdown) != 3 || len(task.AISuggestions) != 1 {
		t.Fatalf("breakdown not stored: %+v", task)
	}
	if len(task.CompletedSteps) != 0 {
		t.Fatalf("completed steps must reset")
	}
	if _, err := rec.AnalyzeTask(context.Background(), admin, "missing"); err == nil {
		t.Fatalf("missing task must error")
	}
}
