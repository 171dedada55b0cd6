package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sjournalfx-cmyk/teamhub/internal/app"
	"github.com/sjournalfx-cmyk/teamhub/internal/config"
	"github.com/sjournalfx-cmyk/teamhub/internal/copilot"
	"github.com/sjournalfx-cmyk/teamhub/internal/db"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/migrate"
	"github.com/sjournalfx-cmyk/teamhub/internal/server"
	"github.com/sjournalfx-cmyk/teamhub/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "teamhub",
	Short: "TeamHub CLI",
	Long: `TeamHub coordinates a small team's weekly board from the command line.
Core concepts:
- Workspace: your .teamhub directory holding one SQLite database with the whole board inside.
- Directives: the tasks of the week. They flow Not Started -> Working on it -> Ready for Review -> Done, and can get Stuck on friction.
- Acceptance: a directive must be accepted by its assignee before the assignee can progress it; leads can move anything.
- Evidence: an assignee cannot jump straight to Done. Submit deliverables for review and let a lead verify and close.
- Objectives: strategic goals broken into milestones; progress is derived from milestone completion.
- Sandbox: draft mode stages new directives invisibly until the week is dispatched to the fleet in one go.
- Adviser: an optional AI copilot that proposes directives (held for your approval), edits on command, and drafts objectives into the sandbox.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TEAMHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("role", "admin", "session role (admin or performer)")
	rootCmd.PersistentFlags().String("actor-id", "", "act as this roster user instead of the current one")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(frictionCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(copilotCmd())
	rootCmd.AddCommand(serveCmd())
}

func sessionRole() domain.Role {
	if viper.GetString("role") == string(domain.RolePerformer) {
		return domain.RolePerformer
	}
	return domain.RoleAdmin
}

// sessionActor resolves the acting user, honoring --actor-id over the
// workspace's current user.
func sessionActor(ws *app.Workspace) store.Actor {
	role := sessionRole()
	if id := viper.GetString("actor-id"); id != "" {
		if user, ok := ws.Store.State().UserByID(id); ok {
			return store.Actor{UserID: user.ID, Name: user.Name, Role: role}
		}
	}
	return ws.Store.CurrentActor(role)
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default teamhub.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "teamhub", "workspace name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Dump the full workspace state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				return printJSONOrTable(ws.Store.State())
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage directives",
		Long:  "Directives are the week's work items. Assignees accept, work, and submit deliverables for review; leads verify and close or send back for revision.",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskAcceptCmd())
	task.AddCommand(taskSubmitCmd())
	task.AddCommand(taskApproveCmd())
	task.AddCommand(taskReviseCmd())
	task.AddCommand(taskBlockCmd())
	task.AddCommand(taskFocusCmd())
	task.AddCommand(taskAnalyzeCmd())
	task.AddCommand(taskStepCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var day, status, assignee string
	var drafts bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List directives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				state := ws.Store.State()
				var tasks []domain.Task
				for _, t := range state.Tasks {
					if day != "" && string(t.Day) != day {
						continue
					}
					if status != "" && string(t.Status) != status {
						continue
					}
					if assignee != "" && t.AssigneeID != assignee {
						continue
					}
					if t.IsDraft && !drafts {
						continue
					}
					tasks = append(tasks, t)
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Day", "Assignee", "Accepted", "Blocked"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Day, t.AssigneeID, t.IsAccepted, t.IsBlocked})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day filter (Mon..Sun, Backlog)")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee id filter")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "include drafts")
	return cmd
}

func taskAddCmd() *cobra.Command {
	var task domain.Task
	var priority, status, day string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a directive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if task.Title == "" {
				return fmt.Errorf("--title required")
			}
			task.Priority = domain.Priority(priority)
			task.Status = domain.TaskStatus(status)
			task.Day = domain.Day(day)
			if !domain.ValidStatus(task.Status) {
				return fmt.Errorf("invalid status %q", status)
			}
			if !domain.ValidDay(task.Day) {
				return fmt.Errorf("invalid day %q", day)
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.AddTask(ctx, actor, task); err != nil {
					return err
				}
				tasks := ws.Store.State().Tasks
				return printJSONOrTable(tasks[len(tasks)-1])
			})
		},
	}
	cmd.Flags().StringVar(&task.Title, "title", "", "title")
	cmd.Flags().StringVar(&task.Description, "description", "", "description")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "priority (Low, Medium, High)")
	cmd.Flags().StringVar(&status, "status", string(domain.StatusNotStarted), "initial status")
	cmd.Flags().StringVar(&day, "day", string(domain.DayBacklog), "day (Mon..Sun, Backlog)")
	cmd.Flags().StringVar(&task.AssigneeID, "assignee", "", "assignee id")
	cmd.Flags().StringVar(&task.GoalID, "goal", "", "objective id")
	cmd.Flags().StringVar(&task.DependencyID, "depends-on", "", "prerequisite directive id")
	cmd.Flags().Float64Var(&task.EstimateHours, "estimate", 1, "estimate in hours")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				task, ok := ws.Store.State().TaskByID(args[0])
				if !ok {
					return fmt.Errorf("directive %q not found", args[0])
				}
				return printJSONOrTable(task)
			})
		},
	}
	return cmd
}

func taskStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set directive status",
		Long:  "Performers must accept a directive first and cannot set Done directly; submit deliverables and have a lead verify instead.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.TaskStatus(args[1])
			if !domain.ValidStatus(status) {
				return fmt.Errorf("invalid status %q", args[1])
			}
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.UpdateTaskStatus(ctx, actor, t.ID, status); err != nil {
					if errors.Is(err, store.ErrEvidenceRequired) {
						return fmt.Errorf("deliverables required: use 'teamhub task submit' and let a lead approve")
					}
					if errors.Is(err, store.ErrNotAccepted) {
						return fmt.Errorf("directive not accepted: use 'teamhub task accept %s' first", t.ID)
					}
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	return cmd
}

func taskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <day>",
		Short: "Move a directive to another day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := domain.Day(args[1])
			if !domain.ValidDay(day) {
				return fmt.Errorf("invalid day %q", args[1])
			}
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.MoveTask(ctx, actor, t.ID, day); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	return cmd
}

func taskAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.AcceptTask(ctx, actor, t.ID); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	return cmd
}

func taskSubmitCmd() *cobra.Command {
	var comment string
	var links []string
	cmd := &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit deliverables for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deliverables := make([]domain.Deliverable, 0, len(links))
			for _, link := range links {
				deliverables = append(deliverables, domain.Deliverable{
					Type: domain.DeliverableLink,
					URL:  link,
				})
			}
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.SubmitForReview(ctx, actor, t.ID, deliverables, comment); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "completion comment")
	cmd.Flags().StringArrayVar(&links, "link", []string{}, "deliverable link (repeatable)")
	return cmd
}

func taskApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Verify and close a submitted directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.ApproveTask(ctx, actor, t.ID); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	return cmd
}

func taskReviseCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "revise <id>",
		Short: "Send a submitted directive back for revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.RequestRevision(ctx, actor, t.ID, comment); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "review comment")
	return cmd
}

func taskBlockCmd() *cobra.Command {
	var message, suggestion string
	cmd := &cobra.Command{
		Use:   "block <id>",
		Short: "Report or resolve friction on a directive",
		Long:  "Toggles the blocker: an unblocked directive becomes Stuck with the given message, a blocked one returns to Working on it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.ToggleTaskBlocker(ctx, actor, t.ID, message, suggestion); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "what is blocking")
	cmd.Flags().StringVar(&suggestion, "suggestion", "", "suggested resolution")
	return cmd
}

func taskFocusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus <id>",
		Short: "Enter or leave deep focus on a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.ToggleFocus(ctx, actor, t.ID); err != nil {
					return err
				}
				state := ws.Store.State()
				if state.ActiveFocusTaskID == t.ID {
					fmt.Printf("Deep focus on @%s\n", t.Title)
				} else {
					fmt.Println("Focus session ended")
				}
				return nil
			})
		},
	}
	return cmd
}

func taskAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Request a tactical breakdown from the adviser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				rec := copilot.NewReconciler(ws.Store, copilot.NewFromConfig(ws.Config))
				actor := sessionActor(ws)
				analysis, err := rec.AnalyzeTask(ctx, actor, t.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(analysis)
			})
		},
	}
	return cmd
}

func taskStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <id> <index>",
		Short: "Toggle an execution step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step index %q", args[1])
			}
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				if err := ws.Store.ToggleBreakdownStep(ctx, actor, t.ID, index); err != nil {
					return err
				}
				updated, _ := ws.Store.State().TaskByID(t.ID)
				return printJSONOrTable(updated)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a directive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd.Context(), args[0], func(ctx context.Context, ws *app.Workspace, t domain.Task) error {
				actor := sessionActor(ws)
				return ws.Store.DeleteTask(ctx, actor, t.ID)
			})
		},
	}
	return cmd
}

func goalCmd() *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage strategic objectives",
		Long:  "Objectives group directives under a strategic goal. Progress derives from milestone completion; adviser drafts wait in the sandbox until promoted.",
	}
	goal.AddCommand(goalListCmd())
	goal.AddCommand(goalAddCmd())
	goal.AddCommand(goalMilestoneCmd())
	goal.AddCommand(goalPromoteCmd())
	goal.AddCommand(goalDiscardCmd())
	goal.AddCommand(goalDeleteCmd())
	return goal
}

func goalListCmd() *cobra.Command {
	var drafts bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objectives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				state := ws.Store.State()
				goals := state.Goals
				if drafts {
					goals = state.DraftGoals
				}
				if viper.GetBool("json") {
					return printJSON(goals)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Progress", "Milestones"})
				for _, g := range goals {
					done := 0
					for _, m := range g.Milestones {
						if m.IsCompleted {
							done++
						}
					}
					tw.AppendRow(table.Row{g.ID, g.Title, fmt.Sprintf("%d%%", g.DerivedProgress()), fmt.Sprintf("%d/%d", done, len(g.Milestones))})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&drafts, "drafts", false, "list sandbox drafts instead")
	return cmd
}

func goalAddCmd() *cobra.Command {
	var goal domain.Goal
	var milestones []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an objective",
		RunE: func(cmd *cobra.Command, args []string) error {
			if goal.Title == "" {
				return fmt.Errorf("--title required")
			}
			for i, title := range milestones {
				goal.Milestones = append(goal.Milestones, domain.Milestone{
					ID:    fmt.Sprintf("m-%d-%d", time.Now().UnixMilli(), i),
					Title: title,
				})
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.AddGoal(ctx, actor, goal); err != nil {
					return err
				}
				goals := ws.Store.State().Goals
				return printJSONOrTable(goals[len(goals)-1])
			})
		},
	}
	cmd.Flags().StringVar(&goal.Title, "title", "", "title")
	cmd.Flags().StringVar(&goal.Description, "description", "", "description")
	cmd.Flags().StringVar(&goal.Color, "color", "bg-indigo-100 text-indigo-800", "badge color classes")
	cmd.Flags().StringArrayVar(&milestones, "milestone", []string{}, "milestone title (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalMilestoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "milestone <goal-id> <milestone-id>",
		Short: "Toggle milestone completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.ToggleMilestone(ctx, actor, args[0], args[1]); err != nil {
					return err
				}
				goal, ok := ws.Store.State().GoalByID(args[0])
				if !ok {
					return fmt.Errorf("objective %q not found", args[0])
				}
				return printJSONOrTable(goal)
			})
		},
	}
	return cmd
}

func goalPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Promote a sandbox objective to the live list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.PromoteDraftGoal(ctx, actor, args[0]); err != nil {
					return err
				}
				goals := ws.Store.State().Goals
				return printJSONOrTable(goals[len(goals)-1])
			})
		},
	}
	return cmd
}

func goalDiscardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discard <id>",
		Short: "Discard a sandbox objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				return ws.Store.RemoveDraftGoal(ctx, actor, args[0])
			})
		},
	}
	return cmd
}

func goalDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an objective",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				return ws.Store.DeleteGoal(ctx, actor, args[0])
			})
		},
	}
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage the roster"}
	user.AddCommand(userListCmd())
	user.AddCommand(userAddCmd())
	user.AddCommand(userStatusCmd())
	user.AddCommand(userSwitchCmd())
	user.AddCommand(userDeleteCmd())
	return user
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				state := ws.Store.State()
				if viper.GetBool("json") {
					return printJSON(state.Users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Status", "Current"})
				for _, u := range state.Users {
					status := strings.TrimSpace(u.StatusEmoji + " " + u.StatusText)
					tw.AppendRow(table.Row{u.ID, u.Name, u.Role, status, u.ID == state.CurrentUser.ID})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func userAddCmd() *cobra.Command {
	var user domain.User
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Authorize a new node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.Name == "" {
				return fmt.Errorf("--name required")
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.AddUser(ctx, actor, user); err != nil {
					return err
				}
				users := ws.Store.State().Users
				return printJSONOrTable(users[len(users)-1])
			})
		},
	}
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	cmd.Flags().StringVar(&user.Role, "role", "", "role label")
	cmd.Flags().StringVar(&user.Timezone, "timezone", "", "timezone")
	cmd.Flags().StringVar(&user.Avatar, "avatar", "", "avatar url")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func userStatusCmd() *cobra.Command {
	var emoji, text string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Set the current user's status line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.UpdateUserStatus(ctx, actor, emoji, text); err != nil {
					return err
				}
				return printJSONOrTable(ws.Store.State().CurrentUser)
			})
		},
	}
	cmd.Flags().StringVar(&emoji, "emoji", "", "status emoji")
	cmd.Flags().StringVar(&text, "text", "", "status text")
	return cmd
}

func userSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <id>",
		Short: "Switch the active user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.SetCurrentUser(ctx, actor, args[0]); err != nil {
					return err
				}
				return printJSONOrTable(ws.Store.State().CurrentUser)
			})
		},
	}
	return cmd
}

func userDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a user from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				return ws.Store.DeleteUser(ctx, actor, args[0])
			})
		},
	}
	return cmd
}

func boardCmd() *cobra.Command {
	board := &cobra.Command{Use: "board", Short: "Weekly board operations"}
	board.AddCommand(boardDispatchCmd())
	board.AddCommand(boardDraftModeCmd())
	return board
}

func boardDispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch all draft directives to the fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				if err := ws.Store.DispatchWeek(ctx, actor); err != nil {
					return err
				}
				fmt.Println("Weekly instructions dispatched")
				return nil
			})
		},
	}
	return cmd
}

func boardDraftModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft-mode <on|off>",
		Short: "Toggle the planning sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				actor := sessionActor(ws)
				return ws.Store.SetDraftMode(ctx, actor, enabled)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Activity feed"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				events := ws.Store.State().ActivityLog
				if n > 0 && len(events) > n {
					events = events[len(events)-n:]
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				for _, ev := range events {
					ts := time.UnixMilli(ev.Timestamp).Format("Jan 02 15:04")
					fmt.Printf("%s  %s %s %s\n", ts, ev.UserName, ev.Action, ev.TargetName)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func frictionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friction",
		Short: "Scan directives for dependency friction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				warnings := domain.DetectFriction(ws.Store.State().Tasks)
				if viper.GetBool("json") {
					return printJSON(warnings)
				}
				if len(warnings) == 0 {
					fmt.Println("No friction detected")
					return nil
				}
				for _, w := range warnings {
					fmt.Println(w.Message)
				}
				return nil
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	report := &cobra.Command{Use: "report", Short: "Weekly reporting"}
	report.AddCommand(reportStatsCmd())
	report.AddCommand(reportSummaryCmd())
	return report
}

func reportStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show raw weekly report inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				return printJSONOrTable(domain.CollectWeekStats(ws.Store.State()))
			})
		},
	}
	return cmd
}

func reportSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate an executive summary via the adviser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				rec := copilot.NewReconciler(ws.Store, copilot.NewFromConfig(ws.Config))
				summary, err := rec.SummarizeWeek(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(summary)
				return nil
			})
		},
	}
	return cmd
}

func copilotCmd() *cobra.Command {
	cp := &cobra.Command{Use: "copilot", Short: "Talk to the adviser"}
	cp.AddCommand(copilotChatCmd())
	return cp
}

func copilotChatCmd() *cobra.Command {
	var approveAll bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the adviser",
		Long:  "Directive creations come back as proposals; pass --approve to commit them immediately, otherwise they are listed and discarded when the process exits.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				rec := copilot.NewReconciler(ws.Store, copilot.NewFromConfig(ws.Config))
				actor := sessionActor(ws)
				turn, err := rec.Converse(ctx, actor, input)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(turn)
				}
				fmt.Println(turn.Text)
				for _, note := range turn.Notes {
					fmt.Println(note)
				}
				for _, p := range turn.Proposals {
					if approveAll {
						if err := rec.ApproveProposal(ctx, actor, p.ID); err != nil {
							return err
						}
						fmt.Printf("Approved: @%s\n", p.Task.Title)
						continue
					}
					fmt.Printf("Proposed (not committed): @%s [%s, %s, assignee %s]\n",
						p.Task.Title, p.Task.Priority, p.Task.Day, p.Task.AssigneeID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&approveAll, "approve", false, "approve proposed directives immediately")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, ws *app.Workspace) error {
				secret := os.Getenv("TEAMHUB_JWT_SECRET")
				if secret == "" {
					secret = ws.Config.Server.JWTSecret
				}
				if secret == "" {
					return fmt.Errorf("TEAMHUB_JWT_SECRET is required for bearer auth")
				}
				if basePath == "" {
					basePath = ws.Config.Server.BasePath
				}
				rec := copilot.NewReconciler(ws.Store, copilot.NewFromConfig(ws.Config))
				handler, err := server.New(server.Config{
					Store:      ws.Store,
					Reconciler: rec,
					Workspace:  ws.Config.Workspace.Name,
					BasePath:   basePath,
					Auth:       server.AuthConfig{JWTSecret: secret},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				schema, err := migrate.Version(ws.DB)
				if err != nil {
					return err
				}
				fmt.Printf("Serving TeamHub API on http://%s%s (schema v%d, OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath, schema)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func withTask(ctx context.Context, id string, fn func(context.Context, *app.Workspace, domain.Task) error) error {
	return withWorkspace(ctx, func(ctx context.Context, ws *app.Workspace) error {
		task, ok := ws.Store.State().TaskByID(id)
		if !ok {
			return fmt.Errorf("directive %q not found", id)
		}
		return fn(ctx, ws, task)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
