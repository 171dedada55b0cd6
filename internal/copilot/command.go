package copilot

import (
	"encoding/json"
	"fmt"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

// Command is the closed set of mutations the assistant may request.
// Tool calls are decoded into exactly one of these variants before any
// state is touched; an unrecognized or malformed call is rejected whole,
// never partially applied.
type Command interface {
	isCommand()
}

// CreateDirective proposes a new task. It is staged for human approval,
// never inserted directly.
type CreateDirective struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      string   `json:"priority"`
	Day           string   `json:"day"`
	AssigneeID    string   `json:"assigneeId"`
	GoalID        string   `json:"goalId"`
	EstimateHours *float64 `json:"estimateHours"`
}

// UpdateDirective edits an existing task. Only fields the model supplied
// override the existing record.
type UpdateDirective struct {
	TaskID         string   `json:"taskId"`
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Priority       *string  `json:"priority"`
	Status         *string  `json:"status"`
	Day            *string  `json:"day"`
	AssigneeID     *string  `json:"assigneeId"`
	IsBlocked      *bool    `json:"isBlocked"`
	BlockerMessage *string  `json:"blockerMessage"`
	EstimateHours  *float64 `json:"estimateHours"`
}

// DeleteDirective rescinds an existing task.
type DeleteDirective struct {
	Title  string `json:"title"`
	TaskID string `json:"taskId"`
}

// CreateObjective drafts a new strategic goal into the staging list.
type CreateObjective struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Milestones  []struct {
		Title string `json:"title"`
	} `json:"milestones"`
}

func (CreateDirective) isCommand() {}
func (UpdateDirective) isCommand() {}
func (DeleteDirective) isCommand() {}
func (CreateObjective) isCommand() {}

// Tool names on the wire.
const (
	toolCreateDirective = "create_directive"
	toolUpdateDirective = "update_directive"
	toolDeleteDirective = "delete_directive"
	toolCreateObjective = "create_strategic_objective"
)

// ParseToolCall decodes one model tool call into a command variant.
func ParseToolCall(call ToolCall) (Command, error) {
	raw := []byte(call.Function.Arguments)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch call.Function.Name {
	case toolCreateDirective:
		var cmd CreateDirective
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return nil, fmt.Errorf("%s args: %w", call.Function.Name, err)
		}
		if cmd.Title == "" {
			return nil, fmt.Errorf("%s: title is required", call.Function.Name)
		}
		return cmd, nil
	case toolUpdateDirective:
		var cmd UpdateDirective
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return nil, fmt.Errorf("%s args: %w", call.Function.Name, err)
		}
		if cmd.TaskID == "" {
			return nil, fmt.Errorf("%s: taskId is required", call.Function.Name)
		}
		return cmd, nil
	case toolDeleteDirective:
		var cmd DeleteDirective
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return nil, fmt.Errorf("%s args: %w", call.Function.Name, err)
		}
		if cmd.TaskID == "" {
			return nil, fmt.Errorf("%s: taskId is required", call.Function.Name)
		}
		return cmd, nil
	case toolCreateObjective:
		var cmd CreateObjective
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return nil, fmt.Errorf("%s args: %w", call.Function.Name, err)
		}
		if cmd.Title == "" {
			return nil, fmt.Errorf("%s: title is required", call.Function.Name)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Function.Name)
	}
}

// toolDefinitions declares the command set to the model.
func toolDefinitions() []Tool {
	strProp := func(desc string) map[string]any {
		p := map[string]any{"type": "string"}
		if desc != "" {
			p["description"] = desc
		}
		return p
	}
	enumProp := func(values ...string) map[string]any {
		return map[string]any{"type": "string", "enum": values}
	}
	days := []string{
		string(domain.DayMon), string(domain.DayTue), string(domain.DayWed), string(domain.DayThu),
		string(domain.DayFri), string(domain.DaySat), string(domain.DaySun), string(domain.DayBacklog),
	}
	priorities := []string{string(domain.PriorityLow), string(domain.PriorityMedium), string(domain.PriorityHigh)}

	return []Tool{
		{Type: "function", Function: FunctionSpec{
			Name:        toolCreateDirective,
			Description: "Issues a new tactical directive to the team.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":         strProp("The title of the directive"),
					"description":   strProp("Instructional parameters and technical specs"),
					"priority":      enumProp(priorities...),
					"day":           enumProp(days...),
					"assigneeId":    strProp("ID of the node (user) to execute the directive"),
					"goalId":        strProp("Strategic objective ID for alignment"),
					"estimateHours": map[string]any{"type": "number", "description": "Projected time for execution"},
				},
				"required": []string{"title", "priority", "day", "assigneeId"},
			},
		}},
		{Type: "function", Function: FunctionSpec{
			Name:        toolUpdateDirective,
			Description: "Modifies an existing directive. Can shift timelines, change status, or edit parameters.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"taskId":      strProp(""),
					"title":       strProp(""),
					"description": strProp(""),
					"priority":    enumProp(priorities...),
					"status": enumProp(
						string(domain.StatusNotStarted), string(domain.StatusWorkingOnIt),
						string(domain.StatusDone), string(domain.StatusStuck),
					),
					"day":            enumProp(days...),
					"assigneeId":     strProp(""),
					"isBlocked":      map[string]any{"type": "boolean"},
					"blockerMessage": strProp(""),
					"estimateHours":  map[string]any{"type": "number"},
				},
				"required": []string{"taskId"},
			},
		}},
		{Type: "function", Function: FunctionSpec{
			Name:        toolDeleteDirective,
			Description: "Rescinds an existing directive.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":  strProp("The name of the directive to delete"),
					"taskId": strProp("The ID of the directive to abort"),
				},
				"required": []string{"taskId"},
			},
		}},
		{Type: "function", Function: FunctionSpec{
			Name:        toolCreateObjective,
			Description: "Defines a new high-level strategic mission objective.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       strProp(""),
					"description": strProp(""),
					"milestones": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"title": strProp(""),
							},
						},
					},
				},
				"required": []string{"title", "description"},
			},
		}},
	}
}
