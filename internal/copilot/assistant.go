package copilot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sjournalfx-cmyk/teamhub/internal/config"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

// ErrUnavailable means no assistant endpoint is configured or reachable.
var ErrUnavailable = errors.New("assistant unavailable")

// ChatTurn is one entry of the stored conversation history.
type ChatTurn struct {
	Role string `json:"role"` // user | model
	Text string `json:"text"`
}

// Reply is the assistant's answer to one converse round-trip.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Breakdown is the unstructured task analysis result.
type Breakdown struct {
	Steps       []string `json:"steps"`
	Suggestions []string `json:"suggestions"`
}

// Assistant is the external generative collaborator. Implementations
// must not mutate application state; they only produce text and tool
// calls for the reconciler to apply.
type Assistant interface {
	Converse(ctx context.Context, systemContext string, history []ChatTurn, input string) (Reply, error)
	AnalyzeTask(ctx context.Context, title, description string) (Breakdown, error)
	SummarizeWeek(ctx context.Context, stats domain.WeekStats) (string, error)
}

// NewFromConfig builds the assistant described by teamhub.yml. An empty
// base URL yields a permanently offline assistant.
func NewFromConfig(cfg *config.Config) Assistant {
	if cfg == nil || cfg.Assistant.BaseURL == "" {
		return offline{}
	}
	timeout := time.Duration(cfg.Assistant.TimeoutSeconds) * time.Second
	apiKey := ""
	if cfg.Assistant.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Assistant.APIKeyEnv)
	}
	client := NewClient(ClientConfig{
		BaseURL: cfg.Assistant.BaseURL,
		APIKey:  apiKey,
		Timeout: timeout,
	})
	analysisModel := cfg.Assistant.AnalysisModel
	if analysisModel == "" {
		analysisModel = cfg.Assistant.Model
	}
	return &httpAssistant{
		client:        client,
		model:         cfg.Assistant.Model,
		analysisModel: analysisModel,
	}
}

type offline struct{}

func (offline) Converse(context.Context, string, []ChatTurn, string) (Reply, error) {
	return Reply{}, ErrUnavailable
}

func (offline) AnalyzeTask(context.Context, string, string) (Breakdown, error) {
	return Breakdown{}, ErrUnavailable
}

func (offline) SummarizeWeek(context.Context, domain.WeekStats) (string, error) {
	return "", ErrUnavailable
}

type httpAssistant struct {
	client        *Client
	model         string
	analysisModel string
}

const adviserPromptHeader = `You are Command.Advisor_v5. You assist Managers and Leaders in coordinating complex operations.`

const adviserPromptRules = `RULES:
1. Mentions: Use @name for personnel and directives.
2. Tool Usage: Use the provided tools to issue, update, or revoke directives and objectives.
3. Leadership Tone: Be concise, tactical, and authoritative. Assist the manager in maintaining oversight.

Output Format:
Return your response text. If you call a tool, it will be handled by the interface.`

func (a *httpAssistant) Converse(ctx context.Context, systemContext string, history []ChatTurn, input string) (Reply, error) {
	messages := []Message{{
		Role:    RoleSystem,
		Content: adviserPromptHeader + "\n\n" + systemContext + "\n\n" + adviserPromptRules,
	}}
	for _, turn := range history {
		role := RoleUser
		if turn.Role == "model" {
			role = RoleModel
		}
		messages = append(messages, Message{Role: role, Content: turn.Text})
	}
	if input != "" {
		messages = append(messages, Message{Role: RoleUser, Content: input})
	}
	resp, err := a.client.Chat(ctx, &ChatRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    toolDefinitions(),
	})
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("empty completion")
	}
	msg := resp.Choices[0].Message
	text := msg.Content
	if text == "" {
		text = "Command standby."
	}
	return Reply{Text: text, ToolCalls: msg.ToolCalls}, nil
}

func (a *httpAssistant) AnalyzeTask(ctx context.Context, title, description string) (Breakdown, error) {
	if description == "" {
		description = "No specific briefing provided."
	}
	system := fmt.Sprintf(`You are Command.Directive_Optimizer_v5.
Analyze the operational parameters for: "@%s".
DIRECTIVE BRIEFING: %s

GOAL:
1. Break down this instruction into 3-5 high-precision execution steps.
2. Provide 2-3 "Command Suggestions" for the executing agent to ensure success.

OUTPUT FORMAT: Return a JSON object with keys "steps" (array of strings) and "suggestions" (array of strings).`, title, description)
	resp, err := a.client.Chat(ctx, &ChatRequest{
		Model: a.analysisModel,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: "Analyze this directive for optimal execution."},
		},
	})
	if err != nil {
		return Breakdown{}, err
	}
	if len(resp.Choices) == 0 {
		return Breakdown{}, fmt.Errorf("empty completion")
	}
	var analysis Breakdown
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.Trim(raw, "`\n ")
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return Breakdown{}, fmt.Errorf("parse analysis: %w", err)
	}
	return analysis, nil
}

func (a *httpAssistant) SummarizeWeek(ctx context.Context, stats domain.WeekStats) (string, error) {
	completed := strings.Join(stats.CompletedTitles, ", ")
	if completed == "" {
		completed = "None reported yet."
	}
	blockers := strings.Join(stats.Blockers, "; ")
	if blockers == "" {
		blockers = "No major blockers."
	}
	system := fmt.Sprintf(`You are an elite Project Manager and Consultant.
Your task is to write a high-level "Executive Summary" for a weekly client report.

DATA FOR THIS WEEK:
Completed Wins: %s
Strategic Objectives Progress: %s
Current Friction/Blockers: %s

REQUIREMENTS:
- Tone: Professional, authoritative, and value-focused.
- Format: One concise paragraph.
- Focus: Highlight the impact of what was shipped and clearly state what is needed to resolve blockers.
- Start directly with the summary, no "Here is the summary" intro.`,
		completed, strings.Join(stats.GoalProgress, "; "), blockers)
	resp, err := a.client.Chat(ctx, &ChatRequest{
		Model: a.model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: "Generate executive summary for client report."},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
