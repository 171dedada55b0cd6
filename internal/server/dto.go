package server

import (
	"github.com/sjournalfx-cmyk/teamhub/internal/copilot"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

type LoginRequest struct {
	UserID string `json:"userId" example:"u1"`
	Role   string `json:"role,omitempty" example:"admin" enum:"admin,performer,"`
}

type LoginResponse struct {
	Token  string      `json:"token"`
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

type CreateTaskRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Priority      string   `json:"priority,omitempty" example:"Medium"`
	Day           string   `json:"day,omitempty" example:"Mon"`
	EstimateHours *float64 `json:"estimateHours,omitempty"`
	AssigneeID    string   `json:"assigneeId,omitempty"`
	GoalID        string   `json:"goalId,omitempty"`
	MilestoneID   string   `json:"milestoneId,omitempty"`
	DependencyID  string   `json:"dependencyId,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Progress    int    `json:"progress,omitempty"`
	Milestones  []struct {
		Title string `json:"title"`
	} `json:"milestones,omitempty"`
}

type CreateUserRequest struct {
	Name       string `json:"name"`
	CustomID   string `json:"customId,omitempty"`
	AccessCode string `json:"accessCode,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Role       string `json:"role,omitempty"`
	Bio        string `json:"bio,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status" example:"Working on it"`
}

type MoveRequest struct {
	Day string `json:"day" example:"Wed"`
}

type SubmitRequest struct {
	Deliverables []domain.Deliverable `json:"deliverables,omitempty"`
	Comment      string               `json:"comment,omitempty"`
}

type RevisionRequest struct {
	Comment string `json:"comment"`
}

type BlockerRequest struct {
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type DraftModeRequest struct {
	Enabled bool `json:"enabled"`
}

type UserStatusRequest struct {
	Emoji string `json:"emoji,omitempty"`
	Text  string `json:"text,omitempty"`
}

type ConverseRequest struct {
	Input string `json:"input"`
}

type FrictionResponse struct {
	Warnings []domain.FrictionWarning `json:"warnings"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type ProposalListResponse struct {
	Proposals []copilot.Proposal `json:"proposals"`
}
