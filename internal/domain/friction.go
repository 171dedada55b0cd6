package domain

import "fmt"

// FrictionWarning flags a dependency scheduled after the task that needs
// it. Advisory only: detection never blocks a mutation.
type FrictionWarning struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	TaskIDs []string `json:"taskIds"`
}

// DetectFriction scans the task graph for dependency-ordering conflicts.
// A task whose dependency sits in a later day bucket (Mon..Sun, Backlog
// last) produces exactly one warning referencing both tasks. Missing
// dependency ids are ignored.
func DetectFriction(tasks []Task) []FrictionWarning {
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var warnings []FrictionWarning
	for _, t := range tasks {
		if t.DependencyID == "" {
			continue
		}
		dep, ok := byID[t.DependencyID]
		if !ok {
			continue
		}
		if DayIndex(dep.Day) > DayIndex(t.Day) {
			warnings = append(warnings, FrictionWarning{
				Type:    "friction",
				Message: fmt.Sprintf("Chain Conflict: Directive @%s is scheduled before its prerequisite @%s.", t.Title, dep.Title),
				TaskIDs: []string{t.ID, dep.ID},
			})
		}
	}
	return warnings
}
