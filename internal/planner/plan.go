// Package planner turns a classified, extracted email into an ordered list
// of tool invocations via the Gemini generateContent API.
package planner

import (
	"github.com/teemow/inboxpilot/internal/classify"
)

// Tool names the planner may emit. The executor registry uses the same names.
const (
	ToolApplyLabel       = "apply_label"
	ToolMarkRead         = "mark_read"
	ToolCreateEvent      = "create_event"
	ToolAppendRow        = "append_row"
	ToolSendNotification = "send_notification"
	ToolCreateReminder   = "create_reminder"
)

// Step is a single tool invocation in an execution plan.
type Step struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Rationale string         `json:"rationale,omitempty"`
}

// Plan is the ordered list of tool invocations for one message. It is
// consumed exactly once by the tool runner.
type Plan struct {
	Steps    []Step `json:"steps"`
	Fallback bool   `json:"fallback,omitempty"`
}

// catalog is the fixed table mapping each category to the tools a plan for
// that category may use. Steps naming other tools are dropped during
// validation.
var catalog = map[classify.Category][]string{
	classify.CategoryAcademic:     {ToolApplyLabel, ToolMarkRead, ToolCreateEvent, ToolCreateReminder, ToolSendNotification},
	classify.CategoryJob:          {ToolApplyLabel, ToolMarkRead, ToolAppendRow, ToolCreateReminder, ToolSendNotification},
	classify.CategoryPersonal:     {ToolApplyLabel, ToolSendNotification},
	classify.CategoryPromotional:  {ToolApplyLabel, ToolMarkRead},
	classify.CategoryConference:   {ToolApplyLabel, ToolCreateEvent, ToolCreateReminder, ToolSendNotification},
	classify.CategoryDeadline:     {ToolApplyLabel, ToolCreateEvent, ToolCreateReminder, ToolSendNotification},
	classify.CategoryMeeting:      {ToolApplyLabel, ToolCreateEvent, ToolSendNotification},
	classify.CategoryNotification: {ToolApplyLabel, ToolMarkRead},
	classify.CategorySpam:         {ToolApplyLabel, ToolMarkRead},
	classify.CategoryUnknown:      {ToolApplyLabel},
}

// AllowedTools returns the tools a plan for the category may use.
func AllowedTools(category classify.Category) []string {
	tools, ok := catalog[category]
	if !ok {
		return catalog[classify.CategoryUnknown]
	}
	return tools
}

// Allowed reports whether the tool may appear in a plan for the category.
func Allowed(category classify.Category, tool string) bool {
	for _, t := range AllowedTools(category) {
		if t == tool {
			return true
		}
	}
	return false
}

// Validate drops steps naming unknown or disallowed tools and steps without
// a tool name. The surviving steps keep their order.
func Validate(plan Plan, category classify.Category) Plan {
	valid := make([]Step, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if step.Tool == "" || !Allowed(category, step.Tool) {
			continue
		}
		if step.Args == nil {
			step.Args = map[string]any{}
		}
		valid = append(valid, step)
	}
	plan.Steps = valid
	return plan
}

// FallbackPlan is the deterministic plan used when the model output is
// unusable: label the message with its category and mark it read. Job emails
// with extracted fields additionally get an append_row step so the
// application tracker never misses an entry.
func FallbackPlan(category classify.Category, labelPrefix string, extracted map[string]any) Plan {
	steps := []Step{
		{
			Tool: ToolApplyLabel,
			Args: map[string]any{"label": category.Label(labelPrefix)},
		},
	}

	if category == classify.CategoryJob && len(extracted) > 0 {
		steps = append(steps, Step{
			Tool: ToolAppendRow,
			Args: map[string]any{"fields": extracted},
		})
	}

	if Allowed(category, ToolMarkRead) {
		steps = append(steps, Step{Tool: ToolMarkRead, Args: map[string]any{}})
	}

	return Plan{Steps: steps, Fallback: true}
}
