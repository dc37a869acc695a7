package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/inboxpilot/internal/calendar"
	"github.com/teemow/inboxpilot/internal/instrumentation"
	"github.com/teemow/inboxpilot/internal/notify"
	"github.com/teemow/inboxpilot/internal/planner"
	"github.com/teemow/inboxpilot/internal/reminder"
)

// Mailbox is the subset of the Gmail client used by mail executors.
type Mailbox interface {
	EnsureLabel(name string) (string, error)
	ApplyLabel(messageID, labelID string) error
	MarkRead(messageID string) error
}

// EventCreator is the subset of the Calendar client used by the event executor.
type EventCreator interface {
	CreateEvent(calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
}

// RowAppender is the subset of the Sheets client used by the row executor.
type RowAppender interface {
	AppendTrackerRow(spreadsheetID, readRange string, fields map[string]string) error
}

// ReminderAdder is the subset of the reminder store used by the reminder executor.
type ReminderAdder interface {
	Add(r reminder.Reminder) (reminder.Reminder, error)
}

// LabelExecutor applies a category label to the message, creating the
// label on first use.
type LabelExecutor struct {
	mail   Mailbox
	prefix string
}

func NewLabelExecutor(mail Mailbox, labelPrefix string) *LabelExecutor {
	return &LabelExecutor{mail: mail, prefix: labelPrefix}
}

func (e *LabelExecutor) Name() string { return planner.ToolApplyLabel }

func (e *LabelExecutor) Service() (string, string) {
	return instrumentation.ServiceGmail, instrumentation.OperationModify
}

func (e *LabelExecutor) Execute(_ context.Context, step planner.Step, msg Message) error {
	label := stringArg(step.Args, "label")
	if label == "" {
		label = msg.Category.Label(e.prefix)
	}

	labelID, err := e.mail.EnsureLabel(label)
	if err != nil {
		return fmt.Errorf("failed to ensure label %q: %w", label, err)
	}
	if err := e.mail.ApplyLabel(msg.ID, labelID); err != nil {
		return fmt.Errorf("failed to apply label %q: %w", label, err)
	}
	return nil
}

// MarkReadExecutor removes the unread marker from the message.
type MarkReadExecutor struct {
	mail Mailbox
}

func NewMarkReadExecutor(mail Mailbox) *MarkReadExecutor {
	return &MarkReadExecutor{mail: mail}
}

func (e *MarkReadExecutor) Name() string { return planner.ToolMarkRead }

func (e *MarkReadExecutor) Service() (string, string) {
	return instrumentation.ServiceGmail, instrumentation.OperationModify
}

func (e *MarkReadExecutor) Execute(_ context.Context, _ planner.Step, msg Message) error {
	if err := e.mail.MarkRead(msg.ID); err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

// EventExecutor creates a calendar event from the step arguments, falling
// back to extracted email fields for timing.
type EventExecutor struct {
	cal        EventCreator
	calendarID string
}

func NewEventExecutor(cal EventCreator, calendarID string) *EventExecutor {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &EventExecutor{cal: cal, calendarID: calendarID}
}

func (e *EventExecutor) Name() string { return planner.ToolCreateEvent }

func (e *EventExecutor) Service() (string, string) {
	return instrumentation.ServiceCalendar, instrumentation.OperationCreate
}

func (e *EventExecutor) Execute(_ context.Context, step planner.Step, msg Message) error {
	title := stringArg(step.Args, "title", "summary")
	if title == "" {
		title = msg.Subject
	}

	when := stringArg(step.Args, "start", "date")
	if when == "" {
		when = msg.Extracted["deadline"]
	}
	if when == "" {
		when = msg.Extracted["date"]
	}
	if when == "" {
		return fmt.Errorf("no start time for event %q", title)
	}

	start, allDay, err := parseWhen(when)
	if err != nil {
		return fmt.Errorf("bad event start time %q: %w", when, err)
	}

	end := start.Add(time.Hour)
	if allDay {
		end = start.AddDate(0, 0, 1)
	}
	if raw := stringArg(step.Args, "end"); raw != "" {
		parsed, _, err := parseWhen(raw)
		if err != nil {
			return fmt.Errorf("bad event end time %q: %w", raw, err)
		}
		end = parsed
	}

	input := calendar.EventInput{
		Summary:     title,
		Description: stringArg(step.Args, "description"),
		Location:    stringArg(step.Args, "location"),
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Attendees:   stringSliceArg(step.Args, "attendees"),
	}

	if _, err := e.cal.CreateEvent(e.calendarID, input); err != nil {
		return fmt.Errorf("failed to create event %q: %w", title, err)
	}
	return nil
}

// RowExecutor appends a row to the job application tracker spreadsheet.
// Fields from the step arguments override extracted email fields.
type RowExecutor struct {
	sheet         RowAppender
	spreadsheetID string
	readRange     string
}

func NewRowExecutor(sheet RowAppender, spreadsheetID, readRange string) *RowExecutor {
	return &RowExecutor{sheet: sheet, spreadsheetID: spreadsheetID, readRange: readRange}
}

func (e *RowExecutor) Name() string { return planner.ToolAppendRow }

func (e *RowExecutor) Service() (string, string) {
	return instrumentation.ServiceSheets, instrumentation.OperationAppend
}

func (e *RowExecutor) Execute(_ context.Context, step planner.Step, msg Message) error {
	if e.spreadsheetID == "" {
		return fmt.Errorf("no spreadsheet configured")
	}

	fields := make(map[string]string, len(msg.Extracted))
	for k, v := range msg.Extracted {
		fields[k] = v
	}
	if raw, ok := step.Args["fields"].(map[string]any); ok {
		for k, v := range raw {
			fields[k] = fmt.Sprintf("%v", v)
		}
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to append")
	}
	if fields["contact_email"] == "" {
		fields["contact_email"] = msg.Sender
	}

	if err := e.sheet.AppendTrackerRow(e.spreadsheetID, e.readRange, fields); err != nil {
		return fmt.Errorf("failed to append tracker row: %w", err)
	}
	return nil
}

// NotifyExecutor sends a short notification about the message.
type NotifyExecutor struct {
	notifier notify.Notifier
}

func NewNotifyExecutor(notifier notify.Notifier) *NotifyExecutor {
	return &NotifyExecutor{notifier: notifier}
}

func (e *NotifyExecutor) Name() string { return planner.ToolSendNotification }

func (e *NotifyExecutor) Execute(ctx context.Context, step planner.Step, msg Message) error {
	text := stringArg(step.Args, "text", "message")
	if text == "" {
		text = fmt.Sprintf("New %s email from %s: %s", msg.Category, msg.Sender, msg.Subject)
	}

	if err := e.notifier.Notify(ctx, text); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// ReminderExecutor stores a follow-up reminder for the message.
type ReminderExecutor struct {
	store ReminderAdder
	// defaultLead is how far ahead a reminder is due when neither the
	// step nor the extracted fields carry a deadline.
	defaultLead time.Duration
}

func NewReminderExecutor(store ReminderAdder) *ReminderExecutor {
	return &ReminderExecutor{store: store, defaultLead: 24 * time.Hour}
}

func (e *ReminderExecutor) Name() string { return planner.ToolCreateReminder }

func (e *ReminderExecutor) Execute(_ context.Context, step planner.Step, msg Message) error {
	title := stringArg(step.Args, "title")
	if title == "" {
		title = msg.Subject
	}

	due := time.Now().Add(e.defaultLead)
	when := stringArg(step.Args, "due", "due_date")
	if when == "" {
		when = msg.Extracted["deadline"]
	}
	if when != "" {
		parsed, _, err := parseWhen(when)
		if err != nil {
			return fmt.Errorf("bad reminder due time %q: %w", when, err)
		}
		due = parsed
	}

	_, err := e.store.Add(reminder.Reminder{
		MessageID: msg.ID,
		Title:     title,
		Notes:     stringArg(step.Args, "notes"),
		Due:       due,
	})
	if err != nil {
		return fmt.Errorf("failed to store reminder: %w", err)
	}
	return nil
}

// stringArg returns the first non-empty string value among the given keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := args[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringSliceArg returns a []string argument that may arrive as []any
// after JSON decoding.
func stringSliceArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// parseWhen parses a timestamp that is either RFC 3339 or a bare date.
// Bare dates mark all-day semantics.
func parseWhen(s string) (t time.Time, allDay bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognized time format")
}
