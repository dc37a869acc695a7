// Package classify assigns each incoming email to a category, using an
// external classifier model with sender-rule short-circuits.
package classify

import "strings"

// Category is the closed set of email categories the pipeline understands.
type Category string

const (
	CategoryAcademic     Category = "academic"
	CategoryJob          Category = "job"
	CategoryPersonal     Category = "personal"
	CategoryPromotional  Category = "promotional"
	CategoryConference   Category = "conference"
	CategoryDeadline     Category = "deadline"
	CategoryMeeting      Category = "meeting"
	CategoryNotification Category = "notification"
	CategorySpam         Category = "spam"
	CategoryUnknown      Category = "unknown"
)

// labelNames maps categories to the human-readable part of their Gmail label.
var labelNames = map[Category]string{
	CategoryAcademic:     "Academic",
	CategoryJob:          "Job",
	CategoryPersonal:     "Personal",
	CategoryPromotional:  "Promotional",
	CategoryConference:   "Conference",
	CategoryDeadline:     "Deadline",
	CategoryMeeting:      "Meeting",
	CategoryNotification: "Notification",
	CategorySpam:         "Spam",
	CategoryUnknown:      "Unknown",
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryAcademic,
		CategoryJob,
		CategoryPersonal,
		CategoryPromotional,
		CategoryConference,
		CategoryDeadline,
		CategoryMeeting,
		CategoryNotification,
		CategorySpam,
		CategoryUnknown,
	}
}

// aliases maps verbose category names some models emit onto the enum.
var aliases = map[string]Category{
	"job recruitment": CategoryJob,
	"job_recruitment": CategoryJob,
	"recruitment":     CategoryJob,
	"promo":           CategoryPromotional,
	"event":           CategoryConference,
}

// ParseCategory normalizes a category string. Anything outside the known
// set maps to CategoryUnknown.
func ParseCategory(s string) Category {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if c, ok := aliases[normalized]; ok {
		return c
	}
	c := Category(normalized)
	if _, ok := labelNames[c]; ok {
		return c
	}
	return CategoryUnknown
}

// Valid reports whether c is a member of the known category set.
func (c Category) Valid() bool {
	_, ok := labelNames[c]
	return ok
}

// Label returns the Gmail label name for the category, e.g. "AI-Job" for
// prefix "AI-".
func (c Category) Label(prefix string) string {
	name, ok := labelNames[c]
	if !ok {
		name = labelNames[CategoryUnknown]
	}
	return prefix + name
}

func (c Category) String() string {
	return string(c)
}
