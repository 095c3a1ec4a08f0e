// Package quickadd parses single-line task input such as
//
//	Pay rent @home due:friday every:monthly
package quickadd

import (
	"strings"
	"time"

	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/store"
)

// NaturalLayout is the due layout produced for natural dates
const NaturalLayout = "2006-01-02T15:04"

// Parse splits input into text, @tags, due: and every: tokens.
// Tokens may appear anywhere; everything else is the task text.
func Parse(input string, now time.Time) (store.Draft, error) {
	var d store.Draft
	var words []string

	for _, tok := range strings.Fields(input) {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(tok, "@") && len(tok) > 1:
			d.Tags = append(d.Tags, tok[1:])
		case strings.HasPrefix(lower, "due:"):
			due, err := ParseDate(tok[len("due:"):], now)
			if err != nil {
				return store.Draft{}, err
			}
			d.Due = due
		case strings.HasPrefix(lower, "every:"):
			d.Recurrence = parseEvery(lower[len("every:"):])
		default:
			words = append(words, tok)
		}
	}

	d.Text = strings.Join(words, " ")
	d.Tags = store.NormalizeTags(d.Tags)
	return d, nil
}

func parseEvery(s string) model.Recurrence {
	switch s {
	case "day", "daily":
		return model.RecurrenceDaily
	case "week", "weekly":
		return model.RecurrenceWeekly
	case "month", "monthly":
		return model.RecurrenceMonthly
	}
	return model.RecurrenceNone
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseDate accepts the due layouts plus today, tomorrow, weekday names and
// nextweek. Natural dates land at the end of the day. Explicit values are
// returned as typed so their layout is kept.
func ParseDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 0, 0, now.Location())

	switch strings.ToLower(s) {
	case "today":
		return endOfDay.Format(NaturalLayout), nil
	case "tomorrow", "tom":
		return endOfDay.AddDate(0, 0, 1).Format(NaturalLayout), nil
	case "nextweek", "next-week":
		return endOfDay.AddDate(0, 0, 7).Format(NaturalLayout), nil
	}

	if day, ok := weekdays[strings.ToLower(s)]; ok {
		daysUntil := int(day - now.Weekday())
		if daysUntil <= 0 {
			daysUntil += 7
		}
		return endOfDay.AddDate(0, 0, daysUntil).Format(NaturalLayout), nil
	}

	if _, err := model.ParseDue(s); err != nil {
		return "", err
	}
	return s, nil
}
