// Package aggregation builds calendar date-histogram aggregations and
// reshapes their keyed buckets into gap-free series.
package aggregation

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
)

// Interval is a calendar bucket width.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalMonth Interval = "month"
)

// ParseInterval accepts day or month. Empty yields def.
func ParseInterval(s string, def Interval) (Interval, error) {
	switch Interval(s) {
	case "":
		return def, nil
	case IntervalDay:
		return IntervalDay, nil
	case IntervalMonth:
		return IntervalMonth, nil
	default:
		return "", domain.NewValidationError("group_by", fmt.Sprintf("unsupported interval %q", s))
	}
}

// Layout is the Go label layout for the interval.
func (i Interval) Layout() string {
	if i == IntervalMonth {
		return "2006-01"
	}
	return "2006-01-02"
}

// Format is the Elasticsearch date format producing the same labels as
// Layout.
func (i Interval) Format() string {
	if i == IntervalMonth {
		return "yyyy-MM"
	}
	return "yyyy-MM-dd"
}

// next advances cur by one interval. A month step that lands past the end
// of the target month clamps to its last day, and later steps continue from
// the clamped date: Jan 31, Feb 28, Mar 28.
func (i Interval) next(cur time.Time) time.Time {
	if i != IntervalMonth {
		return cur.AddDate(0, 0, 1)
	}
	firstOfNext := time.Date(cur.Year(), cur.Month()+1, 1,
		cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), cur.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	return firstOfNext.AddDate(0, 0, min(cur.Day(), lastDay)-1)
}

// GroupingKeys lists the labels of every interval starting in [from, to),
// formatted in from's location, deduplicated and sorted. Both layouts are
// zero-padded big-endian, so lexical order is chronological.
func GroupingKeys(from, to time.Time, interval Interval) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for cur := from; cur.Before(to); cur = interval.next(cur) {
		label := cur.Format(interval.Layout())
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		keys = append(keys, label)
	}
	slices.Sort(keys)
	return keys
}

func dateHistogram(field string, interval Interval, timeZone string) map[string]any {
	return map[string]any{
		"field":             field,
		"calendar_interval": string(interval),
		"min_doc_count":     0,
		"time_zone":         timeZone,
		"format":            interval.Format(),
		"keyed":             true,
	}
}
