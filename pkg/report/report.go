package report

import (
	"fmt"
	"strings"

	"github.com/cuemby/viewsync/pkg/types"
)

// Bucket is a plural category for a day count
type Bucket int

const (
	BucketOne  Bucket = iota // 1
	BucketFew                // 2-4
	BucketMany               // 0 and 5+
)

// BucketFor returns the plural bucket of n. The boundaries 1 / 2-4 / 5+ are
// the target locale's plural rules and must not be collapsed.
func BucketFor(n int) Bucket {
	switch {
	case n == 1:
		return BucketOne
	case n >= 2 && n <= 4:
		return BucketFew
	default:
		return BucketMany
	}
}

// Forms holds the word for each plural bucket
type Forms struct {
	One  string
	Few  string
	Many string
}

// For returns the form matching n
func (f Forms) For(n int) string {
	switch BucketFor(n) {
	case BucketOne:
		return f.One
	case BucketFew:
		return f.Few
	default:
		return f.Many
	}
}

// Kind routes a message to a notification channel
type Kind string

const (
	KindReport Kind = "report" // repairs, failures and alerts
	KindStatus Kind = "status" // the all-clear message
)

// Message is one notification produced from a summary
type Message struct {
	Kind Kind
	Text string
}

// Phrasebook holds the human-readable texts of a run
type Phrasebook struct {
	Day             Forms
	RepairHeader    string
	RepairLine      string // view, count, day word
	PendingHeader   string
	PendingLine     string // view, count, day word
	AttentionHeader string
	FailureLine     string // view, phase, count, day word
	UncheckedLine   string // view, count, day word
	AlertLine       string // view, count, day word
	UpToDate        string
}

// English is the default phrasebook
var English = Phrasebook{
	Day:             Forms{One: "day", Few: "days", Many: "days"},
	RepairHeader:    "Data backfilled into ClickHouse views:",
	RepairLine:      "%s repaired for %d %s",
	PendingHeader:   "Drift found by a dry run, nothing was repaired:",
	PendingLine:     "%s drifted on %d %s",
	AttentionHeader: "ClickHouse views needing attention:",
	FailureLine:     "%s backfill failed in %s phase for %d %s",
	UncheckedLine:   "%s could not be checked for %d %s",
	AlertLine:       "Missing data in ClickHouse %s for %d %s",
	UpToDate:        "All ClickHouse views are up-to-date",
}

// RepairEntry renders the line for a completed backfill
func (p Phrasebook) RepairEntry(view string, days int) string {
	return fmt.Sprintf(p.RepairLine, view, days, p.Day.For(days))
}

// PendingEntry renders the line for drift a dry run left in place
func (p Phrasebook) PendingEntry(view string, days int) string {
	return fmt.Sprintf(p.PendingLine, view, days, p.Day.For(days))
}

// FailureEntry renders the line for a failed backfill
func (p Phrasebook) FailureEntry(view, phase string, days int) string {
	return fmt.Sprintf(p.FailureLine, view, phase, days, p.Day.For(days))
}

// Alert renders the drift alert of a backfill-suppressed view
func (p Phrasebook) Alert(view string, days int) string {
	return fmt.Sprintf(p.AlertLine, view, days, p.Day.For(days))
}

// UncheckedEntry renders the line for days whose check failed
func (p Phrasebook) UncheckedEntry(view string, days int) string {
	return fmt.Sprintf(p.UncheckedLine, view, days, p.Day.For(days))
}

// Text renders the full run report as up to three sections: completed
// repairs, drift left by a dry run, and failed or unchecked views. Each
// section carries its own header and appears only when it has lines. Text is
// empty when there is nothing to report; alerts are sent separately by
// Messages.
func (p Phrasebook) Text(s *types.ReconciliationSummary) string {
	var repaired, pending, attention []string
	for _, e := range s.Entries {
		repaired = append(repaired, p.RepairEntry(e.View, len(e.Days)))
	}
	for _, e := range s.Pending {
		pending = append(pending, p.PendingEntry(e.View, len(e.Days)))
	}
	for _, f := range s.Failures {
		attention = append(attention, p.FailureEntry(f.View, f.Phase, len(f.Days)))
	}
	if p.UncheckedLine != "" {
		for _, u := range uncheckedByView(s.Unchecked) {
			attention = append(attention, p.UncheckedEntry(u.view, u.days))
		}
	}

	var sections []string
	for _, sec := range []struct {
		header string
		lines  []string
	}{
		{p.RepairHeader, repaired},
		{p.PendingHeader, pending},
		{p.AttentionHeader, attention},
	} {
		if len(sec.lines) == 0 {
			continue
		}
		body := strings.Join(sec.lines, "\n")
		if sec.header != "" {
			body = sec.header + "\n" + body
		}
		sections = append(sections, body)
	}
	return strings.Join(sections, "\n\n")
}

// Messages turns a summary into notifications: one alert per suppressed view
// with drift, the repair report when anything was (or failed to be) repaired,
// and the all-clear status when neither applies.
func (p Phrasebook) Messages(s *types.ReconciliationSummary) []Message {
	var msgs []Message

	for _, a := range s.Alerts {
		if a.Days > 0 {
			msgs = append(msgs, Message{Kind: KindReport, Text: p.Alert(a.View, a.Days)})
		}
	}

	if text := p.Text(s); text != "" {
		msgs = append(msgs, Message{Kind: KindReport, Text: text})
	}

	if s.Clean() {
		msgs = append(msgs, Message{Kind: KindStatus, Text: p.UpToDate})
	}
	return msgs
}

type uncheckedCount struct {
	view string
	days int
}

// uncheckedByView counts unchecked days per view in first-seen order
func uncheckedByView(days []types.UncheckedDay) []uncheckedCount {
	var out []uncheckedCount
	index := make(map[string]int)
	for _, d := range days {
		i, ok := index[d.View]
		if !ok {
			i = len(out)
			index[d.View] = i
			out = append(out, uncheckedCount{view: d.View})
		}
		out[i].days++
	}
	return out
}
