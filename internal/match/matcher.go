// Package match computes candidate links between CRM notes and synced
// provider records. Scoring is additive and threshold-gated rather than
// normalized: the result is a ranking aid for a human to confirm, never an
// automatic linker. Only the four pairings the product surfaces are
// computed (note→event, note→task, email→note, email→event).
package match

import (
	"sort"
	"strings"
	"time"

	"github.com/rolohq/rolo/internal/model"
)

// Additive score weights and the emission gate. A candidate is emitted
// only when its accumulated confidence is strictly above the threshold, so
// a lone title hit (40) clears it and a lone time hit (20) does not.
const (
	titleScore     = 40
	bodyScore      = 30
	proximityScore = 20
	threshold      = 20

	// proximityWindow is how close an email's received time must be to an
	// event's start to count as time-proximate.
	proximityWindow = 24 * time.Hour
)

// ForNote scores one note's content against every calendar event and task.
// Events and tasks score the same way: title as a literal substring of the
// note content, plus the description/body as a second additive hit.
// Results are sorted by confidence descending; equal scores keep the
// collection's iteration order, so repeated calls are idempotent.
func ForNote(note model.Note, events []model.CalendarEvent, tasks []model.Task) []model.MatchResult {
	var results []model.MatchResult
	if note.Content == "" {
		return results
	}

	for _, ev := range events {
		score := 0
		if contains(note.Content, ev.Title) {
			score += titleScore
		}
		if contains(note.Content, ev.Description) {
			score += bodyScore
		}
		if score > threshold {
			results = append(results, model.MatchResult{
				TargetKind: model.KindEvent,
				TargetID:   ev.ID,
				Confidence: score,
				MatchedOn:  model.MatchedOnContent,
			})
		}
	}

	for _, t := range tasks {
		score := 0
		if contains(note.Content, t.Title) {
			score += titleScore
		}
		if contains(note.Content, t.Notes) {
			score += bodyScore
		}
		if score > threshold {
			results = append(results, model.MatchResult{
				TargetKind: model.KindTask,
				TargetID:   t.ID,
				Confidence: score,
				MatchedOn:  model.MatchedOnContent,
			})
		}
	}

	sortByConfidence(results)
	return results
}

// ForEmail scores one email against every note and calendar event. Notes
// match when their content contains the email subject; events match on
// subject-in-title plus received-time proximity to the event start.
func ForEmail(email model.Email, notes []model.Note, events []model.CalendarEvent) []model.MatchResult {
	var results []model.MatchResult
	if email.Subject == "" {
		return results
	}

	for _, n := range notes {
		if contains(n.Content, email.Subject) {
			results = append(results, model.MatchResult{
				TargetKind: model.KindNote,
				TargetID:   n.ID,
				Confidence: titleScore,
				MatchedOn:  model.MatchedOnContent,
			})
		}
	}

	for _, ev := range events {
		score := 0
		if contains(ev.Title, email.Subject) {
			score += bodyScore
		}
		if withinWindow(email.ReceivedAt, ev.Start) {
			score += proximityScore
		}
		if score > threshold {
			results = append(results, model.MatchResult{
				TargetKind: model.KindEvent,
				TargetID:   ev.ID,
				Confidence: score,
				MatchedOn:  model.MatchedOnTitle,
			})
		}
	}

	sortByConfidence(results)
	return results
}

// contains is a literal substring test. An empty needle never matches:
// normalized defaults can leave descriptions and bodies empty, and an
// empty string is a substring of everything.
func contains(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

func withinWindow(received, start time.Time) bool {
	if received.IsZero() || start.IsZero() {
		return false
	}
	diff := received.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	return diff < proximityWindow
}

// sortByConfidence orders descending; the stable sort keeps collection
// iteration order for equal scores.
func sortByConfidence(results []model.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
}
