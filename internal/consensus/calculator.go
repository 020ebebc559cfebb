// Package consensus computes the synthesized outcome of a completed
// deliberation. Calculate is a pure function over the response set; it never
// touches storage, and completeness of the panel is the caller's job.
package consensus

import (
	"fmt"
	"strings"

	"github.com/quorumlab/quorum/internal/panel"
	"github.com/quorumlab/quorum/pkg/models"
)

// Result is the computed consensus body. The store assigns the id, decision
// reference, and timestamp when it persists the record.
type Result struct {
	Outcome     models.Outcome
	Unanimous   bool
	Tally       models.Tally
	Reasoning   string
	ActionItems []string
}

// Calculate derives the consensus from a complete response set. Responses are
// processed in submission order, which the store preserves.
func Calculate(responses []models.Response) Result {
	t := tally(responses)
	return Result{
		Outcome:     determineOutcome(t),
		Unanimous:   unanimous(responses),
		Tally:       t,
		Reasoning:   synthesize(responses),
		ActionItems: actionItems(responses),
	}
}

// MissingAdvisors returns the panel members without a response on file, in
// panel order. An empty result means the panel is complete.
func MissingAdvisors(responses []models.Response) []string {
	seen := make(map[string]bool, len(responses))
	for _, r := range responses {
		seen[r.Advisor] = true
	}
	var missing []string
	for _, a := range panel.Advisors() {
		if !seen[a.ID] {
			missing = append(missing, a.ID)
		}
	}
	return missing
}

func tally(responses []models.Response) models.Tally {
	var t models.Tally
	for _, r := range responses {
		switch r.Vote {
		case models.VoteApprove:
			t.Approve++
		case models.VoteReject:
			t.Reject++
		case models.VoteAbstain:
			t.Abstain++
		}
	}
	return t
}

// determineOutcome applies the majority rule in fixed order: approve majority
// wins, then reject majority, and anything else needs revision. A tie or a
// plurality short of a majority always lands on needs_revision.
func determineOutcome(t models.Tally) models.Outcome {
	threshold := panel.MajorityThreshold()
	switch {
	case t.Approve >= threshold:
		return models.OutcomeApproved
	case t.Reject >= threshold:
		return models.OutcomeRejected
	default:
		return models.OutcomeNeedsRevision
	}
}

// unanimous reports whether every response carries the identical vote value.
// An all-abstain panel is unanimous even though its outcome is needs_revision.
func unanimous(responses []models.Response) bool {
	if len(responses) == 0 {
		return false
	}
	first := responses[0].Vote
	for _, r := range responses[1:] {
		if r.Vote != first {
			return false
		}
	}
	return true
}

// synthesize produces one paragraph per response in submission order, each
// naming the advisor's role, vote, confidence, and verbatim reasoning.
func synthesize(responses []models.Response) string {
	paragraphs := make([]string, 0, len(responses))
	for _, r := range responses {
		role := r.Advisor
		if a, ok := panel.Lookup(r.Advisor); ok {
			role = a.Role
		}
		paragraphs = append(paragraphs, fmt.Sprintf(
			"%s voted to %s with %d%% confidence: %s",
			role, r.Vote, r.Confidence, r.Reasoning))
	}
	return strings.Join(paragraphs, "\n\n")
}

// actionItems concatenates every response's recommendations, deduplicated by
// exact string match in first-seen order. Returns nil when nothing remains.
func actionItems(responses []models.Response) []string {
	var items []string
	seen := map[string]bool{}
	for _, r := range responses {
		for _, rec := range r.Recommendations {
			if seen[rec] {
				continue
			}
			seen[rec] = true
			items = append(items, rec)
		}
	}
	return items
}
