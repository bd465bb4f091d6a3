package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/commitlens/commitlens/internal/provider"
)

// ScoringError marks a Quality Scorer failure: unreachable backend, timeout
// or a response missing the expected shape. Fatal for the single commit.
type ScoringError struct {
	Op  string
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scorer %s: %v", e.Op, e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// ScoreRequest carries one commit's canonical file changes and message.
type ScoreRequest struct {
	Files         []provider.FileChange `json:"files"`
	CommitMessage string                `json:"commit_message"`
}

// FileScore is the scorer's verdict on one file, keyed by the file sha.
type FileScore struct {
	Sha              string  `json:"sha"`
	QualityScore     float64 `json:"quality_score"`
	ModificationType string  `json:"modification_type"`
}

// CommitDetails is the scorer's verdict on one commit.
type CommitDetails struct {
	NumberOfCommentLines      int         `json:"number_of_comment_lines"`
	CommitChangesQualityScore float64     `json:"commit_changes_quality_score"`
	CommitMessageQualityScore float64     `json:"commit_message_quality_score"`
	Files                     []FileScore `json:"files"`
}

// Scorer assigns 0-10 quality scores to a commit and its files.
type Scorer interface {
	Score(ctx context.Context, req *ScoreRequest) (*CommitDetails, error)
}

// scoreEnvelope matches the wire contract; some backends answer with the
// details unwrapped, so both shapes are accepted.
type scoreEnvelope struct {
	CommitDetails *CommitDetails `json:"commit_details"`
}

// parseDetails decodes and validates a scorer response body.
func parseDetails(raw string) (*CommitDetails, error) {
	raw = stripCodeFence(raw)

	var envelope scoreEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, &ScoringError{Op: "parse response", Err: err}
	}

	details := envelope.CommitDetails
	if details == nil {
		var direct CommitDetails
		if err := json.Unmarshal([]byte(raw), &direct); err != nil {
			return nil, &ScoringError{Op: "parse response", Err: err}
		}
		details = &direct
	}

	if details.CommitChangesQualityScore < 0 || details.CommitChangesQualityScore > 10 ||
		details.CommitMessageQualityScore < 0 || details.CommitMessageQualityScore > 10 {
		return nil, &ScoringError{Op: "validate response",
			Err: fmt.Errorf("score out of range: changes=%.1f message=%.1f",
				details.CommitChangesQualityScore, details.CommitMessageQualityScore)}
	}
	for _, f := range details.Files {
		if f.Sha == "" {
			return nil, &ScoringError{Op: "validate response", Err: fmt.Errorf("file score without sha")}
		}
		if f.QualityScore < 0 || f.QualityScore > 10 {
			return nil, &ScoringError{Op: "validate response",
				Err: fmt.Errorf("file %s score out of range: %.1f", f.Sha, f.QualityScore)}
		}
	}

	return details, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models wrap JSON output in despite instructions.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
