package scoring

import (
	"errors"
	"testing"
)

func TestParseDetailsEnveloped(t *testing.T) {
	raw := `{
		"commit_details": {
			"number_of_comment_lines": 4,
			"commit_changes_quality_score": 7.5,
			"commit_message_quality_score": 8,
			"files": [
				{"sha": "abc1234", "quality_score": 6.5, "modification_type": "updated_code"}
			]
		}
	}`

	details, err := parseDetails(raw)
	if err != nil {
		t.Fatalf("parseDetails: %v", err)
	}
	if details.NumberOfCommentLines != 4 {
		t.Errorf("comment lines = %d, expected 4", details.NumberOfCommentLines)
	}
	if details.CommitChangesQualityScore != 7.5 || details.CommitMessageQualityScore != 8 {
		t.Errorf("scores = (%v, %v), expected (7.5, 8)",
			details.CommitChangesQualityScore, details.CommitMessageQualityScore)
	}
	if len(details.Files) != 1 || details.Files[0].Sha != "abc1234" {
		t.Errorf("files not carried: %+v", details.Files)
	}
}

func TestParseDetailsDirectShape(t *testing.T) {
	raw := `{"commit_changes_quality_score": 5, "commit_message_quality_score": 5, "files": []}`
	details, err := parseDetails(raw)
	if err != nil {
		t.Fatalf("parseDetails: %v", err)
	}
	if details.CommitChangesQualityScore != 5 {
		t.Errorf("score = %v, expected 5", details.CommitChangesQualityScore)
	}
}

func TestParseDetailsCodeFenced(t *testing.T) {
	raw := "```json\n{\"commit_details\": {\"commit_changes_quality_score\": 6, \"commit_message_quality_score\": 7, \"files\": []}}\n```"
	details, err := parseDetails(raw)
	if err != nil {
		t.Fatalf("parseDetails: %v", err)
	}
	if details.CommitChangesQualityScore != 6 {
		t.Errorf("score = %v, expected 6", details.CommitChangesQualityScore)
	}
}

func TestParseDetailsRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the commit looks fine to me"},
		{"score above range", `{"commit_details": {"commit_changes_quality_score": 11, "commit_message_quality_score": 5, "files": []}}`},
		{"score below range", `{"commit_details": {"commit_changes_quality_score": -1, "commit_message_quality_score": 5, "files": []}}`},
		{"file score out of range", `{"commit_details": {"commit_changes_quality_score": 5, "commit_message_quality_score": 5, "files": [{"sha": "abc", "quality_score": 42}]}}`},
		{"file without sha", `{"commit_details": {"commit_changes_quality_score": 5, "commit_message_quality_score": 5, "files": [{"quality_score": 5}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDetails(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var serr *ScoringError
			if !errors.As(err, &serr) {
				t.Errorf("expected ScoringError, got %T", err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.out {
				t.Errorf("stripCodeFence() = %q, expected %q", got, tt.out)
			}
		})
	}
}
