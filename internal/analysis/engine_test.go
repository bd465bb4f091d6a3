package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/scoring"
)

type stubScorer struct {
	details *scoring.CommitDetails
	err     error
}

func (s *stubScorer) Score(ctx context.Context, req *scoring.ScoreRequest) (*scoring.CommitDetails, error) {
	return s.details, s.err
}

func TestAnalyzeMergePrecedence(t *testing.T) {
	files := []provider.FileChange{
		{Sha: "f1", Filename: "a.go", Status: provider.StatusModified, Additions: 4, Deletions: 1, Total: 5},
		{Sha: "f2", Filename: "b.go", Status: provider.StatusAdded, Additions: 10, Deletions: 0, Total: 10},
	}
	scorer := &stubScorer{details: &scoring.CommitDetails{
		NumberOfCommentLines:      3,
		CommitChangesQualityScore: 7.5,
		CommitMessageQualityScore: 6,
		Files: []scoring.FileScore{
			// Scorer has its own idea of the stats; only score and type may win
			{Sha: "f1", QualityScore: 8, ModificationType: "updated_code"},
		},
	}}

	result, err := NewEngine(scorer).Analyze(context.Background(), files, "refactor parser")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Additions != 14 || result.Deletions != 1 || result.Total != 15 {
		t.Errorf("commit stats = (%d, %d, %d), expected deterministic sums (14, 1, 15)",
			result.Additions, result.Deletions, result.Total)
	}
	if result.ChangesQualityScore != 7.5 || result.MessageQualityScore != 6 || result.NumberOfCommentLines != 3 {
		t.Errorf("scorer commit fields not carried: %+v", result)
	}

	scored := result.Files[0]
	if scored.QualityScore != 8 || scored.ModificationType != "updated_code" {
		t.Errorf("scored file verdict not applied: %+v", scored)
	}
	if scored.Additions != 4 || scored.Deletions != 1 || scored.Total != 5 {
		t.Errorf("deterministic file stats must win: %+v", scored)
	}

	// File the scorer skipped gets the fallback type and a zero score
	unscored := result.Files[1]
	if unscored.QualityScore != 0 {
		t.Errorf("unscored file quality = %v, expected 0", unscored.QualityScore)
	}
	if unscored.ModificationType != ModAddedCode {
		t.Errorf("unscored file type = %q, expected %q", unscored.ModificationType, ModAddedCode)
	}
}

func TestAnalyzeScorerFailureIsFatal(t *testing.T) {
	scorer := &stubScorer{err: &scoring.ScoringError{Op: "call", Err: errors.New("unreachable")}}
	_, err := NewEngine(scorer).Analyze(context.Background(),
		[]provider.FileChange{{Sha: "f1", Status: provider.StatusAdded, Total: 1}}, "msg")
	if err == nil {
		t.Fatal("expected scorer failure to fail the commit")
	}
	var serr *scoring.ScoringError
	if !errors.As(err, &serr) {
		t.Errorf("expected ScoringError, got %T", err)
	}
}

func TestAnalyzeEmptyVerdictTypeFallsBack(t *testing.T) {
	scorer := &stubScorer{details: &scoring.CommitDetails{
		Files: []scoring.FileScore{{Sha: "f1", QualityScore: 9}},
	}}
	result, err := NewEngine(scorer).Analyze(context.Background(),
		[]provider.FileChange{{Sha: "f1", Status: provider.StatusRemoved, Deletions: 2, Total: 2}}, "msg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	f := result.Files[0]
	if f.QualityScore != 9 {
		t.Errorf("quality = %v, expected scorer value 9", f.QualityScore)
	}
	if f.ModificationType != ModRemovedCode {
		t.Errorf("type = %q, expected fallback %q", f.ModificationType, ModRemovedCode)
	}
}

func TestFallbackModificationType(t *testing.T) {
	tests := []struct {
		name string
		fc   provider.FileChange
		want string
	}{
		{"added with changes", provider.FileChange{Status: provider.StatusAdded, Additions: 3, Total: 3}, ModAddedCode},
		{"added without changes", provider.FileChange{Status: provider.StatusAdded, Total: 0}, ModWhitespaceChanges},
		{"modified", provider.FileChange{Status: provider.StatusModified, Total: 2}, ModUpdatedCode},
		{"removed", provider.FileChange{Status: provider.StatusRemoved, Deletions: 5, Total: 5}, ModRemovedCode},
		{"pure rename", provider.FileChange{Status: provider.StatusRenamed, Total: 0}, ModRenamedElements},
		{"rename adding lines", provider.FileChange{Status: provider.StatusRenamed, Additions: 4, Total: 4}, ModAddedCode},
		{"rename removing lines", provider.FileChange{Status: provider.StatusRenamed, Additions: 1, Deletions: 3, Total: 4}, ModRemovedCode},
		{"unknown status", provider.FileChange{Status: provider.StatusUnknown, Total: 1}, ModUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackModificationType(tt.fc); got != tt.want {
				t.Errorf("FallbackModificationType() = %q, expected %q", got, tt.want)
			}
		})
	}
}
