package analysis

import (
	"context"

	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/scoring"
)

// Modification types assigned when the scorer returns no verdict for a file.
const (
	ModAddedCode         = "added_code"
	ModUpdatedCode       = "updated_code"
	ModRemovedCode       = "removed_code"
	ModRenamedElements   = "renamed_elements"
	ModWhitespaceChanges = "whitespace_changes"
	ModUnknown           = "unknown"
)

// AnalyzedFile is one file change with its quality verdict attached.
// The deterministic fields always come from the normalized FileChange;
// the scorer only ever contributes QualityScore and ModificationType.
type AnalyzedFile struct {
	provider.FileChange
	QualityScore     float64
	ModificationType string
}

// Result is a fully analyzed commit ready for persistence.
type Result struct {
	Additions            int
	Deletions            int
	Total                int
	NumberOfCommentLines int
	ChangesQualityScore  float64
	MessageQualityScore  float64
	Files                []AnalyzedFile
}

// Engine merges deterministic patch statistics with external scorer output.
type Engine struct {
	scorer scoring.Scorer
}

func NewEngine(scorer scoring.Scorer) *Engine {
	return &Engine{scorer: scorer}
}

// Analyze scores one commit. A scorer failure fails analysis for this
// commit only; the engine never fabricates scores beyond the
// deterministic fallback for files the scorer did not cover.
func (e *Engine) Analyze(ctx context.Context, files []provider.FileChange, message string) (*Result, error) {
	details, err := e.scorer.Score(ctx, &scoring.ScoreRequest{
		Files:         files,
		CommitMessage: message,
	})
	if err != nil {
		return nil, err
	}

	return mergeDetails(files, details), nil
}

// mergeDetails overlays scorer verdicts onto the canonical file changes,
// keyed by sha. Deterministic fields are never overwritten by the scorer.
func mergeDetails(files []provider.FileChange, details *scoring.CommitDetails) *Result {
	scored := make(map[string]scoring.FileScore, len(details.Files))
	for _, f := range details.Files {
		scored[f.Sha] = f
	}

	result := &Result{
		NumberOfCommentLines: details.NumberOfCommentLines,
		ChangesQualityScore:  details.CommitChangesQualityScore,
		MessageQualityScore:  details.CommitMessageQualityScore,
		Files:                make([]AnalyzedFile, 0, len(files)),
	}

	for _, fc := range files {
		af := AnalyzedFile{FileChange: fc}
		if verdict, ok := scored[fc.Sha]; ok {
			af.QualityScore = verdict.QualityScore
			af.ModificationType = verdict.ModificationType
		}
		if af.ModificationType == "" {
			af.ModificationType = FallbackModificationType(fc)
		}

		result.Additions += fc.Additions
		result.Deletions += fc.Deletions
		result.Total += fc.Total
		result.Files = append(result.Files, af)
	}

	return result
}

// FallbackModificationType classifies a file change when the scorer
// returned no verdict for it.
func FallbackModificationType(fc provider.FileChange) string {
	switch fc.Status {
	case provider.StatusAdded:
		if fc.Total == 0 {
			return ModWhitespaceChanges
		}
		return ModAddedCode
	case provider.StatusModified:
		return ModUpdatedCode
	case provider.StatusRemoved:
		return ModRemovedCode
	case provider.StatusRenamed:
		if fc.Total == 0 {
			return ModRenamedElements
		}
		if fc.Total == fc.Additions {
			return ModAddedCode
		}
		return ModRemovedCode
	default:
		return ModUnknown
	}
}
