package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Canonical file statuses.
const (
	StatusAdded    = "added"
	StatusModified = "modified"
	StatusRemoved  = "removed"
	StatusRenamed  = "renamed"
	StatusUnknown  = "unknown"
)

// FileChange is the canonical per-file diff record. Nothing downstream of
// the provider adapters branches on provider kind.
type FileChange struct {
	Sha       string `json:"sha"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Total     int    `json:"total"`
	Patch     string `json:"patch,omitempty"`
}

// RawFileDiff is one provider file-diff record before normalization.
// GitHub populates Sha, Status and the counters; GitLab populates the
// boolean flags and the patch only.
type RawFileDiff struct {
	Sha         string
	OldPath     string
	NewPath     string
	Status      string // provider status string, empty for flag-based providers
	NewFile     bool
	RenamedFile bool
	DeletedFile bool
	Additions   int
	Deletions   int
	HasStats    bool // false when the provider omits file-level counters
	Patch       string
}

// Extension returns the file extension without the leading dot.
func (f FileChange) Extension() string {
	return strings.TrimPrefix(filepath.Ext(f.Filename), ".")
}

// Normalize converts one raw provider record into a canonical FileChange.
// Repeated normalization of the same record is deterministic, including
// the derived sha when the provider supplies none.
func Normalize(raw RawFileDiff) FileChange {
	filename := raw.NewPath
	if filename == "" {
		filename = raw.OldPath
	}

	status := mapStatus(raw)

	additions, deletions := raw.Additions, raw.Deletions
	if !raw.HasStats {
		additions, deletions = CountPatchStats(raw.Patch)
	}

	sha := raw.Sha
	if sha == "" {
		sha = DeriveFileSha(raw.NewPath, raw.OldPath)
	}

	return FileChange{
		Sha:       sha,
		Filename:  filename,
		Status:    status,
		Additions: additions,
		Deletions: deletions,
		Total:     additions + deletions,
		Patch:     raw.Patch,
	}
}

func mapStatus(raw RawFileDiff) string {
	switch raw.Status {
	case "added":
		return StatusAdded
	case "modified", "changed":
		return StatusModified
	case "removed", "deleted":
		return StatusRemoved
	case "renamed":
		return StatusRenamed
	}
	if raw.Status != "" {
		return StatusUnknown
	}

	switch {
	case raw.NewFile:
		return StatusAdded
	case raw.DeletedFile:
		return StatusRemoved
	case raw.RenamedFile:
		return StatusRenamed
	default:
		return StatusModified
	}
}

// DeriveFileSha computes a stable per-file key when the provider supplies
// no blob sha: the first 7 hex characters of the SHA-256 digest of the
// file's canonical path. The new path is preferred; deletions fall back
// to the old path.
func DeriveFileSha(newPath, oldPath string) string {
	path := newPath
	if path == "" {
		path = oldPath
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:7]
}

// CountPatchStats derives additions and deletions from unified-diff patch
// text. Hunk headers ("@@") and file headers ("+++", "---") are skipped.
func CountPatchStats(patch string) (additions, deletions int) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
