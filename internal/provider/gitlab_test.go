package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGitLabFetchCommitsOldestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/projects/42/repository/commits" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("PRIVATE-TOKEN") != "secret" {
			t.Errorf("missing PRIVATE-TOKEN header")
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte("[]"))
			return
		}
		// GitLab answers newest-first
		w.Write([]byte(`[
			{"id": "sha2", "message": "second", "author_name": "dev", "committed_date": "2024-03-02T10:00:00Z"},
			{"id": "sha1", "message": "first", "author_name": "dev", "committed_date": "2024-03-01T10:00:00Z"}
		]`))
	}))
	defer server.Close()

	client := NewGitLabClient("secret", server.URL, time.Second)
	commits, err := client.FetchCommits(context.Background(), RepoDescriptor{ProviderID: 42}, "main")
	if err != nil {
		t.Fatalf("FetchCommits: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, expected 2", len(commits))
	}
	if commits[0].Sha != "sha1" || commits[1].Sha != "sha2" {
		t.Errorf("order = [%s, %s], expected oldest-first [sha1, sha2]", commits[0].Sha, commits[1].Sha)
	}
}

func TestGitLabFetchCommitDiffNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"old_path": "", "new_path": "new.go", "new_file": true, "diff": "@@ -0,0 +1,2 @@\n+a\n+b\n"},
			{"old_path": "gone.go", "new_path": "gone.go", "deleted_file": true, "diff": "@@ -1,1 +0,0 @@\n-x\n"}
		]`))
	}))
	defer server.Close()

	client := NewGitLabClient("secret", server.URL, time.Second)
	files, err := client.FetchCommitDiff(context.Background(), RepoDescriptor{ProviderID: 7}, "abc")
	if err != nil {
		t.Fatalf("FetchCommitDiff: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, expected 2", len(files))
	}

	added := files[0]
	if added.Status != StatusAdded {
		t.Errorf("status = %q, expected %q", added.Status, StatusAdded)
	}
	if added.Additions != 2 || added.Deletions != 0 || added.Total != 2 {
		t.Errorf("stats = (%d, %d, %d), expected patch-derived (2, 0, 2)",
			added.Additions, added.Deletions, added.Total)
	}
	if len(added.Sha) != 7 {
		t.Errorf("sha = %q, expected a 7-char derived key", added.Sha)
	}

	removed := files[1]
	if removed.Status != StatusRemoved {
		t.Errorf("status = %q, expected %q", removed.Status, StatusRemoved)
	}
	if removed.Deletions != 1 {
		t.Errorf("deletions = %d, expected 1", removed.Deletions)
	}
}

func TestGitLabErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"not found", http.StatusNotFound, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"server error", http.StatusInternalServerError, true},
		{"rate limited", http.StatusTooManyRequests, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewGitLabClient("secret", server.URL, time.Second)
			_, err := client.Authenticate(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if pe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, expected %d", pe.StatusCode, tt.status)
			}
			if pe.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, expected %v", pe.Retryable, tt.retryable)
			}
		})
	}
}

func TestGitLabNetworkFailureRetryable(t *testing.T) {
	// Closed server: transport-level failure
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewGitLabClient("secret", server.URL, time.Second)
	_, err := client.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("network failure should be retryable, got %v", err)
	}
}
