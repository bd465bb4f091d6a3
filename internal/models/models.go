package models

import (
	"time"

	"gorm.io/gorm"
)

// GitToken represents one credential against one hosting provider account
type GitToken struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"index;not null" json:"user_id"`
	Token         string         `gorm:"size:500;not null" json:"-"`
	Service       string         `gorm:"size:50;not null" json:"service"` // github, gitlab
	Username      string         `gorm:"size:200" json:"username"`        // resolved at registration
	BaseURL       string         `gorm:"size:500" json:"base_url"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	LastFetchedAt *time.Time     `json:"last_fetched_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Repository represents one remote repository discovered through a token.
// Exactly one row exists per (token, owner, name).
type Repository struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	GitTokenID    uint       `gorm:"uniqueIndex:idx_repo_token_owner_name;not null" json:"git_token_id"`
	Name          string     `gorm:"uniqueIndex:idx_repo_token_owner_name;size:200;not null" json:"name"`
	Owner         string     `gorm:"uniqueIndex:idx_repo_token_owner_name;size:200;not null" json:"owner"`
	ProviderID    int64      `gorm:"index" json:"provider_id"` // remote repo/project id for API addressing
	URL           string     `gorm:"size:500" json:"url"`
	Description   string     `gorm:"size:1000" json:"description"`
	DefaultBranch string     `gorm:"size:200;default:main" json:"default_branch"`
	WebhookID     int64      `gorm:"index" json:"webhook_id"` // provider-side hook id, 0 if unregistered
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// Commit is an append-only record of one analyzed commit. Scored fields are
// written once at analysis time and never recomputed by later syncs.
type Commit struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RepositoryID uint      `gorm:"uniqueIndex:idx_commit_repo_sha;not null" json:"repository_id"`
	Sha          string    `gorm:"uniqueIndex:idx_commit_repo_sha;size:100;not null" json:"sha"`
	Message      string    `gorm:"type:text" json:"message"`
	Author       string    `gorm:"size:200" json:"author"`
	Date         time.Time `gorm:"index" json:"date"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	Total        int       `json:"total"`

	// Derived at analysis time
	NumberOfCommentLines int     `json:"number_of_comment_lines"`
	ChangesQualityScore  float64 `json:"commit_changes_quality_score"`
	MessageQualityScore  float64 `json:"commit_message_quality_score"`

	Files     []CommitFile `gorm:"foreignKey:CommitID" json:"files,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// CommitFile is one file-level change belonging to a commit. Sha is a
// per-file content key: the provider blob sha when supplied, otherwise a
// stable digest of the file path.
type CommitFile struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	CommitID         uint    `gorm:"index;not null" json:"commit_id"`
	Sha              string  `gorm:"size:100;not null" json:"sha"`
	Filename         string  `gorm:"size:500" json:"filename"`
	Extension        string  `gorm:"size:50" json:"extension"`
	Status           string  `gorm:"size:50" json:"status"` // added, modified, removed, renamed, unknown
	Additions        int     `json:"additions"`
	Deletions        int     `json:"deletions"`
	Total            int     `json:"total"`
	QualityScore     float64 `json:"quality_score"`
	ModificationType string  `gorm:"size:50" json:"modification_type"`
}

// TableName overrides
func (GitToken) TableName() string   { return "git_tokens" }
func (Repository) TableName() string { return "repositories" }
func (Commit) TableName() string     { return "commits" }
func (CommitFile) TableName() string { return "commit_files" }
