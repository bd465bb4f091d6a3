package store

import (
	"context"
	"errors"
	"time"

	"github.com/commitlens/commitlens/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a gorm database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateToken(ctx context.Context, token *models.GitToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return &PersistenceError{Op: "create token", Err: err}
	}
	return nil
}

func (s *GormStore) GetToken(ctx context.Context, id uint) (*models.GitToken, error) {
	var token models.GitToken
	if err := s.db.WithContext(ctx).First(&token, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "get token", Err: err}
	}
	return &token, nil
}

func (s *GormStore) ListTokens(ctx context.Context) ([]models.GitToken, error) {
	var tokens []models.GitToken
	if err := s.db.WithContext(ctx).Order("id").Find(&tokens).Error; err != nil {
		return nil, &PersistenceError{Op: "list tokens", Err: err}
	}
	return tokens, nil
}

func (s *GormStore) ListActiveTokens(ctx context.Context) ([]models.GitToken, error) {
	var tokens []models.GitToken
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&tokens).Error; err != nil {
		return nil, &PersistenceError{Op: "list active tokens", Err: err}
	}
	return tokens, nil
}

func (s *GormStore) SetTokenActive(ctx context.Context, id uint, active bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GitToken{}).Where("id = ?", id).
			Update("is_active", active).Error; err != nil {
			return err
		}
		if !active {
			return tx.Model(&models.Repository{}).Where("git_token_id = ?", id).
				Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "set token active", Err: err}
	}
	return nil
}

func (s *GormStore) DeleteToken(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Soft-delete the token and cascade-disable its repositories; commit
		// history stays append-only.
		if err := tx.Model(&models.Repository{}).Where("git_token_id = ?", id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Delete(&models.GitToken{}, id).Error
	})
	if err != nil {
		return &PersistenceError{Op: "delete token", Err: err}
	}
	return nil
}

func (s *GormStore) MarkTokenFetched(ctx context.Context, id uint) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.GitToken{}).Where("id = ?", id).
		Update("last_fetched_at", &now).Error; err != nil {
		return &PersistenceError{Op: "mark token fetched", Err: err}
	}
	return nil
}

func (s *GormStore) GetRepository(ctx context.Context, id uint) (*models.Repository, error) {
	var repo models.Repository
	if err := s.db.WithContext(ctx).First(&repo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "get repository", Err: err}
	}
	return &repo, nil
}

func (s *GormStore) FindRepository(ctx context.Context, tokenID uint, owner, name string) (*models.Repository, error) {
	var repo models.Repository
	err := s.db.WithContext(ctx).
		Where("git_token_id = ? AND owner = ? AND name = ?", tokenID, owner, name).
		First(&repo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "find repository", Err: err}
	}
	return &repo, nil
}

func (s *GormStore) FindRepositoryByWebhookID(ctx context.Context, service string, hookID int64) (*models.Repository, error) {
	var repo models.Repository
	err := s.db.WithContext(ctx).
		Joins("JOIN git_tokens ON git_tokens.id = repositories.git_token_id").
		Where("repositories.webhook_id = ? AND git_tokens.service = ?", hookID, service).
		First(&repo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "find repository by webhook", Err: err}
	}
	return &repo, nil
}

// UpsertRepository inserts the repository or returns the existing row for
// the same (token, owner, name). The unique index plus conflict handling
// keeps concurrent discovery from creating duplicates.
func (s *GormStore) UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "git_token_id"}, {Name: "owner"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(repo)
	if result.Error != nil {
		return nil, &PersistenceError{Op: "upsert repository", Err: result.Error}
	}

	if result.RowsAffected == 0 {
		existing, err := s.FindRepository(ctx, repo.GitTokenID, repo.Owner, repo.Name)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, &PersistenceError{Op: "upsert repository", Err: gorm.ErrRecordNotFound}
		}
		return existing, nil
	}

	return repo, nil
}

func (s *GormStore) SetRepositoryWebhook(ctx context.Context, repoID uint, hookID int64) error {
	if err := s.db.WithContext(ctx).Model(&models.Repository{}).Where("id = ?", repoID).
		Update("webhook_id", hookID).Error; err != nil {
		return &PersistenceError{Op: "set repository webhook", Err: err}
	}
	return nil
}

func (s *GormStore) SetRepositoryActive(ctx context.Context, repoID uint, active bool) error {
	if err := s.db.WithContext(ctx).Model(&models.Repository{}).Where("id = ?", repoID).
		Update("is_active", active).Error; err != nil {
		return &PersistenceError{Op: "set repository active", Err: err}
	}
	return nil
}

func (s *GormStore) UpdateLastFetchedAt(ctx context.Context, repoID uint) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Repository{}).Where("id = ?", repoID).
		Update("last_fetched_at", &now).Error; err != nil {
		return &PersistenceError{Op: "update last fetched", Err: err}
	}
	return nil
}

func (s *GormStore) ListRepositories(ctx context.Context, tokenID uint) ([]models.Repository, error) {
	var repos []models.Repository
	q := s.db.WithContext(ctx).Order("owner, name")
	if tokenID != 0 {
		q = q.Where("git_token_id = ?", tokenID)
	}
	if err := q.Find(&repos).Error; err != nil {
		return nil, &PersistenceError{Op: "list repositories", Err: err}
	}
	return repos, nil
}

func (s *GormStore) ListCommits(ctx context.Context, repoID uint, page, pageSize int) ([]models.Commit, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	base := s.db.WithContext(ctx).Model(&models.Commit{}).Where("repository_id = ?", repoID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, &PersistenceError{Op: "count commits", Err: err}
	}

	var commits []models.Commit
	err := s.db.WithContext(ctx).
		Preload("Files").
		Where("repository_id = ?", repoID).
		Order("date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&commits).Error
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list commits", Err: err}
	}
	return commits, total, nil
}

func (s *GormStore) ExistsCommit(ctx context.Context, repoID uint, sha string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Commit{}).
		Where("repository_id = ? AND sha = ?", repoID, sha).
		Count(&count).Error; err != nil {
		return false, &PersistenceError{Op: "exists commit", Err: err}
	}
	return count > 0, nil
}

// UpsertCommit writes the commit and its files in one transaction. On a
// (repository, sha) conflict the existing row wins: its scored fields are
// never recomputed and no files are written.
func (s *GormStore) UpsertCommit(ctx context.Context, commit *models.Commit) (uint, bool, error) {
	files := commit.Files
	commit.Files = nil

	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repository_id"}, {Name: "sha"}},
			DoNothing: true,
		}).Create(commit)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var existing models.Commit
			if err := tx.Where("repository_id = ? AND sha = ?", commit.RepositoryID, commit.Sha).
				First(&existing).Error; err != nil {
				return err
			}
			commit.ID = existing.ID
			return nil
		}

		created = true
		for i := range files {
			files[i].CommitID = commit.ID
		}
		if len(files) > 0 {
			if err := tx.Create(&files).Error; err != nil {
				return err
			}
		}
		return nil
	})
	commit.Files = files

	if err != nil {
		return 0, false, &PersistenceError{Op: "upsert commit", Err: err}
	}
	return commit.ID, created, nil
}
