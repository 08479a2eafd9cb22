// internal/model/models.go
package model

import (
	"database/sql"
	"time"
)

// User is an account provisioned from the external identity provider.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GitHubToken holds the OAuth access token granted to a user. One row per
// user; re-authorizing replaces it in place.
type GitHubToken struct {
	ID          int64
	UserID      int64
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresAt   sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository is a connected GitHub repository owned by a user.
type Repository struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"-"`
	GithubRepoID  int64        `json:"githubRepoId"`
	Name          string       `json:"name"`
	FullName      string       `json:"fullName"`
	Owner         string       `json:"owner"`
	URL           string       `json:"url"`
	DefaultBranch string       `json:"defaultBranch"`
	Language      *string      `json:"language,omitempty"`
	IsActive      bool         `json:"isActive"`
	IsPrivate     bool         `json:"isPrivate"`
	WebhookID     *int64       `json:"webhookId,omitempty"`
	LastSyncedAt  sql.NullTime `json:"-"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// RepositoryWithStats augments a repository with counts computed per request.
type RepositoryWithStats struct {
	Repository
	TotalCommits int64 `json:"totalCommits"`
	NewCommits   int64 `json:"newCommits"`
}

// Commit is a stored commit belonging to one repository. Processed marks
// whether content generation has consumed it.
type Commit struct {
	ID           int64     `json:"id"`
	RepositoryID int64     `json:"repositoryId"`
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	AuthorName   string    `json:"authorName"`
	AuthorEmail  string    `json:"authorEmail"`
	CommittedAt  time.Time `json:"committedAt"`
	FilesChanged int       `json:"filesChanged"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	URL          string    `json:"url"`
	Branch       string    `json:"branch"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CommitStats aggregates commit counters for one repository.
type CommitStats struct {
	Total          int64 `json:"total"`
	Processed      int64 `json:"processed"`
	Unprocessed    int64 `json:"unprocessed"`
	TotalAdditions int64 `json:"totalAdditions"`
	TotalDeletions int64 `json:"totalDeletions"`
	TotalFiles     int64 `json:"totalFiles"`
}

// Template is a reusable content-generation structure.
type Template struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Category    string    `json:"category"`
	Structure   string    `json:"structure"`
	IsDefault   bool      `json:"isDefault"`
	IsActive    bool      `json:"isActive"`
	UsageCount  int       `json:"usageCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToneSettings is the nested settings document of a tone preset, stored as
// JSONB.
type ToneSettings struct {
	Formality      string   `json:"formality"`
	TechnicalDepth string   `json:"technicalDepth"`
	Personality    []string `json:"personality"`
	TargetAudience *string  `json:"targetAudience,omitempty"`
	ExamplePhrases []string `json:"examplePhrases,omitempty"`
}

// TonePreset is a reusable tone-of-voice configuration.
type TonePreset struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"-"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Settings    ToneSettings `json:"settings"`
	IsDefault   bool         `json:"isDefault"`
	IsActive    bool         `json:"isActive"`
	UsageCount  int          `json:"usageCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// RemoteRepository is a repository as returned by the GitHub API, before it
// is connected.
type RemoteRepository struct {
	GithubRepoID  int64
	Name          string
	FullName      string
	Owner         string
	URL           string
	DefaultBranch string
	Language      *string
	Description   *string
	IsPrivate     bool
	Stars         int
	Forks         int
	UpdatedAt     time.Time
	PushedAt      time.Time
}

// RemoteCommit is a commit as returned by the GitHub API. Stats and file
// counts are only populated by the detail endpoint.
type RemoteCommit struct {
	SHA          string
	Message      string
	AuthorName   string
	AuthorEmail  string
	CommittedAt  time.Time
	FilesChanged int
	Additions    int
	Deletions    int
	URL          string
}
