package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// AssetType is the kind of educational content an asset holds
type AssetType string

const (
	AssetTypeLesson   AssetType = "LESSON"
	AssetTypeArticle  AssetType = "ARTICLE"
	AssetTypeExercise AssetType = "EXERCISE"
	AssetTypeProject  AssetType = "PROJECT"
	AssetTypeQuiz     AssetType = "QUIZ"
)

// IsValid reports whether t is a known asset type
func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeLesson, AssetTypeArticle, AssetTypeExercise, AssetTypeProject, AssetTypeQuiz:
		return true
	}
	return false
}

// IsMarkdown reports whether the asset's source of truth is a single markdown file
func (t AssetType) IsMarkdown() bool {
	return t == AssetTypeLesson || t == AssetTypeArticle
}

// AssetStatus is the editorial lifecycle status
type AssetStatus string

const (
	AssetStatusUnassigned AssetStatus = "UNASSIGNED"
	AssetStatusWriting    AssetStatus = "WRITING"
	AssetStatusDraft      AssetStatus = "DRAFT"
	AssetStatusPublished  AssetStatus = "PUBLISHED"
	AssetStatusDeleted    AssetStatus = "DELETED"
)

// Visibility controls who can list an asset or technology
type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityUnlisted Visibility = "UNLISTED"
	VisibilityPrivate  Visibility = "PRIVATE"
)

// SyncStatus is the outcome of the most recent pull or push
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusOK      SyncStatus = "OK"
	SyncStatusError   SyncStatus = "ERROR"
)

// CheckStatus is shared by test_status and cleaning_status
type CheckStatus string

const (
	CheckStatusPending CheckStatus = "PENDING"
	CheckStatusOK      CheckStatus = "OK"
	CheckStatusWarning CheckStatus = "WARNING"
	CheckStatusError   CheckStatus = "ERROR"
)

// Asset is a unit of educational content synchronized with a source repository
type Asset struct {
	ID                    int             `json:"id"`
	Slug                  string          `json:"slug"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	AssetType             AssetType       `json:"asset_type"`
	Status                AssetStatus     `json:"status"`
	Visibility            Visibility      `json:"visibility"`
	Lang                  string          `json:"lang"`
	URL                   string          `json:"url"`
	ReadmeURL             string          `json:"readme_url"`
	Readme                string          `json:"-"`
	ReadmeRaw             string          `json:"-"`
	HTML                  string          `json:"-"`
	Config                json.RawMessage `json:"config,omitempty"`
	External              bool            `json:"external"`
	Interactive           bool            `json:"interactive"`
	Graded                bool            `json:"graded"`
	Gitpod                bool            `json:"gitpod"`
	WithVideo             bool            `json:"with_video"`
	WithSolutions         bool            `json:"with_solutions"`
	SolutionVideoURL      string          `json:"solution_video_url"`
	Solution              string          `json:"solution"`
	Preview               string          `json:"preview"`
	Duration              *int            `json:"duration"`
	Difficulty            string          `json:"difficulty"`
	DeliveryInstructions  string          `json:"delivery_instructions"`
	DeliveryFormats       string          `json:"delivery_formats"`
	DeliveryRegexURL      string          `json:"delivery_regex_url"`
	AuthorsUsername       string          `json:"authors_username"`
	OwnerID               *int            `json:"owner_id"`
	AuthorID              *int            `json:"author_id"`
	SyncStatus            *SyncStatus     `json:"sync_status"`
	StatusText            string          `json:"status_text"`
	LastSynchAt           *time.Time      `json:"last_synch_at"`
	TestStatus            CheckStatus     `json:"test_status"`
	LastTestAt            *time.Time      `json:"last_test_at"`
	CleaningStatus        CheckStatus     `json:"cleaning_status"`
	CleaningStatusDetails string          `json:"cleaning_status_details"`
	LastCleaningAt        *time.Time      `json:"last_cleaning_at"`
	Technologies          []string        `json:"technologies"`
	// StagedTechnologyIDs holds links resolved by a sync that are written
	// only once the asset row itself is saved
	StagedTechnologyIDs   []int           `json:"-"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// SetSyncStatus records a sync outcome and its human-readable message
func (a *Asset) SetSyncStatus(status SyncStatus, text string) {
	a.SyncStatus = &status
	a.StatusText = text
}

// CurrentSyncStatus returns the sync status or "" when the asset was never synced
func (a *Asset) CurrentSyncStatus() SyncStatus {
	if a.SyncStatus == nil {
		return ""
	}
	return *a.SyncStatus
}

// DecodedReadme returns the cleaned readme as text
func (a *Asset) DecodedReadme() (string, error) {
	return decodeBase64(a.Readme)
}

// DecodedReadmeRaw returns the readme as fetched from the source repository
func (a *Asset) DecodedReadmeRaw() (string, error) {
	return decodeBase64(a.ReadmeRaw)
}

// SetReadme stores cleaned readme text
func (a *Asset) SetReadme(text string) {
	a.Readme = base64.StdEncoding.EncodeToString([]byte(text))
}

// SetReadmeRaw stores readme text exactly as fetched
func (a *Asset) SetReadmeRaw(text string) {
	a.ReadmeRaw = base64.StdEncoding.EncodeToString([]byte(text))
}

// ThumbnailSlug is the Media slug under which the asset's preview image is cached
func (a *Asset) ThumbnailSlug() string {
	return a.Slug + "-thumbnail"
}

func decodeBase64(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("failed to decode readme: %w", err)
	}
	return string(b), nil
}

// AssetFilter holds list filters; zero values are ignored
type AssetFilter struct {
	AssetType    AssetType
	Lang         string
	Status       AssetStatus
	Visibility   Visibility
	SyncStatus   SyncStatus
	Technologies []string
	Like         string
	External     *bool
	Page         int
	Count        int
}

// CreateAssetRequest is the body of POST /academy/asset
type CreateAssetRequest struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title" validate:"notblank"`
	Description string    `json:"description"`
	AssetType   AssetType `json:"asset_type" validate:"required"`
	Lang        string    `json:"lang" validate:"required"`
	URL         string    `json:"url" validate:"omitempty,url"`
	ReadmeURL   string    `json:"readme_url" validate:"omitempty,url"`
	External    bool      `json:"external"`
	OwnerID     *int      `json:"owner_id"`
}

// AssetActionRequest is the optional body of PUT /academy/asset/{slug}/action/{action}
type AssetActionRequest struct {
	OverrideMeta bool `json:"override_meta"`
}

// AssetAction is an operation staff can trigger on an asset
type AssetAction string

const (
	AssetActionTest  AssetAction = "test"
	AssetActionSync  AssetAction = "sync"
	AssetActionPush  AssetAction = "push"
	AssetActionClean AssetAction = "clean"
)

// IsValid reports whether a is a known action
func (a AssetAction) IsValid() bool {
	switch a {
	case AssetActionTest, AssetActionSync, AssetActionPush, AssetActionClean:
		return true
	}
	return false
}
