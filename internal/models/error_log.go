package models

import "time"

// Error log categories
const (
	ErrorLogInvalidURL    = "invalid-url"
	ErrorLogReadmeSyntax  = "readme-syntax"
	ErrorLogEmptyReadme   = "empty-readme"
	ErrorLogInvalidConfig = "invalid-config"
)

// ErrorLogStatus tracks whether someone acted on a logged error
type ErrorLogStatus string

const (
	ErrorLogStatusError   ErrorLogStatus = "ERROR"
	ErrorLogStatusFixed   ErrorLogStatus = "FIXED"
	ErrorLogStatusIgnored ErrorLogStatus = "IGNORED"
)

// AssetErrorLog is an append-only record of a problem found on an asset
type AssetErrorLog struct {
	ID         int            `json:"id"`
	Slug       string         `json:"slug"`
	Path       string         `json:"path"`
	AssetID    *int           `json:"asset_id"`
	AssetType  AssetType      `json:"asset_type"`
	StatusText string         `json:"status_text"`
	Status     ErrorLogStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
