package models

import "time"

// Media is a cached image stored in object storage, keyed by content hash
type Media struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Mime      string    `json:"mime"`
	Hash      string    `json:"hash"`
	URL       string    `json:"url"`
	Hits      int       `json:"hits"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaResolution is a resized rendering of a Media, hit-counted on its own
type MediaResolution struct {
	ID     int    `json:"id"`
	Hash   string `json:"hash"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Hits   int    `json:"hits"`
}

// AllowedImageMimes are the content types accepted for asset images
var AllowedImageMimes = []string{"image/png", "image/svg+xml", "image/jpeg", "image/gif", "image/jpg"}
