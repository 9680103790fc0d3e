package models

// AssetTechnology is a technology tag, optionally nested under a parent tag
type AssetTechnology struct {
	ID          int        `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Lang        string     `json:"lang"`
	Visibility  Visibility `json:"visibility"`
	ParentID    *int       `json:"parent_id"`
}

// TechnologyFilter holds list filters; zero values are ignored
type TechnologyFilter struct {
	Lang            string
	Visibility      Visibility
	ParentIDs       []int
	Like            string
	IncludeChildren bool
}

// UpdateTechnologyRequest is the body of PUT /academy/technology/{slug}
type UpdateTechnologyRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Visibility  *Visibility `json:"visibility"`
	ParentSlug  *string     `json:"parent"`
}
