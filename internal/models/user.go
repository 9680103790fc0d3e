package models

// User is the part of a platform user the registry reads
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GithubCredentials is a user's linked source-control account
type GithubCredentials struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"-"`
}
