// Package model defines the data structures shared by the API server layers.
package model

import "time"

// User is a registered account.
//
// Accounts are created either by username/password registration or by the
// first "Sign in with GitHub". GitHubLogin is empty for password-only accounts
// and PasswordHash is empty for GitHub-only accounts; an empty hash never
// verifies, so such accounts cannot log in with a password.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	LinkedinURL  string    `json:"linkedin_url"`
	GithubURL    string    `json:"github_url"`
	PhotoURL     string    `json:"photo_url"`
	GitHubLogin  string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile holds the user-editable fields of a User.
type Profile struct {
	Bio         string `json:"bio"`
	LinkedinURL string `json:"linkedin_url"`
	GithubURL   string `json:"github_url"`
	PhotoURL    string `json:"photo_url"`
}

// ApplyProfile copies p onto u.
func (u *User) ApplyProfile(p Profile) {
	u.Bio = p.Bio
	u.LinkedinURL = p.LinkedinURL
	u.GithubURL = p.GithubURL
	u.PhotoURL = p.PhotoURL
}
