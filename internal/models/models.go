package models

import "time"

// User represents an account within StudyShare.
type User struct {
	ID                    string
	Username              string
	Email                 string
	PasswordHash          string
	IsVerified            bool
	IsAdmin               bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	Friends               []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasFriend reports whether id is present in the user's friend list.
func (u User) HasFriend(id string) bool {
	for _, friendID := range u.Friends {
		if friendID == id {
			return true
		}
	}
	return false
}

// CanLogIn reports whether the account may establish a session.
func (u User) CanLogIn() bool {
	return u.IsVerified || u.IsAdmin
}

// Profile is the public subset of a user shown to other users.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileOf extracts the public profile of a user.
func ProfileOf(u User) Profile {
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Material is an uploaded artifact owned by a single user.
type Material struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MaterialView joins a material with its owner's public fields.
type MaterialView struct {
	Material
	OwnerUsername string `json:"ownerUsername"`
}

// Dashboard partitions the materials visible to a user.
type Dashboard struct {
	User             Profile        `json:"user"`
	Friends          []Profile      `json:"friends"`
	YourMaterials    []MaterialView `json:"yourMaterials"`
	FriendsMaterials []MaterialView `json:"friendsMaterials"`
}
