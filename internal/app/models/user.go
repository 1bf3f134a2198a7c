package models

import (
	"time"
)

// Profile defaults applied when a user signs up without them.
const (
	DefaultCourse         = "Btech"
	DefaultCollege        = "University of Lucknow"
	DefaultProfilePicture = "/profile-pics/13848365.jpg"
)

// User defines the user model based on the 'users' table
type User struct {
	ID             int64     `json:"id" db:"id" example:"1"`
	Name           string    `json:"name" db:"name" example:"Aditi Sharma"`
	Email          string    `json:"email" db:"email" example:"aditi@example.com"`
	Password       string    `json:"-" db:"password"`
	ProfilePicture *string   `json:"profilePicture" db:"profile_picture" example:"/profile-pics/13848365.jpg"`
	Course         string    `json:"course" db:"course" example:"Btech"`
	Branch         string    `json:"branch" db:"branch" example:"CSE"`
	Year           *int      `json:"year,omitempty" db:"year" example:"2"`
	Semester       *int      `json:"semester,omitempty" db:"semester" example:"3"`
	College        string    `json:"college" db:"college" example:"University of Lucknow"`
	Role           RoleType  `json:"role" db:"role" example:"user"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// UserStats aggregates the activity lists derived from the join tables.
type UserStats struct {
	Uploads   int64 `json:"uploads"`
	Downloads int64 `json:"downloads"`
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
	Comments  int64 `json:"comments"`
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// Contributor is one row of the contributors leaderboard.
type Contributor struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
	Branch         string  `json:"branch"`
	College        string  `json:"college"`
	Uploads        int64   `json:"uploads"`
	Followers      int64   `json:"followers"`
	UpvotesEarned  int64   `json:"upvotesEarned"`
}

// UserSummary is the compact representation used in follower lists and admin search.
type UserSummary struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	ProfilePicture *string   `json:"profilePicture"`
	Course         string    `json:"course"`
	Branch         string    `json:"branch"`
	Year           *int      `json:"year,omitempty"`
	College        string    `json:"college"`
	Role           RoleType  `json:"role"`
	Upvotes        int64     `json:"upvotes"`
	CreatedAt      time.Time `json:"createdAt"`
}
