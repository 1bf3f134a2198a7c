package models

// Course is an entry of the static course taxonomy.
type Course struct {
	ID       int64    `json:"id" db:"id"`
	Name     string   `json:"name" db:"name"`
	Branches []string `json:"branches" db:"branches"`
	Subjects []string `json:"subjects" db:"subjects"`
}
