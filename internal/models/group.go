package models

// Group is a named category a post may optionally belong to. Groups are seeded, not created by users.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Slug        string `json:"slug" gorm:"size:30;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
}

// SeedGroup is the shape of a group in a seed file
type SeedGroup struct {
	Title       string `yaml:"title" validate:"required,max=200"`
	Slug        string `yaml:"slug" validate:"required,max=30,slug"`
	Description string `yaml:"description"`
}
