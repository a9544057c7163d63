package models

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Post is a text entry by an author, optionally filed under a group
type Post struct {
	ID       uint      `gorm:"primaryKey"`
	Text     string    `gorm:"type:text;not null"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID  *uint     `gorm:"index"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image    string    `gorm:"size:255"`
	PubDate  time.Time `gorm:"not null;index"`
}

// String renders the post as `author (dd/mm/YYYY HH:MM): "snippet"`
func (p Post) String() string {
	snippet := p.Text
	if utf8.RuneCountInString(snippet) > 50 {
		snippet = string([]rune(snippet)[:47]) + "..."
	}
	return fmt.Sprintf("%s (%s): %q", p.Author.Username, p.PubDate.Format("02/01/2006 15:04"), snippet)
}

// PostForm is the HTML form bound on create and edit
type PostForm struct {
	Text  string `form:"text" validate:"required"`
	Group string `form:"group" validate:"omitempty,numeric"`
}

// PostRequest is the JSON body of create, update and partial update through the API.
// Absent fields are left untouched on update.
type PostRequest struct {
	Text  *string    `json:"text" validate:"omitempty,min=1"`
	Group NullableID `json:"group"`
}

// NullableID tells an absent JSON field apart from an explicit null
type NullableID struct {
	Set   bool
	Value *uint
}

func (n *NullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("group must be a primary key or null: %w", err)
	}
	n.Value = &v
	return nil
}

// PostResponse is the API representation of a post
type PostResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Group   *uint     `json:"group"`
	Image   *string   `json:"image"`
	PubDate time.Time `json:"pub_date"`
}

// ToResponse flattens the author to its username
func (p Post) ToResponse() PostResponse {
	res := PostResponse{
		ID:      p.ID,
		Text:    p.Text,
		Author:  p.Author.Username,
		Group:   p.GroupID,
		PubDate: p.PubDate,
	}
	if p.Image != "" {
		image := p.Image
		res.Image = &image
	}
	return res
}
