package models

import "time"

// Comment is a reply by a user to a post
type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	PostID   uint      `gorm:"not null;index"`
	Post     Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"not null;index"`
}

// CommentRequest defines the body for creating or fully updating a comment. The web form binds the same field.
type CommentRequest struct {
	Text string `json:"text" form:"text" validate:"required"`
}

// CommentResponse is the API representation of a comment
type CommentResponse struct {
	ID      uint      `json:"id"`
	Post    uint      `json:"post"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
}

func (c Comment) ToResponse() CommentResponse {
	return CommentResponse{
		ID:      c.ID,
		Post:    c.PostID,
		Author:  c.Author.Username,
		Text:    c.Text,
		PubDate: c.PubDate,
	}
}
