package models

// Follow is a directed subscription of User to Author.
// The pair is unique and a user may not follow themselves; both rules live in the schema.
type Follow struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"-" gorm:"not null;index;uniqueIndex:idx_follow_user_author;check:chk_follow_not_self,user_id <> author_id"`
	User     User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AuthorID uint `json:"-" gorm:"not null;index;uniqueIndex:idx_follow_user_author"`
	Author   User `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// CreateFollowRequest defines the request body for following an author by username
type CreateFollowRequest struct {
	Following string `json:"following" validate:"required"`
}

// FollowResponse is the API representation of a follow
type FollowResponse struct {
	User      string `json:"user"`
	Following string `json:"following"`
}

func (f Follow) ToResponse() FollowResponse {
	return FollowResponse{User: f.User.Username, Following: f.Author.Username}
}
