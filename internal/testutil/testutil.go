// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain password of every user made by CreateUser
const Password = "correct-horse-battery"

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// NewDB opens a private in-memory SQLite database with the schema migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := config.OpenSQL("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user whose password is Password
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: passwordHash}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateGroup inserts a group
func CreateGroup(t *testing.T, db *gorm.DB, title, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: title, Slug: slug}
	require.NoError(t, db.Create(group).Error)
	return group
}

// CreatePost inserts a post with an explicit publication date
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, text string, pubDate time.Time) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: author.ID, Text: text, PubDate: pubDate}
	require.NoError(t, db.Omit("Author", "Group").Create(post).Error)
	return post
}

// CreatePosts inserts n posts by author, one minute apart, the last one newest
func CreatePosts(t *testing.T, db *gorm.DB, author *models.User, n int) []*models.Post {
	t.Helper()
	start := time.Now().Add(-time.Duration(n) * time.Minute)
	posts := make([]*models.Post, n)
	for i := range posts {
		posts[i] = CreatePost(t, db, author, "post number "+strconv.Itoa(i+1), start.Add(time.Duration(i)*time.Minute))
	}
	return posts
}

// CountPosts counts every post row
func CountPosts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.WithContext(context.Background()).Model(&models.Post{}).Count(&n).Error)
	return n
}
