package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostString(t *testing.T) {
	p := Post{
		Text:    strings.Repeat("x", 60),
		Author:  User{Username: "leo"},
		PubDate: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC),
	}
	assert.Equal(t, `leo (09/03/2024 14:05): "`+strings.Repeat("x", 47)+`..."`, p.String())

	p.Text = "short"
	assert.Equal(t, `leo (09/03/2024 14:05): "short"`, p.String())
}

func TestPostRequestGroupField(t *testing.T) {
	var absent, null, set PostRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":"a"}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"group":null}`), &null))
	require.NoError(t, json.Unmarshal([]byte(`{"group":3}`), &set))

	assert.False(t, absent.Group.Set)
	assert.True(t, null.Group.Set)
	assert.Nil(t, null.Group.Value)
	require.NotNil(t, set.Group.Value)
	assert.Equal(t, uint(3), *set.Group.Value)

	var bad PostRequest
	assert.Error(t, json.Unmarshal([]byte(`{"group":"cats"}`), &bad))
}
