package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPost_StatusAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Post{CreatedAt: created, ExpiresAt: created.Add(time.Minute), Status: StatusLive}

	assert.Equal(t, StatusLive, p.StatusAt(created.Add(59*time.Second)))
	assert.Equal(t, StatusExpired, p.StatusAt(created.Add(time.Minute)))
	assert.Equal(t, StatusExpired, p.StatusAt(created.Add(time.Hour)))
}

func TestPost_Toggle(t *testing.T) {
	tests := []struct {
		name         string
		liked        []string
		disliked     []string
		reaction     Reaction
		want         Reaction
		wantLiked    []string
		wantDisliked []string
	}{
		{"like from none", nil, nil, ReactionLike, ReactionLike, []string{"u"}, nil},
		{"like again clears", []string{"u"}, nil, ReactionLike, ReactionNone, []string{}, nil},
		{"dislike moves from likes", []string{"x", "u"}, []string{"y"}, ReactionDislike, ReactionDislike, []string{"x"}, []string{"y", "u"}},
		{"dislike again clears", nil, []string{"u"}, ReactionDislike, ReactionNone, nil, []string{}},
		{"like moves from dislikes", nil, []string{"u"}, ReactionLike, ReactionLike, []string{"u"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{LikedBy: tt.liked, DislikedBy: tt.disliked}

			got := p.Toggle("u", tt.reaction)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, p.ReactionOf("u"))
			assert.ElementsMatch(t, tt.wantLiked, p.LikedBy)
			assert.ElementsMatch(t, tt.wantDisliked, p.DislikedBy)
		})
	}
}

func TestPost_CloneDoesNotAlias(t *testing.T) {
	p := &Post{LikedBy: []string{"a", "b"}, Comments: []Comment{{Text: "hi"}}}

	cp := p.Clone()
	cp.Toggle("a", ReactionLike)
	cp.Comments = append(cp.Comments, Comment{Text: "more"})

	assert.Equal(t, []string{"a", "b"}, p.LikedBy)
	assert.Len(t, p.Comments, 1)
	assert.NotNil(t, cp.DislikedBy)
}

func TestPost_ActivityScoreIgnoresComments(t *testing.T) {
	p := &Post{
		LikedBy:    []string{"a", "b"},
		DislikedBy: []string{"c"},
		Comments:   []Comment{{}, {}, {}},
	}

	assert.Equal(t, 3, p.ActivityScore())
}

func TestTaxonomy(t *testing.T) {
	def := NewTaxonomy()
	assert.Equal(t, DefaultTopics, def.Topics())
	assert.True(t, def.Contains(TopicSport))
	assert.False(t, def.Contains("sport"))

	custom := ParseTaxonomy(" Tech, Gardening,,Tech ")
	assert.Equal(t, []Topic{TopicTech, "Gardening"}, custom.Topics())
	assert.False(t, custom.Contains(TopicPolitics))

	assert.Equal(t, DefaultTopics, ParseTaxonomy(" , ").Topics())
}
