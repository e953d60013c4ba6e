package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piazza/models"
)

// Mirrors of the max= tags, so boundary cases fail when a tag changes.
const (
	titleMaxLen   = 200
	contentMaxLen = 2000
	commentMaxLen = 500
)

func newValidator() *Validator {
	return New(models.NewTaxonomy())
}

func TestCheck_ValidPost(t *testing.T) {
	v := newValidator()
	d := 90 * time.Second

	assert.Nil(t, v.Check(PostInput{Title: "t", Content: "c", Topic: models.TopicTech}))
	assert.Nil(t, v.Check(PostInput{Title: "t", Content: "c", Topic: models.TopicSport, Expiration: &d}))
}

func TestCheck_PostLimits(t *testing.T) {
	v := newValidator()
	zero := time.Duration(0)
	negative := -time.Minute

	tests := []struct {
		name  string
		input PostInput
		field string
		rule  string
	}{
		{"empty title", PostInput{Content: "c", Topic: models.TopicTech}, "title", "required"},
		{"long title", PostInput{Title: strings.Repeat("a", titleMaxLen+1), Content: "c", Topic: models.TopicTech}, "title", "max"},
		{"empty content", PostInput{Title: "t", Topic: models.TopicTech}, "content", "required"},
		{"long content", PostInput{Title: "t", Content: strings.Repeat("a", contentMaxLen+1), Topic: models.TopicTech}, "content", "max"},
		{"unknown topic", PostInput{Title: "t", Content: "c", Topic: "Cooking"}, "topic", "topic"},
		{"missing topic", PostInput{Title: "t", Content: "c"}, "topic", "required"},
		{"zero expiration", PostInput{Title: "t", Content: "c", Topic: models.TopicTech, Expiration: &zero}, "expiration", "gt"},
		{"negative expiration", PostInput{Title: "t", Content: "c", Topic: models.TopicTech, Expiration: &negative}, "expiration", "gt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := v.Check(tt.input)
			require.Len(t, violations, 1)
			assert.Equal(t, tt.field, violations[0].Field)
			assert.Equal(t, tt.rule, violations[0].Rule)
			assert.NotEmpty(t, violations[0].Message)
		})
	}
}

func TestCheck_LimitsCountCharactersNotBytes(t *testing.T) {
	v := newValidator()
	title := strings.Repeat("é", titleMaxLen)

	assert.Nil(t, v.Check(PostInput{Title: title, Content: "c", Topic: models.TopicHealth}))
}

func TestCheck_ReportsEveryViolation(t *testing.T) {
	v := newValidator()

	violations := v.Check(PostInput{Topic: "Nope"})

	fields := make([]string, 0, len(violations))
	for _, vi := range violations {
		fields = append(fields, vi.Field)
	}
	assert.ElementsMatch(t, []string{"title", "content", "topic"}, fields)
}

func TestCheck_Comment(t *testing.T) {
	v := newValidator()

	assert.Nil(t, v.Check(CommentInput{Text: strings.Repeat("x", commentMaxLen)}))
	require.Len(t, v.Check(CommentInput{Text: strings.Repeat("x", commentMaxLen+1)}), 1)
	require.Len(t, v.Check(CommentInput{}), 1)
}

func TestCheck_Signup(t *testing.T) {
	v := newValidator()

	assert.Nil(t, v.Check(SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}))

	violations := v.Check(SignupInput{Username: "al", Email: "not-an-email", Password: "123"})
	assert.Len(t, violations, 3)
}

func TestError_WrapsViolations(t *testing.T) {
	v := newValidator()

	err := v.Error(CommentInput{})

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "text", verr.Violations[0].Field)
	assert.Contains(t, err.Error(), "text is required")
	assert.NoError(t, v.Error(CommentInput{Text: "ok"}))
}

func TestTopic_ConfiguredTaxonomy(t *testing.T) {
	v := New(models.ParseTaxonomy("Tech, Gardening"))

	assert.NoError(t, v.Topic("Gardening"))
	assert.ErrorIs(t, v.Topic(models.TopicPolitics), models.ErrInvalidTopic)
	assert.Len(t, v.Check(PostInput{Title: "t", Content: "c", Topic: models.TopicSport}), 1)
}
