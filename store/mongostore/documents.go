package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"piazza/models"
)

// Documents mirror the domain models with bson tags so the models package
// stays free of storage concerns.

type postDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	Topic      string             `bson:"topic"`
	AuthorID   string             `bson:"authorId"`
	AuthorName string             `bson:"authorName"`
	CreatedAt  time.Time          `bson:"createdAt"`
	ExpiresAt  time.Time          `bson:"expiresAt"`
	Status     string             `bson:"status"`
	LikedBy    []string           `bson:"likedBy"`
	DislikedBy []string           `bson:"dislikedBy"`
	Comments   []commentDocument  `bson:"comments"`
	Version    int64              `bson:"version"`
}

type commentDocument struct {
	AuthorID   string    `bson:"authorId"`
	AuthorName string    `bson:"authorName"`
	Text       string    `bson:"text"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func toPostDocument(p *models.Post) postDocument {
	comments := make([]commentDocument, len(p.Comments))
	for i, c := range p.Comments {
		comments[i] = commentDocument{
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Text:       c.Text,
			CreatedAt:  c.CreatedAt,
		}
	}
	return postDocument{
		Title:      p.Title,
		Content:    p.Content,
		Topic:      string(p.Topic),
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
		Status:     string(p.Status),
		LikedBy:    nonNil(p.LikedBy),
		DislikedBy: nonNil(p.DislikedBy),
		Comments:   comments,
		Version:    p.Version,
	}
}

func (d postDocument) toModel() *models.Post {
	comments := make([]models.Comment, len(d.Comments))
	for i, c := range d.Comments {
		comments[i] = models.Comment{
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Text:       c.Text,
			CreatedAt:  c.CreatedAt,
		}
	}
	return &models.Post{
		ID:         d.ID.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		Topic:      models.Topic(d.Topic),
		AuthorID:   d.AuthorID,
		AuthorName: d.AuthorName,
		CreatedAt:  d.CreatedAt,
		ExpiresAt:  d.ExpiresAt,
		Status:     models.PostStatus(d.Status),
		LikedBy:    nonNil(d.LikedBy),
		DislikedBy: nonNil(d.DislikedBy),
		Comments:   comments,
		Version:    d.Version,
	}
}

func (d userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
