// Package mongostore persists posts and users in MongoDB.
//
// Per-post atomicity uses optimistic concurrency: every document carries a
// version, and a mutation only replaces the document it read. A replace that
// matches nothing means another writer got there first and surfaces as
// models.ErrConflict; the engine then retries from a fresh read.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"piazza/models"
	"piazza/store"
)

const (
	postsCollection = "posts"
	usersCollection = "users"
)

type Store struct {
	posts *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		posts: db.Collection(postsCollection),
		users: db.Collection(usersCollection),
	}
}

var (
	_ store.PostStore = (*Store)(nil)
	_ store.UserStore = (*Store)(nil)
)

// EnsureIndexes creates the query and uniqueness indexes. Safe to call on
// every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}

	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "topic", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "topic", Value: 1}, {Key: "expiresAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}

	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, post *models.Post) (string, error) {
	doc := toPostDocument(post)
	doc.ID = primitive.NewObjectID()
	doc.Version = 1

	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Post, error) {
	doc, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Store) ListByTopic(ctx context.Context, topic models.Topic, filter store.StatusFilter, now time.Time) ([]*models.Post, error) {
	query := bson.M{"topic": string(topic)}
	switch filter {
	case store.FilterLive:
		query["expiresAt"] = bson.M{"$gt": now}
	case store.FilterExpired:
		query["expiresAt"] = bson.M{"$lte": now}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.posts.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]*models.Post, len(docs))
	for i, d := range docs {
		posts[i] = d.toModel()
	}
	return posts, nil
}

func (s *Store) ApplyMutation(ctx context.Context, id string, fn store.MutationFunc) (*models.Post, error) {
	doc, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}

	post := doc.toModel()
	if err := fn(post); err != nil {
		return nil, err
	}

	next := toPostDocument(post)
	next.ID = doc.ID
	next.Version = doc.Version + 1

	res, err := s.posts.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": doc.Version}, next)
	if err != nil {
		return nil, fmt.Errorf("replace post: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, models.ErrConflict
	}
	return next.toModel(), nil
}

func (s *Store) ListStaleLive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.posts.Find(ctx, bson.M{
		"status":    string(models.StatusLive),
		"expiresAt": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("find stale posts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode stale posts: %w", err)
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID.Hex()
	}
	return ids, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (string, error) {
	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Email:        strings.ToLower(user.Email),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", models.ErrUserExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) findPost(ctx context.Context, id string) (*postDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var doc postDocument
	err = s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &doc, nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}
