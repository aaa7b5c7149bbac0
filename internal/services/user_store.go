package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const usersCollection = "users"

// SearchMode selects which skill list a search matches.
type SearchMode string

const (
	SearchAll   SearchMode = ""
	SearchTeach SearchMode = "teach"
	SearchLearn SearchMode = "learn"
)

// UserFilter narrows a user listing.
type UserFilter struct {
	Query string
	Mode  SearchMode
	Limit int64
}

// UserStore persists users in MongoDB.
type UserStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(usersCollection), now: time.Now}
}

// EnsureIndexes creates the unique email and provider id indexes.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().SetName("idx_provider_id").SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetName("idx_google_id").SetSparse(true),
		},
	})
	return err
}

// FindByID looks a user up by durable id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// FindByProviderID matches the provider id or the legacy google id.
func (s *UserStore) FindByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"provider_id": providerID},
		bson.M{"google_id": providerID},
	}})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts user and fills in its id and timestamps.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.TeachSkills == nil {
		user.TeachSkills = []string{}
	}
	if user.LearnSkills == nil {
		user.LearnSkills = []string{}
	}
	if user.Reviews == nil {
		user.Reviews = []string{}
	}

	res, err := s.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: email or provider id already registered", ErrConflict)
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

// UpdateFields sets fields on the user and returns the updated document.
func (s *UserStore) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("%w: email or provider id already in use", ErrConflict)
		}
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by name. Query matches the name or a skill,
// case-insensitively.
func (s *UserStore) List(ctx context.Context, f UserFilter) ([]*models.User, error) {
	filter := bson.M{}
	if f.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		var or bson.A
		switch f.Mode {
		case SearchTeach:
			or = bson.A{bson.M{"teach_skills": pattern}}
		case SearchLearn:
			or = bson.A{bson.M{"learn_skills": pattern}}
		default:
			or = bson.A{
				bson.M{"name": pattern},
				bson.M{"teach_skills": pattern},
				bson.M{"learn_skills": pattern},
			}
		}
		filter["$or"] = or
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(limit)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []*models.User{}
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, cur.Err()
}
