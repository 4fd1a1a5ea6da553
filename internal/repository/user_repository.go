package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/models"
)

// UserRepository persists B2B accounts.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection("users")}
}

// Create inserts a new account. Duplicate emails are rejected.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user.ID = primitive.NewObjectID()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("an account with this email already exists")
	}
	return err
}

// FindByID fetches one account by hex id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validation("invalid user id", map[string]string{"user": id})
	}

	var user models.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches one account by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// FindAll lists accounts for the admin back office, newest first.
func (r *UserRepository) FindAll(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetApproved flips the approval flag that gates order placement.
func (r *UserRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.patch(ctx, id, bson.M{"approved": approved})
}

// SetRole changes an account's role.
func (r *UserRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.patch(ctx, id, bson.M{"role": role})
}

// UpdateProfile applies a self-service patch to the account's contact
// fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error {
	patch := bson.M{}
	if update.CompanyName != nil {
		patch["company_name"] = *update.CompanyName
	}
	if update.ContactName != nil {
		patch["contact_name"] = *update.ContactName
	}
	if update.Phone != nil {
		patch["phone"] = *update.Phone
	}
	if update.Address != nil {
		patch["address"] = *update.Address
	}
	if len(patch) == 0 {
		return apperr.Validation("no updatable fields provided", nil)
	}
	return r.patch(ctx, id, patch)
}

// SetPasswordHash replaces the stored credential hash.
func (r *UserRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.patch(ctx, id, bson.M{"password_hash": hash})
}

func (r *UserRepository) patch(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validation("invalid user id", map[string]string{"user": id})
	}

	update["updated_at"] = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
