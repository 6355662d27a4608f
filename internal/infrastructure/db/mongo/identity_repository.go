package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
)

const identityCollection = "chat_identities"

// IdentityRepository stores chat identities in MongoDB. The unique index on
// user_id is what makes concurrent provisioning safe: the loser of a race
// gets domain.ErrIdentityExists and reads back the winner's row.
type IdentityRepository struct {
	collection *mongo.Collection
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)

func NewIdentityRepository(db *mongo.Database) *IdentityRepository {
	return &IdentityRepository{collection: db.Collection(identityCollection)}
}

func (r *IdentityRepository) FindByUserID(ctx context.Context, userID string) (*domain.ChatIdentity, error) {
	var identity domain.ChatIdentity
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&identity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &identity, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.ChatIdentity) error {
	_, err := r.collection.InsertOne(ctx, identity)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}
