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

const roomCollection = "chat_rooms"

// RoomRepository stores chat rooms in MongoDB. The unique index on
// (entity_kind, entity_id) is the exactly-once guard for room creation:
// whichever provision attempt inserts first owns the room forever.
type RoomRepository struct {
	collection *mongo.Collection
}

var _ ports.RoomRepository = (*RoomRepository)(nil)

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{collection: db.Collection(roomCollection)}
}

func (r *RoomRepository) FindByEntity(ctx context.Context, kind domain.EntityKind, entityID string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.collection.FindOne(ctx, bson.M{"entity_kind": kind, "entity_id": entityID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	_, err := r.collection.InsertOne(ctx, room)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomExists
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}
