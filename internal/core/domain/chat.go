package domain

import (
	"errors"
	"time"
)

// EntityKind identifies which kind of owning record a chat room belongs to.
type EntityKind string

const (
	KindJob          EntityKind = "job"
	KindOrganization EntityKind = "organization"
)

// Valid reports whether the kind is one of the supported owning entity kinds.
func (k EntityKind) Valid() bool {
	return k == KindJob || k == KindOrganization
}

// ApplicationStatus represents the lifecycle state of a job application as
// reported by the owning domain service.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "applied"
	StatusReviewing ApplicationStatus = "reviewing"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// MembershipState is the target membership a status transition implies for a
// (room, user) pair.
type MembershipState string

const (
	MembershipMember    MembershipState = "member"
	MembershipNonMember MembershipState = "non-member"
)

// StatusTransition is a single observed application status change. It is
// derived from the current transition at the moment it occurs and never
// persisted; the previous status is supplied by the caller, not recomputed
// from snapshots.
type StatusTransition struct {
	Previous ApplicationStatus
	Current  ApplicationStatus
	// Deleted is true when the application record was destroyed; Current is
	// empty in that case.
	Deleted bool
}

// Grants reports whether the transition moves the applicant into the room.
func (t StatusTransition) Grants() bool {
	return !t.Deleted && t.Current == StatusAccepted && t.Previous != StatusAccepted
}

// Revokes reports whether the transition removes the applicant from the room.
// Deleting a record that was accepted revokes; deleting one that never was
// accepted has nothing to undo.
func (t StatusTransition) Revokes() bool {
	if t.Previous != StatusAccepted {
		return false
	}
	return t.Deleted || t.Current != StatusAccepted
}

// Desired returns the membership state the transition implies, and false when
// the transition implies no membership change at all.
func (t StatusTransition) Desired() (MembershipState, bool) {
	switch {
	case t.Grants():
		return MembershipMember, true
	case t.Revokes():
		return MembershipNonMember, true
	default:
		return "", false
	}
}

var ErrIdentityNotFound = errors.New("chat identity not found")
var ErrIdentityExists = errors.New("chat identity already exists")
var ErrRoomNotFound = errors.New("chat room not found")
var ErrRoomExists = errors.New("chat room already exists")
var ErrInvalidEntityKind = errors.New("invalid owning entity kind")
var ErrMissingCredential = errors.New("missing chat credential")
var ErrChatDisabled = errors.New("chat backend not configured")

// ErrIntegrity indicates that an encrypted credential failed its
// authentication check: the blob was tampered with or the vault key is wrong.
// It must never be silently replaced with an empty credential.
var ErrIntegrity = errors.New("credential integrity check failed")

// ChatIdentity is the remote identity a platform user holds in the external
// chat system. One-to-one with a platform user, created lazily on demand.
// The session credential is stored encrypted at rest (vault blob).
type ChatIdentity struct {
	UserID         string    `json:"user_id" bson:"user_id"`
	RemoteUserID   string    `json:"remote_user_id" bson:"remote_user_id"`
	EncryptedToken []byte    `json:"-" bson:"encrypted_token"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// ChatRoom is the remote room owned by a job or organization. One-to-one with
// the owning entity; once a remote room id is recorded the room is never
// recreated, regardless of later status changes on the owner.
type ChatRoom struct {
	EntityID      string     `json:"entity_id" bson:"entity_id"`
	EntityKind    EntityKind `json:"entity_kind" bson:"entity_kind"`
	RemoteRoomID  string     `json:"remote_room_id" bson:"remote_room_id"`
	RemoteAlias   string     `json:"remote_alias,omitempty" bson:"remote_alias,omitempty"`
	CreatorUserID string     `json:"creator_user_id" bson:"creator_user_id"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}
