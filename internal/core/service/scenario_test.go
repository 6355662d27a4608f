package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
	"github.com/hireloop/chatsync/internal/core/ports"
	"github.com/hireloop/chatsync/internal/matrix"
)

// fakeHomeserver is a minimal in-memory homeserver covering the endpoints
// the full provisioning and membership flow touches.
type fakeHomeserver struct {
	mu         sync.Mutex
	accounts   map[string]string // localpart -> password
	rooms      int
	members    map[string]map[string]bool // roomID -> remote user id -> joined
	inviteOps  int
	kickOps    int
	registered int
}

func newFakeHomeserver() *fakeHomeserver {
	return &fakeHomeserver{
		accounts: make(map[string]string),
		members:  make(map[string]map[string]bool),
	}
}

// pathSegment returns the path segment following prefix, stopping at the next
// slash. It stands in for Go 1.22's mux wildcards on older toolchains.
func pathSegment(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func (f *fakeHomeserver) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/_matrix/client/v3/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, exists := f.accounts[req.Username]; exists {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_USER_IN_USE", "error": "User ID already taken."})
			return
		}
		f.accounts[req.Username] = req.Password
		f.registered++
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "@" + req.Username + ":fake.local"})
	})

	mux.HandleFunc("/_matrix/client/v3/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Identifier struct {
				User string `json:"user"`
			} `json:"identifier"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.accounts[req.Identifier.User] != req.Password {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_FORBIDDEN", "error": "Invalid password"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":      "@" + req.Identifier.User + ":fake.local",
			"access_token": "syt_" + req.Identifier.User,
		})
	})

	mux.HandleFunc("/_matrix/client/v3/createRoom", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.rooms++
		roomID := "!room" + strings.Repeat("0", f.rooms) + ":fake.local"
		f.members[roomID] = make(map[string]bool)
		_ = json.NewEncoder(w).Encode(map[string]string{"room_id": roomID})
	})

	mux.HandleFunc("/_matrix/client/v3/rooms/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		room := pathSegment(r.URL.Path, "/_matrix/client/v3/rooms/")
		var req struct {
			UserID string `json:"user_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/invite"):
			f.inviteOps++
			f.members[room][req.UserID] = true
		case strings.HasSuffix(r.URL.Path, "/kick"):
			f.kickOps++
			delete(f.members[room], req.UserID)
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	mux.HandleFunc("/_matrix/client/v3/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || !strings.HasSuffix(r.URL.Path, "/displayname") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	return mux
}

// TestFullSynchronizationFlow drives the complete lifecycle against a fake
// homeserver: provision two identities, provision a job room, accept an
// application, then reject it.
func TestFullSynchronizationFlow(t *testing.T) {
	fake := newFakeHomeserver()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client, err := matrix.NewClient(matrix.ClientConfig{
		HomeserverURL: server.URL,
		ServerName:    "fake.local",
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	executor := instantExecutor()
	v := testVault(t)

	identityRepo := newStubIdentityRepo()
	roomRepo := newStubRoomRepo()
	marker := newStubMarker()
	credentials := NewCredentialSource(identityRepo, v)

	identitySvc := NewIdentityService(identityRepo, client, executor, v, "admin_token", zerolog.Nop())
	roomSvc := NewRoomService(roomRepo, client, executor, credentials, zerolog.Nop())
	membershipSvc := NewMembershipService(roomRepo, identityRepo, credentials, client, executor, marker, "admin_token", zerolog.Nop())
	boundary := NewChatSyncService(identitySvc, roomSvc, membershipSvc, zerolog.Nop())

	ctx := context.Background()

	// Recruiter and applicant sign up on the platform.
	boundary.ProvisionIdentity(ctx, ports.ProvisionIdentityInput{
		UserID: "recruiter-1", Email: "rita@hireloop.io", DisplayName: "Rita",
	})
	boundary.ProvisionIdentity(ctx, ports.ProvisionIdentityInput{
		UserID: "applicant-1", Email: "amir@example.com", DisplayName: "Amir",
	})
	if fake.registered != 2 {
		t.Fatalf("registered = %d, want 2", fake.registered)
	}

	// Recruiter posts a job; its room is created with the recruiter session.
	boundary.ProvisionRoom(ctx, ports.ProvisionRoomInput{
		EntityID: "job-100", EntityKind: domain.KindJob,
		Title: "Backend Engineer", CreatorUserID: "recruiter-1",
	})
	room, err := roomRepo.FindByEntity(ctx, domain.KindJob, "job-100")
	if err != nil {
		t.Fatalf("room not recorded: %v", err)
	}

	// Application accepted: the applicant is invited.
	boundary.SyncMembership(ctx, ports.SyncMembershipInput{
		EntityKind: domain.KindJob, EntityID: "job-100", UserID: "applicant-1",
		PreviousStatus: domain.StatusReviewing, NewStatus: domain.StatusAccepted,
	})
	if !fake.members[room.RemoteRoomID]["@amir.example.com:fake.local"] {
		t.Fatal("applicant not invited after acceptance")
	}

	// Application rejected: the applicant is removed.
	boundary.SyncMembership(ctx, ports.SyncMembershipInput{
		EntityKind: domain.KindJob, EntityID: "job-100", UserID: "applicant-1",
		PreviousStatus: domain.StatusAccepted, NewStatus: domain.StatusRejected,
	})
	if fake.members[room.RemoteRoomID]["@amir.example.com:fake.local"] {
		t.Fatal("applicant still in the room after rejection")
	}
	if fake.inviteOps != 1 || fake.kickOps != 1 {
		t.Errorf("invite/kick ops = %d/%d, want 1/1", fake.inviteOps, fake.kickOps)
	}

	// Replayed room provisioning never creates a second remote room.
	boundary.ProvisionRoom(ctx, ports.ProvisionRoomInput{
		EntityID: "job-100", EntityKind: domain.KindJob,
		Title: "Backend Engineer", CreatorUserID: "recruiter-1",
	})
	if fake.rooms != 1 {
		t.Errorf("remote rooms = %d, want 1", fake.rooms)
	}
}

// TestConflictRecoveryFlow exercises the register-conflict path end to end:
// the remote account exists, but no local row does.
func TestConflictRecoveryFlow(t *testing.T) {
	fake := newFakeHomeserver()
	fake.accounts["rita.hireloop.io"] = "lost-forever"

	mux := fake.handler().(*http.ServeMux)
	mux.HandleFunc("/_synapse/admin/v2/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		fake.mu.Lock()
		defer fake.mu.Unlock()
		user := pathSegment(r.URL.Path, "/_synapse/admin/v2/users/")
		localpart := strings.TrimPrefix(strings.SplitN(user, ":", 2)[0], "@")
		fake.accounts[localpart] = req.Password
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := matrix.NewClient(matrix.ClientConfig{
		HomeserverURL: server.URL,
		ServerName:    "fake.local",
		Logger:        zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	identityRepo := newStubIdentityRepo()
	svc := NewIdentityService(identityRepo, client, instantExecutor(), testVault(t), "admin_token", zerolog.Nop())

	identity, err := svc.Provision(context.Background(), ports.ProvisionIdentityInput{
		UserID: "recruiter-1", Email: "rita@hireloop.io", DisplayName: "Rita",
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if identity.RemoteUserID != "@rita.hireloop.io:fake.local" {
		t.Errorf("RemoteUserID = %q", identity.RemoteUserID)
	}
	// The old password is gone; the admin reset installed a fresh one.
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.accounts["rita.hireloop.io"] == "lost-forever" {
		t.Error("bootstrap secret was not reset through the admin API")
	}
}
