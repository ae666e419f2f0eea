package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/salon-chat/salon-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func mustCreateUser(t *testing.T, s *SQLiteStore, username string) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return user
}

func TestSeedData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.GetRoomByName(ctx, DefaultRoomName)
	if err != nil {
		t.Fatalf("default room missing: %v", err)
	}
	if !room.IsPermanent {
		t.Fatal("default room must be permanent")
	}

	if s.SystemUserID() == 0 {
		t.Fatal("system user not resolved")
	}
	sys, err := s.GetUserByID(ctx, s.SystemUserID())
	if err != nil {
		t.Fatalf("get system user: %v", err)
	}
	if !sys.IsSystem {
		t.Fatal("system user flag not set")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "alice")

	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetUserByUsernameExcludesSystem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetUserByUsername(ctx, "system"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("system user must not be visible, got %v", err)
	}

	mustCreateUser(t, s, "bob")
	user, err := s.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Username != "bob" {
		t.Fatalf("expected bob, got %q", user.Username)
	}
}

func TestCreateRoomWithMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")

	room, err := s.CreateRoomWithMember(ctx, "Games", false, alice.ID)
	if err != nil {
		t.Fatalf("create room with member: %v", err)
	}

	got, err := s.GetMembershipRoom(ctx, alice.ID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if got.ID != room.ID {
		t.Fatalf("expected membership in room %d, got %d", room.ID, got.ID)
	}

	if _, err := s.CreateRoomWithMember(ctx, "Games", false, alice.ID); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestJoinRoomReplacesMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")

	first, err := s.JoinRoomByName(ctx, alice.ID, "Music")
	if err != nil {
		t.Fatalf("join first room: %v", err)
	}
	second, err := s.JoinRoomByName(ctx, alice.ID, "Movies")
	if err != nil {
		t.Fatalf("join second room: %v", err)
	}

	got, err := s.GetMembershipRoom(ctx, alice.ID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected membership in %q, got %q", second.Name, got.Name)
	}

	members, err := s.GetUsersInRoom(ctx, first.ID)
	if err != nil {
		t.Fatalf("members of old room: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("old room should be empty, has %d members", len(members))
	}
}

func TestJoinRoomByNameCreatesMissingRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")

	room, err := s.JoinRoomByName(ctx, alice.ID, "Books")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if room.IsPermanent {
		t.Fatal("auto-created room must not be permanent")
	}

	again, err := s.GetRoomByName(ctx, "Books")
	if err != nil {
		t.Fatalf("room not persisted: %v", err)
	}
	if again.ID != room.ID {
		t.Fatalf("expected same room %d, got %d", room.ID, again.ID)
	}
}

func TestDeleteEmptyRoomsKeepsPermanent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	if _, err := s.CreateRoomWithMember(ctx, "Games", false, alice.ID); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := s.CreateRoomWithMember(ctx, "Music", false, bob.ID); err != nil {
		t.Fatalf("create room: %v", err)
	}

	// Empty out Games by moving alice.
	if _, err := s.JoinRoomByName(ctx, alice.ID, "Music"); err != nil {
		t.Fatalf("move alice: %v", err)
	}

	deleted, err := s.DeleteEmptyRooms(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 pruned room, got %d", deleted)
	}

	if _, err := s.GetRoomByName(ctx, "Games"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Games should be pruned, got %v", err)
	}
	if _, err := s.GetRoomByName(ctx, DefaultRoomName); err != nil {
		t.Fatalf("permanent room must survive pruning: %v", err)
	}
}

func TestSaveAndListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")
	room, err := s.CreateRoomWithMember(ctx, "Games", false, alice.ID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	for _, content := range []string{"first", "second", "third"} {
		msg := &store.Message{
			UserID:   alice.ID,
			Username: alice.Username,
			RoomID:   room.ID,
			Content:  content,
			Type:     store.TypeUserMessage,
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save %q: %v", content, err)
		}
		if msg.ID == 0 {
			t.Fatalf("message ID not written back for %q", content)
		}
		if msg.CreatedAt.IsZero() {
			t.Fatalf("created_at not written back for %q", content)
		}
	}

	messages, err := s.ListMessagesByRoom(ctx, room.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	// Oldest first among the most recent two.
	if messages[0].Content != "second" || messages[1].Content != "third" {
		t.Fatalf("unexpected order: %q, %q", messages[0].Content, messages[1].Content)
	}
}

func TestSaveMessageWithAttachment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, s, "alice")
	room, err := s.CreateRoomWithMember(ctx, "Games", false, alice.ID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	msg := &store.Message{
		UserID:   alice.ID,
		Username: alice.Username,
		RoomID:   room.ID,
		Content:  "look at this",
		Type:     store.TypeUserMessage,
		Attachment: &store.Attachment{
			FilePath:     "uploads/abc.png",
			FileType:     "image/png",
			FileSize:     1234,
			OriginalName: "cat.png",
		},
	}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("save: %v", err)
	}

	messages, err := s.ListMessagesByRoom(ctx, room.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	a := messages[0].Attachment
	if a == nil {
		t.Fatal("attachment not loaded")
	}
	if a.FileType != "image/png" || a.FileSize != 1234 || a.OriginalName != "cat.png" {
		t.Fatalf("attachment mismatch: %+v", a)
	}
}
