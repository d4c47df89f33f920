package model

import (
	"testing"
	"time"
)

func TestNewFollowListResponse(t *testing.T) {
	users := []UserSummary{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
	}

	t.Run("with next page", func(t *testing.T) {
		next := time.Date(2025, 6, 1, 12, 30, 45, 123456000, time.UTC)
		resp := NewFollowListResponse(users, &next)

		if len(resp.Users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(resp.Users))
		}
		if !resp.HasMore {
			t.Error("expected HasMore to be true")
		}
		if resp.NextCursor == nil {
			t.Fatal("expected a next cursor")
		}
		if *resp.NextCursor != next.Format(time.RFC3339Nano) {
			t.Errorf("NextCursor = %q, want %q", *resp.NextCursor, next.Format(time.RFC3339Nano))
		}
		parsed, err := time.Parse(time.RFC3339Nano, *resp.NextCursor)
		if err != nil {
			t.Fatalf("cursor does not parse back: %v", err)
		}
		if !parsed.Equal(next) {
			t.Errorf("cursor round trip lost precision: %v != %v", parsed, next)
		}
	})

	t.Run("last page", func(t *testing.T) {
		resp := NewFollowListResponse(users, nil)

		if resp.HasMore {
			t.Error("expected HasMore to be false")
		}
		if resp.NextCursor != nil {
			t.Errorf("expected no cursor, got %q", *resp.NextCursor)
		}
	})
}
