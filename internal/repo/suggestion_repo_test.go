package repo

import (
	"context"
	"testing"

	"github.com/tbourn/suggestion-box/internal/domain"
)

func TestCreateSuggestion_DefaultStatus_AndUnknownCategory(t *testing.T) {
	db := newRepoDB(t, true)
	ctx := context.Background()
	cat := seedCategory(t, db, "Facilities")

	s, err := CreateSuggestion(ctx, db, "Fix printer", "Printer jams daily", cat)
	if err != nil {
		t.Fatalf("CreateSuggestion: %v", err)
	}
	if s.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}
	var got domain.Suggestion
	if err := db.First(&got, s.ID).Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Status != "received" || got.CategoryID != cat {
		t.Fatalf("unexpected row: %+v", got)
	}

	_, err = CreateSuggestion(ctx, db, "t", "c", 9999)
	if err == nil || !IsForeignKeyViolation(err) {
		t.Fatalf("expected FK violation for unknown category, got %v", err)
	}
}

func TestListSuggestionFeed_Empty_ReturnsEmptySlice(t *testing.T) {
	db := newRepoDB(t, true)
	out, err := ListSuggestionFeed(context.Background(), db, "")
	if err != nil {
		t.Fatalf("ListSuggestionFeed: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestListSuggestionFeed_OrderCountsAndVoted(t *testing.T) {
	db := newRepoDB(t, true)
	ctx := context.Background()
	facilities := seedCategory(t, db, "Facilities")
	food := seedCategory(t, db, "Cafeteria")

	first := seedSuggestion(t, db, facilities, "first")
	second := seedSuggestion(t, db, food, "second")
	third := seedSuggestion(t, db, facilities, "third")

	for _, student := range []domain.ClientAssertedID{"a", "b"} {
		if err := CreateVote(ctx, db, second, student); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := CreateVote(ctx, db, first, "b"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := CreateReply(ctx, db, second, "on it"); err != nil {
		t.Fatalf("reply: %v", err)
	}

	feed, err := ListSuggestionFeed(ctx, db, "a")
	if err != nil {
		t.Fatalf("ListSuggestionFeed: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(feed))
	}

	// Newest first, display numbers ascending by creation.
	wantIDs := []uint{third, second, first}
	wantNo := []int64{3, 2, 1}
	for i, row := range feed {
		if row.SuggestionID != wantIDs[i] || row.DisplayNo != wantNo[i] {
			t.Fatalf("row %d: got id=%d no=%d; want id=%d no=%d", i, row.SuggestionID, row.DisplayNo, wantIDs[i], wantNo[i])
		}
	}

	mid := feed[1]
	if mid.Category != "Cafeteria" || mid.VoteCount != 2 || mid.ReplyCount != 1 || !mid.Voted || mid.Status != "received" {
		t.Fatalf("unexpected second row: %+v", mid)
	}
	if feed[2].VoteCount != 1 || feed[2].Voted {
		t.Fatalf("viewer a did not vote on first: %+v", feed[2])
	}
	if feed[0].VoteCount != 0 || feed[0].ReplyCount != 0 || feed[0].Voted {
		t.Fatalf("third should have no activity: %+v", feed[0])
	}
	if feed[0].CreatedAt.IsZero() || feed[0].Title != "third" {
		t.Fatalf("unexpected scalar fields: %+v", feed[0])
	}

	// Anonymous viewer never matches a vote.
	anon, err := ListSuggestionFeed(ctx, db, "")
	if err != nil {
		t.Fatalf("ListSuggestionFeed anon: %v", err)
	}
	for _, row := range anon {
		if row.Voted {
			t.Fatalf("anonymous viewer should not have voted: %+v", row)
		}
	}
}
