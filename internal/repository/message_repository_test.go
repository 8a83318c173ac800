package repository

import (
	"testing"
	"time"

	"storechat/internal/model"
)

func TestMessageIDsIncreaseInSendOrder(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))

	var prev uint
	for i := 0; i < 5; i++ {
		m := &model.Message{SessionID: 1, SenderID: 1, Body: strPtr("hi")}
		if err := repo.Create(m); err != nil {
			t.Fatal(err)
		}
		if m.ID <= prev {
			t.Fatalf("id %d not greater than %d", m.ID, prev)
		}
		prev = m.ID
	}
}

func TestListAfterHonoursCursorAndCap(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t))
	for i := 0; i < MaxFetchLimit+25; i++ {
		if err := repo.Create(&model.Message{SessionID: 1, SenderID: 1, Body: strPtr("x")}); err != nil {
			t.Fatal(err)
		}
	}
	// noise in another session
	if err := repo.Create(&model.Message{SessionID: 2, SenderID: 1, Body: strPtr("y")}); err != nil {
		t.Fatal(err)
	}

	page, err := repo.ListAfter(1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != MaxFetchLimit {
		t.Fatalf("page size = %d, want %d", len(page), MaxFetchLimit)
	}
	for i := 1; i < len(page); i++ {
		if page[i].ID <= page[i-1].ID {
			t.Fatal("page not ascending")
		}
	}

	cursor := page[len(page)-1].ID
	rest, err := repo.ListAfter(1, cursor, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 25 {
		t.Fatalf("rest = %d, want 25", len(rest))
	}
	for _, m := range rest {
		if m.ID <= cursor {
			t.Fatalf("message %d at or before cursor %d", m.ID, cursor)
		}
		if m.SessionID != 1 {
			t.Fatal("message from another session leaked")
		}
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageRepository(db)
	participants := NewParticipantRepository(db)

	if _, err := participants.AddIfAbsent(1, 10, model.RoleBuyer); err != nil {
		t.Fatal(err)
	}
	own := &model.Message{SessionID: 1, SenderID: 10, Body: strPtr("mine")}
	theirs := &model.Message{SessionID: 1, SenderID: 20, Body: strPtr("theirs")}
	for _, m := range []*model.Message{own, theirs} {
		if err := messages.Create(m); err != nil {
			t.Fatal(err)
		}
	}

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	lastID, err := messages.MarkRead(1, 10, first)
	if err != nil {
		t.Fatal(err)
	}
	if lastID != theirs.ID {
		t.Fatalf("last read = %d, want %d", lastID, theirs.ID)
	}

	got, _ := messages.GetByID(theirs.ID)
	if !got.IsRead || got.ReadAt == nil {
		t.Fatal("other sender's message should be read")
	}
	mine, _ := messages.GetByID(own.ID)
	if mine.IsRead {
		t.Fatal("reader's own message must stay unread")
	}

	again, err := messages.MarkRead(1, 10, first.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if again != lastID {
		t.Fatalf("second mark read moved cursor to %d", again)
	}
	got2, _ := messages.GetByID(theirs.ID)
	if !got2.ReadAt.Equal(*got.ReadAt) {
		t.Fatalf("read_at changed from %v to %v", got.ReadAt, got2.ReadAt)
	}

	p, _ := participants.Get(1, 10)
	if p.LastReadMessageID == nil || *p.LastReadMessageID != lastID {
		t.Fatalf("participant cursor = %v", p.LastReadMessageID)
	}
}
