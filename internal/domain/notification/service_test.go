package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type repoStub struct {
	created []*Notification
	err     error
}

func (r *repoStub) Create(ctx context.Context, n *Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, n)
	return nil
}

func (r *repoStub) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return r.created, nil
}

func (r *repoStub) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(r.created), nil
}

func (r *repoStub) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error { return nil }
func (r *repoStub) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error  { return nil }

func (r *repoStub) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 3, nil
}

type publisherStub struct {
	calls  int
	unread int
	err    error
}

func (p *publisherStub) NotifyNew(ctx context.Context, userID uuid.UUID, n *NotificationResponse, unreadCount int) error {
	p.calls++
	p.unread = unreadCount
	return p.err
}

func TestNotifyPersistsAndPublishes(t *testing.T) {
	repo := &repoStub{}
	pub := &publisherStub{}
	svc := NewService(repo, pub)

	userID := uuid.New()
	if err := svc.Notify(context.Background(), userID, "Escrow released", "/events/1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].UserID != userID || repo.created[0].Link != "/events/1" {
		t.Fatalf("unexpected persisted notifications: %+v", repo.created)
	}
	if pub.calls != 1 || pub.unread != 1 {
		t.Fatalf("expected one publish with unread=1, got calls=%d unread=%d", pub.calls, pub.unread)
	}
}

func TestNotifyPublishFailureIsSwallowed(t *testing.T) {
	svc := NewService(&repoStub{}, &publisherStub{err: errors.New("redis down")})
	if err := svc.Notify(context.Background(), uuid.New(), "msg", ""); err != nil {
		t.Fatalf("publish failure must not surface, got %v", err)
	}
}

func TestNotifyPersistFailureSurfaces(t *testing.T) {
	pub := &publisherStub{}
	svc := NewService(&repoStub{err: errors.New("db down")}, pub)
	if err := svc.Notify(context.Background(), uuid.New(), "msg", ""); err == nil {
		t.Fatal("expected persist error")
	}
	if pub.calls != 0 {
		t.Fatal("must not publish an unpersisted notification")
	}
}

func TestCleanupJobRunOnce(t *testing.T) {
	job := NewCleanupJob(&repoStub{}, 0)
	if job.retentionDays != 90 {
		t.Fatalf("expected default retention 90, got %d", job.retentionDays)
	}
	if got := job.RunOnce(context.Background()); got != 3 {
		t.Fatalf("expected 3 deleted, got %d", got)
	}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	if got := Channel(id); got != "notifications:7d444840-9dc0-11d1-b245-5ffdce74fad2" {
		t.Fatalf("unexpected channel %q", got)
	}
}
