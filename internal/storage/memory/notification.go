package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/eventpay/escrow-api/internal/domain/notification"
)

func (s *Store) Create(ctx context.Context, n *notification.Notification) error {
	return s.atomically(func(d *state) error {
		d.notifications[n.ID] = *n
		return nil
	})
}

func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*notification.Notification, 0)
	for _, n := range s.data.notifications {
		if n.UserID == userID {
			all = append(all, &n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*notification.Notification{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.data.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.atomically(func(d *state) error {
		n, ok := d.notifications[id]
		if !ok || n.UserID != userID {
			return notification.ErrNotificationNotFound
		}
		markRead(&n)
		d.notifications[id] = n
		return nil
	})
}

func (s *Store) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.atomically(func(d *state) error {
		for id, n := range d.notifications {
			if n.UserID == userID && !n.IsRead {
				markRead(&n)
				d.notifications[id] = n
			}
		}
		return nil
	})
}

func (s *Store) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.atomically(func(d *state) error {
		for id, n := range d.notifications {
			if n.IsRead && n.CreatedAt.Before(cutoff) {
				delete(d.notifications, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

func markRead(n *notification.Notification) {
	n.IsRead = true
	n.ReadAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
}
