package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
)

type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*models.RefreshToken

	failCreate bool
	failRevoke bool
	revokes    int
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[int64]*models.RefreshToken{}}
}

var errBackend = errors.New("backend down")

func (r *memRepo) Create(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.Join(common.ErrStorage, errBackend)
	}
	r.nextID++
	c := *t
	c.ID = r.nextID
	c.Revoked = false
	r.records[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memRepo) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TokenHash == hash {
			out := *rec
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) FindLatestByUserID(_ context.Context, userID string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.RefreshToken
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) ||
			(rec.CreatedAt.Equal(latest.CreatedAt) && rec.ID > latest.ID) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	out := *latest
	return &out, nil
}

func (r *memRepo) Revoke(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revokes++
	if r.failRevoke {
		return false, errors.Join(common.ErrStorage, errBackend)
	}
	rec, ok := r.records[id]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (r *memRepo) get(id int64) models.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.records[id]
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
