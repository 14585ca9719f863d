package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// FindByIDs loads every known user in ids with one query.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.UserRef, error) {
	users := make(map[string]entity.UserRef, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, email FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u entity.UserRef
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// MemoryUserRepository is the user directory used with the in-memory store.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.UserRef
}

func NewMemoryUserRepository(users ...entity.UserRef) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]entity.UserRef)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepository) Save(u entity.UserRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.UserRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]entity.UserRef, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
