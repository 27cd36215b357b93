package service_test

import (
	"context"
	"sync"
	"time"

	"api-boilerplate/internal/domain"
	"api-boilerplate/internal/repository"
)

type fakeUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
	err    error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*domain.User{}}
}

func (f *fakeUserRepository) Create(_ context.Context, user *domain.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.users[user.Username]; ok {
		return 0, repository.ErrAlreadyExists
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.EditedAt = user.CreatedAt
	stored := *user
	f.users[user.Username] = &stored
	return user.ID, nil
}

func (f *fakeUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}
