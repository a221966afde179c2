package service

import (
	"context"
	"sync"
	"time"

	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
)

// memUserStore is an in-memory UserStore for tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (s *memUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// memTaskStore is an in-memory TaskStore for tests.
type memTaskStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*model.Task
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[int64]*model.Task)}
}

func (s *memTaskStore) Create(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	task.ID = s.nextID
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, userID string, id int64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTaskStore) ListByUser(_ context.Context, userID string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memTaskStore) Update(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return repository.ErrTaskNotFound
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Completed = task.Completed
	existing.UpdatedAt = time.Now().UTC()
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *memTaskStore) Delete(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return repository.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) ToggleComplete(_ context.Context, userID string, id int64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTaskNotFound
	}
	t.Completed = !t.Completed
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

// memSessionStore is an in-memory SessionStore for tests.
type memSessionStore struct {
	mu     sync.Mutex
	nextID int
	byTok  map[string]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{byTok: make(map[string]string)}
}

func (s *memSessionStore) Create(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	token := "refresh-" + userID + "-" + string(rune('a'+s.nextID%26)) + time.Now().Format("150405.000000")
	s.byTok[token] = userID
	return token, nil
}

func (s *memSessionStore) Resolve(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.byTok[token]
	if !ok {
		return "", repository.ErrSessionNotFound
	}
	return userID, nil
}

func (s *memSessionStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTok[token]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.byTok, token)
	return nil
}

func (s *memSessionStore) RevokeAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, uid := range s.byTok {
		if uid == userID {
			delete(s.byTok, tok)
		}
	}
	return nil
}
