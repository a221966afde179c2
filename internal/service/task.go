package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 200 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 1000 characters")
	ErrTaskNotFound       = errors.New("task not found")
)

// TaskStore is the persistence surface TaskService needs.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, userID string, id int64) (*model.Task, error)
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID string, id int64) error
	ToggleComplete(ctx context.Context, userID string, id int64) (*model.Task, error)
}

// TaskService handles task business logic. userID is always the verified
// caller identity from the guard, never client-supplied input.
type TaskService struct {
	store TaskStore
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// Create creates a new task owned by the caller. New tasks always start
// incomplete.
func (s *TaskService) Create(ctx context.Context, userID string, req model.CreateTaskRequest) (model.TaskResponse, error) {
	title, description, err := validateFields(req.Title, req.Description)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task := model.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
	}

	if err := s.store.Create(ctx, &task); err != nil {
		return model.TaskResponse{}, err
	}

	return taskToResponse(task), nil
}

// Get returns a single task owned by the caller.
func (s *TaskService) Get(ctx context.Context, userID string, id int64) (model.TaskResponse, error) {
	task, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return taskToResponse(*task), nil
}

// List returns all tasks owned by the caller.
func (s *TaskService) List(ctx context.Context, userID string) ([]model.TaskResponse, error) {
	tasks, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]model.TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = taskToResponse(t)
	}
	return result, nil
}

// Update replaces the mutable fields of a task owned by the caller.
// Identical requests converge to the same stored state.
func (s *TaskService) Update(ctx context.Context, userID string, id int64, req model.UpdateTaskRequest) (model.TaskResponse, error) {
	title, description, err := validateFields(req.Title, req.Description)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task := model.Task{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   req.Completed,
	}

	if err := s.store.Update(ctx, &task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return taskToResponse(task), nil
}

// Delete removes a task owned by the caller.
func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	err := s.store.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// ToggleComplete flips the completion flag of a task owned by the caller.
// Toggling twice restores the original state.
func (s *TaskService) ToggleComplete(ctx context.Context, userID string, id int64) (model.TaskResponse, error) {
	task, err := s.store.ToggleComplete(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return taskToResponse(*task), nil
}

// validateFields enforces the title and description bounds. Titles are
// trimmed; a whitespace-only title is rejected. Bounds count characters,
// not bytes, matching the VARCHAR column limits.
func validateFields(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", "", ErrTitleTooLong
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "", "", ErrDescriptionTooLong
	}
	return title, description, nil
}

func taskToResponse(t model.Task) model.TaskResponse {
	return model.TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
