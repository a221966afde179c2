package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tasknest/tasknest-go/internal/middleware"
	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/service"
)

// TaskHandler handles HTTP requests for task operations. By the time these
// run, the JWT guard has verified the caller and the owner guard has
// matched the caller against the {user_id} path segment; the identity used
// for every query comes from the request context, never the body.
type TaskHandler struct {
	service *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{service: svc}
}

// HandleList handles GET /api/{user_id}/tasks requests.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	tasks, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}
	if tasks == nil {
		tasks = []model.TaskResponse{}
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleCreate handles POST /api/{user_id}/tasks requests.
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.CreateTaskRequest
	if err := decodeJSON(w, r, &req, 1<<20); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /api/{user_id}/tasks/{task_id} requests.
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid task id"))
		return
	}

	resp, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT /api/{user_id}/tasks/{task_id} requests.
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid task id"))
		return
	}

	var req model.UpdateTaskRequest
	if err := decodeJSON(w, r, &req, 1<<20); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := h.service.Update(r.Context(), userID, taskID, req)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /api/{user_id}/tasks/{task_id} requests.
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid task id"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		writeTaskError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleComplete handles PATCH /api/{user_id}/tasks/{task_id}/complete requests.
func (h *TaskHandler) HandleToggleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	taskID, err := taskIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid task id"))
		return
	}

	resp, err := h.service.ToggleComplete(r.Context(), userID, taskID)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func taskIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "task_id"), 10, 64)
}

func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong),
		errors.Is(err, service.ErrDescriptionTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
