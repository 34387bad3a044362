package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type TaskHandler struct {
	tasks   *service.TaskService
	timers  *service.TimerService
	cookies identity.Cookies
	logger  *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, timers *service.TimerService, cookies identity.Cookies, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		timers:  timers,
		cookies: cookies,
		logger:  logger,
	}
}

// Create accepts an empty body; the task then gets the default title.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewTask
	if err := respond.Decode(r, &req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	res, err := h.tasks.Create(r.Context(), identity.FromContext(r.Context()), req)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	if res.GuestToken != "" {
		http.SetCookie(w, h.cookies.New(res.GuestToken))
	}
	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", res.Task.ID))
	respond.JSON(w, r, http.StatusCreated, res.Task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.Get(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	var patch model.TaskPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.tasks.Update(r.Context(), identity.FromContext(r.Context()), id, patch)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// Delete serves DELETE /tasks?task_id=.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r.URL.Query().Get("task_id"))
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	if err := h.tasks.Delete(r.Context(), identity.FromContext(r.Context()), id); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.Message(w, r, http.StatusOK, "task deleted")
}

func (h *TaskHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	task, err := h.timers.Start(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDParam(r)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}

	task, err := h.timers.Stop(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}
