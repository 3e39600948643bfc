package task

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard-backend/internal/api"
	"taskboard-backend/internal/authz"
	"taskboard-backend/internal/config"
	"taskboard-backend/internal/store"
)

// Handler serves the task CRUD endpoints. Every handler runs after the
// gateway middleware and consults the resource authorizer on the fetched
// snapshot before mutating anything.
//
// Existence policy, applied uniformly: a task the caller may not read is
// reported as NOT_FOUND, exactly like an absent one, so non-privileged
// roles cannot probe for existence. FORBIDDEN is only returned for a
// mutation on a task the caller can read but not change.
type Handler struct {
	tasks    *Store
	pageSize int
}

func NewHandler(tasks *Store, cfg config.TasksConfig) *Handler {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Handler{tasks: tasks, pageSize: pageSize}
}

// Create handles POST /api/tasks. The creator becomes the task's owner.
// Viewers never create tasks.
func (h *Handler) Create(c *fiber.Ctx) error {
	actx, ok := authz.FromCtx(c)
	if !ok {
		return api.UnauthorizedError("Missing auth token")
	}
	if actx.Role == authz.RoleViewer {
		return api.ForbiddenError("Viewers cannot create tasks")
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AssignedTo  string `json:"assigned_to"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Title == "" {
		return api.ValidationError("Title is required")
	}

	t := &Task{
		ID:          uuid.New().String(),
		Title:       body.Title,
		Description: body.Description,
		Status:      StatusTodo,
		CreatedBy:   actx.UserID,
		AssignedTo:  body.AssignedTo,
	}
	if err := h.tasks.Insert(c.Context(), t); err != nil {
		return err
	}

	created, err := h.tasks.GetByID(c.Context(), t.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": created})
}

// Get handles GET /api/tasks/:id.
func (h *Handler) Get(c *fiber.Ctx) error {
	actx, ok := authz.FromCtx(c)
	if !ok {
		return api.UnauthorizedError("Missing auth token")
	}
	id := c.Params("id")

	t, err := h.tasks.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError(id)
		}
		return err
	}

	if d := authz.Authorize(actx, authz.OpRead, t.Ownership()); !d.Allow {
		return api.NotFoundError(id)
	}
	return c.JSON(fiber.Map{"data": t})
}

// List handles GET /api/tasks. Visibility is restricted by the requester's
// scope before the query runs, not post-filtered.
func (h *Handler) List(c *fiber.Ctx) error {
	actx, ok := authz.FromCtx(c)
	if !ok {
		return api.UnauthorizedError("Missing auth token")
	}

	page := c.QueryInt("page", 1)
	scope := authz.ScopeFor(actx)

	tasks, err := h.tasks.List(c.Context(), scope, page, h.pageSize)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return c.JSON(fiber.Map{"data": tasks, "page": page, "per_page": h.pageSize})
}

// Update handles PATCH /api/tasks/:id.
func (h *Handler) Update(c *fiber.Ctx) error {
	actx, ok := authz.FromCtx(c)
	if !ok {
		return api.UnauthorizedError("Missing auth token")
	}
	id := c.Params("id")

	t, err := h.tasks.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError(id)
		}
		return err
	}

	if d := authz.Authorize(actx, authz.OpRead, t.Ownership()); !d.Allow {
		return api.NotFoundError(id)
	}
	if d := authz.Authorize(actx, authz.OpWrite, t.Ownership()); !d.Allow {
		return api.ForbiddenError("Not allowed to modify this task")
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return api.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}

	fields := make(map[string]any)
	for _, col := range []string{"title", "description", "assigned_to", "status"} {
		if v, ok := body[col]; ok {
			s, isString := v.(string)
			if !isString {
				return api.ValidationError("Field " + col + " must be a string")
			}
			fields[col] = s
		}
	}
	if title, ok := fields["title"].(string); ok && title == "" {
		return api.ValidationError("Title cannot be empty")
	}

	if status, ok := fields["status"].(string); ok && status != t.Status {
		env := map[string]any{
			"title":       t.Title,
			"description": t.Description,
			"status":      status,
			"created_by":  t.CreatedBy,
			"assigned_to": t.AssignedTo,
		}
		for col, v := range fields {
			env[col] = v
		}
		if err := ValidateTransition(t.Status, status, env); err != nil {
			return err
		}
	}

	if err := h.tasks.Update(c.Context(), id, fields); err != nil {
		return err
	}

	updated, err := h.tasks.GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": updated})
}

// Delete handles DELETE /api/tasks/:id. Admin-only by policy; for everyone
// else the response depends on whether they could read the task at all.
func (h *Handler) Delete(c *fiber.Ctx) error {
	actx, ok := authz.FromCtx(c)
	if !ok {
		return api.UnauthorizedError("Missing auth token")
	}
	id := c.Params("id")

	t, err := h.tasks.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError(id)
		}
		return err
	}

	if d := authz.Authorize(actx, authz.OpRead, t.Ownership()); !d.Allow {
		return api.NotFoundError(id)
	}
	if d := authz.Authorize(actx, authz.OpDelete, t.Ownership()); !d.Allow {
		return api.ForbiddenError("Only admins can delete tasks")
	}

	if err := h.tasks.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError(id)
		}
		return err
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}

// RegisterRoutes registers the task routes behind the gateway middleware.
func RegisterRoutes(app *fiber.App, h *Handler, authMW fiber.Handler) {
	tasks := app.Group("/api/tasks", authMW)
	tasks.Post("/", h.Create)
	tasks.Get("/", h.List)
	tasks.Get("/:id", h.Get)
	tasks.Patch("/:id", h.Update)
	tasks.Delete("/:id", h.Delete)
}
