package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postgate/internal/models"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

var statusByKind = map[models.ErrorKind]int{
	models.KindValidation:  fiber.StatusBadRequest,
	models.KindNotFound:    fiber.StatusNotFound,
	models.KindAuth:        fiber.StatusUnauthorized,
	models.KindUpstream:    fiber.StatusBadGateway,
	models.KindUnsupported: fiber.StatusBadRequest,
	models.KindConflict:    fiber.StatusConflict,
	models.KindInternal:    fiber.StatusInternalServerError,
}

// ErrorResponse writes err with the status its kind maps to. Internal errors
// are logged and hidden from the client.
func ErrorResponse(c *fiber.Ctx, err error) error {
	kind := models.KindOf(err)
	message := err.Error()
	if kind == models.KindInternal {
		slog.Error("request failed", "path", c.Path(), "error", err)
		message = "Internal server error"
	}
	return c.Status(statusByKind[kind]).JSON(fiber.Map{
		"error": message,
		"kind":  kind,
	})
}

// formValue reports whether key was sent at all, not only whether it is non-empty.
func formValue(form *multipart.Form, key string) (string, bool) {
	if form == nil {
		return "", false
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func readFormFile(form *multipart.Form, key string) ([]byte, error) {
	if form == nil || len(form.File[key]) == 0 {
		return nil, nil
	}
	file, err := form.File[key][0].Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

// parseScheduledAt accepts RFC 3339 or the "datetime-local" form layout,
// which is read as UTC. An empty value means no schedule.
func parseScheduledAt(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, models.NewValidationError("invalid scheduled_at format")
}

func parseJSONList[T any](value, field string) ([]T, error) {
	if value == "" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, models.NewValidationError("invalid " + field + " format")
	}
	return out, nil
}

func parseFormError(err error) error {
	slog.Info("parsing form", "error", err)
	return models.NewValidationError("Unable to parse form")
}
