package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postgate/internal/service"
)

type CommentHandler struct {
	s service.CommentService
}

func NewCommentHandler(s service.CommentService) *CommentHandler {
	return &CommentHandler{s: s}
}

func (h *CommentHandler) ToggleLike(c *fiber.Ctx) error {
	liked, err := h.s.ToggleLike(c.Context(), GetUserID(c), c.Query("platform"), c.Params("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"liked": liked})
}

// Reply posts the "message" form field as a reply. Sending "delete000"
// removes the comment instead.
func (h *CommentHandler) Reply(c *fiber.Ctx) error {
	err := h.s.Reply(c.Context(), GetUserID(c), c.Query("platform"), c.Params("id"), c.FormValue("message"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "ok"})
}
