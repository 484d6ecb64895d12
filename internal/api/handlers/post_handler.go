package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/service"
	"github.com/maheshrc27/postgate/internal/transfer"
)

type PostHandler struct {
	s service.PostService
	c service.CommentService
}

func NewPostHandler(postService service.PostService, commentService service.CommentService) *PostHandler {
	return &PostHandler{s: postService, c: commentService}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	form, err := c.MultipartForm()
	if err != nil {
		return ErrorResponse(c, parseFormError(err))
	}

	pc := &transfer.PostCreation{
		Caption:     c.FormValue("caption"),
		Platform:    c.FormValue("platform"),
		AspectRatio: c.FormValue("aspect_ratio"),
	}

	if pc.Categories, err = parseJSONList[int64](c.FormValue("categories"), "categories"); err != nil {
		return ErrorResponse(c, err)
	}
	if pc.ScheduledAt, err = parseScheduledAt(c.FormValue("scheduled_at")); err != nil {
		return ErrorResponse(c, err)
	}
	if raw := c.FormValue("promotion_id"); raw != "" {
		promotionID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ErrorResponse(c, models.NewValidationError("invalid promotion_id"))
		}
		pc.PromotionID = &promotionID
	}
	if pc.Image, err = readFormFile(form, "image"); err != nil {
		return ErrorResponse(c, models.NewValidationError("Unable to read image"))
	}

	post, err := h.s.CreatePost(c.Context(), userID, pc)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	list, err := h.s.ListPosts(c.Context(), GetUserID(c))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(list)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return ErrorResponse(c, models.NewValidationError("invalid post id"))
	}

	post, err := h.s.GetPost(c.Context(), GetUserID(c), int64(postID))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// EditPost applies only the form fields that were sent. An empty scheduled_at
// publishes the post now.
func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return ErrorResponse(c, models.NewValidationError("invalid post id"))
	}
	form, err := c.MultipartForm()
	if err != nil {
		return ErrorResponse(c, parseFormError(err))
	}

	pu := &transfer.PostUpdate{AspectRatio: c.FormValue("aspect_ratio")}
	if caption, ok := formValue(form, "caption"); ok {
		pu.Caption = &caption
	}
	if raw, ok := formValue(form, "categories"); ok {
		if pu.CategoryLabels, err = parseJSONList[string](raw, "categories"); err != nil {
			return ErrorResponse(c, err)
		}
		pu.SetCategories = true
	}
	if raw, ok := formValue(form, "scheduled_at"); ok {
		if pu.ScheduledAt, err = parseScheduledAt(raw); err != nil {
			return ErrorResponse(c, err)
		}
		pu.SetSchedule = true
	}
	if raw, ok := formValue(form, "retry"); ok {
		pu.Retry, _ = strconv.ParseBool(raw)
	}
	if pu.Image, err = readFormFile(form, "image"); err != nil {
		return ErrorResponse(c, models.NewValidationError("Unable to read image"))
	}

	post, err := h.s.EditPost(c.Context(), GetUserID(c), int64(postID), pu)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return ErrorResponse(c, models.NewValidationError("invalid post id"))
	}

	if err := h.s.DeletePost(c.Context(), GetUserID(c), int64(postID)); err != nil {
		return ErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) PostingHistory(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return ErrorResponse(c, models.NewValidationError("invalid post id"))
	}

	history, err := h.s.PostingHistory(c.Context(), GetUserID(c), int64(postID))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.s.ListCategories(c.Context())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(categories)
}

func (h *PostHandler) ListComments(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return ErrorResponse(c, models.NewValidationError("invalid post id"))
	}

	comments, err := h.c.ListComments(c.Context(), GetUserID(c), int64(postID))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(comments)
}
