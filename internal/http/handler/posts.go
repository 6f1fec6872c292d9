package handler

import (
	"github.com/gofiber/fiber/v2"

	"postboard/internal/service"
)

type createPostRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// ListPosts godoc
//
//	@Summary	List posts
//	@Description	Returns every post, newest first.
//	@Tags		posts
//	@Produce	json
//	@Success	200	{array}		model.Post
//	@Failure	500	{object}	handler.errorPayload
//	@Router		/posts [get]
func ListPosts(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// CreatePost godoc
//
//	@Summary	Create a post
//	@Description	Accepts JSON, urlencoded or multipart bodies. A multipart "image" file is stored in object storage and linked from the post.
//	@Tags		posts
//	@Accept		json,mpfd
//	@Produce	json
//	@Param		title	formData	string	true	"Post title"
//	@Param		content	formData	string	true	"Post body"
//	@Param		image	formData	file	false	"Optional image"
//	@Success	200	{object}	service.CreatePostResult
//	@Failure	400	{object}	handler.errorPayload
//	@Failure	413	{object}	handler.errorPayload
//	@Failure	500	{object}	handler.errorPayload
//	@Router		/posts [post]
func CreatePost(svc service.PostService, opts UploadOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createPostRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			}
		}
		in := service.CreatePostInput{Title: req.Title, Content: req.Content}

		if isMultipart(c) {
			fh, err := imageFile(c)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "invalid multipart form")
			}
			if fh != nil {
				if opts.MaxBytes > 0 && fh.Size > opts.MaxBytes {
					return writeError(c, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "image exceeds the maximum upload size")
				}
				att, release, err := openAttachment(fh, opts.BufferDir)
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				defer release()
				in.Attachment = att
			}
		}

		res, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
