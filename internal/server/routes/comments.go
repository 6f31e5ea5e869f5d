package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(comment ports.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func (a *API) handleCommentList(c echo.Context) error {
	comments, err := a.cfg.Content.ListComments(c.Request().Context(),
		requestOrganizationID(c), c.Param("id"))
	if err != nil {
		return err
	}
	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, toCommentResponse(comment))
	}
	return c.JSON(http.StatusOK, out)
}

func (a *API) handleCommentCreate(c echo.Context) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	comment, err := a.cfg.Content.CreateComment(c.Request().Context(),
		requestOrganizationID(c), c.Param("id"), requestIdentity(c).UserID, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCommentResponse(comment))
}

func (a *API) handleCommentDelete(c echo.Context) error {
	if err := a.cfg.Content.DeleteComment(c.Request().Context(), requestOrganizationID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
