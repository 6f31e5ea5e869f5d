package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type postResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPostResponse(p ports.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (a *API) handlePostList(c echo.Context) error {
	limit, offset := pagination(c)
	posts, err := a.cfg.Content.ListPosts(c.Request().Context(), requestOrganizationID(c), limit, offset)
	if err != nil {
		return err
	}
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (a *API) handlePostCreate(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	post, err := a.cfg.Content.CreatePost(c.Request().Context(),
		requestOrganizationID(c), requestIdentity(c).UserID, req.Title, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPostResponse(post))
}

func (a *API) handlePostGet(c echo.Context) error {
	post, err := a.cfg.Content.GetPost(c.Request().Context(), requestOrganizationID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(post))
}

func (a *API) handlePostUpdate(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	post, err := a.cfg.Content.UpdatePost(c.Request().Context(),
		requestOrganizationID(c), c.Param("id"), req.Title, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(post))
}

func (a *API) handlePostDelete(c echo.Context) error {
	if err := a.cfg.Content.DeletePost(c.Request().Context(), requestOrganizationID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
