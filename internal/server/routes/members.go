package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type memberResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

func toMemberResponses(rows []ports.Member) []memberResponse {
	out := make([]memberResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberResponse{
			UserID: row.UserID,
			Email:  row.Email,
			Name:   row.Name,
			Role:   row.Role,
		})
	}
	return out
}

func (a *API) handleMemberList(c echo.Context) error {
	members, err := a.cfg.Organizations.ListMembers(c.Request().Context(), requestOrganizationID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMemberResponses(members))
}

func (a *API) handleMemberAdd(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
		Name   string `json:"name"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := a.cfg.Organizations.AddMember(c.Request().Context(),
		requestOrganizationID(c), req.UserID, req.Email, req.Name, req.Role)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (a *API) handleMemberRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := a.cfg.Organizations.UpdateMemberRole(c.Request().Context(),
		requestOrganizationID(c), c.Param("userID"), req.Role)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *API) handleMemberRemove(c echo.Context) error {
	err := a.cfg.Organizations.RemoveMember(c.Request().Context(),
		requestOrganizationID(c), c.Param("userID"))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
