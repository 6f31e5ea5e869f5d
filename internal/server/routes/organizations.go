package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type organizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrganizationResponse(org ports.Organization) organizationResponse {
	return organizationResponse{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt}
}

func (a *API) handleOrganizationCreate(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	org, err := a.cfg.Organizations.CreateOrganization(c.Request().Context(), req.Name, requestIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toOrganizationResponse(org))
}

func (a *API) handleOrganizationCurrent(c echo.Context) error {
	org, err := a.cfg.Organizations.GetOrganization(c.Request().Context(), requestOrganizationID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrganizationResponse(org))
}
