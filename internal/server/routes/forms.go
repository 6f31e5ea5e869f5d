package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldline-io/fieldline/internal/app/ports"
)

type formFieldResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
	Position int    `json:"position"`
}

type formResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Fields      []formFieldResponse `json:"fields,omitempty"`
}

func toFormResponse(f ports.Form, fields []ports.FormField) formResponse {
	resp := formResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	for _, field := range fields {
		resp.Fields = append(resp.Fields, formFieldResponse{
			ID:       field.ID,
			Label:    field.Label,
			Kind:     field.Kind,
			Required: field.Required,
			Position: field.Position,
		})
	}
	return resp
}

func (a *API) handleFormList(c echo.Context) error {
	forms, err := a.cfg.Content.ListForms(c.Request().Context(), requestOrganizationID(c))
	if err != nil {
		return err
	}
	out := make([]formResponse, 0, len(forms))
	for _, f := range forms {
		out = append(out, toFormResponse(f, nil))
	}
	return c.JSON(http.StatusOK, out)
}

func (a *API) handleFormCreate(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	form, err := a.cfg.Content.CreateForm(c.Request().Context(),
		requestOrganizationID(c), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toFormResponse(form, nil))
}

func (a *API) handleFormGet(c echo.Context) error {
	ctx := c.Request().Context()
	organizationID := requestOrganizationID(c)

	form, err := a.cfg.Content.GetForm(ctx, organizationID, c.Param("id"))
	if err != nil {
		return err
	}
	fields, err := a.cfg.Content.ListFormFields(ctx, organizationID, form.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFormResponse(form, fields))
}

func (a *API) handleFormUpdate(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	form, err := a.cfg.Content.UpdateForm(c.Request().Context(),
		requestOrganizationID(c), c.Param("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFormResponse(form, nil))
}

func (a *API) handleFormDelete(c echo.Context) error {
	if err := a.cfg.Content.DeleteForm(c.Request().Context(), requestOrganizationID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *API) handleFormFieldCreate(c echo.Context) error {
	var req struct {
		Label    string `json:"label"`
		Kind     string `json:"kind"`
		Required bool   `json:"required"`
		Position int    `json:"position"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	field, err := a.cfg.Content.CreateFormField(c.Request().Context(),
		requestOrganizationID(c), c.Param("id"), req.Label, req.Kind, req.Required, req.Position)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, formFieldResponse{
		ID:       field.ID,
		Label:    field.Label,
		Kind:     field.Kind,
		Required: field.Required,
		Position: field.Position,
	})
}

func (a *API) handleFormFieldDelete(c echo.Context) error {
	if err := a.cfg.Content.DeleteFormField(c.Request().Context(), requestOrganizationID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
