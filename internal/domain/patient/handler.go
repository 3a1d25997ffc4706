package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/apperr"
	"github.com/clinova/emr/internal/platform/auth"
	"github.com/clinova/emr/pkg/pagination"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.GET("", h.List, auth.Require(h.log, auth.ActionList, auth.KindPatient))
	g.POST("", h.Create, auth.Require(h.log, auth.ActionCreate, auth.KindPatient))
	g.GET("/:id", h.Get, auth.Require(h.log, auth.ActionRead, auth.KindPatient))
	g.PUT("/:id", h.Update, auth.Require(h.log, auth.ActionUpdate, auth.KindPatient))
	g.PATCH("/:id/status", h.SetStatus, auth.Require(h.log, auth.ActionUpdate, auth.KindPatient))
}

func (h *Handler) Create(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rec, err := h.svc.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Get(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid patient id"})
	}
	rec, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) List(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search: c.QueryParam("search"),
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit(),
		Offset: pg.Offset(),
	}
	patients, total, err := h.svc.List(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewKeyedResponse("patients", patients, pg, total))
}

func (h *Handler) Update(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid patient id"})
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rec, err := h.svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid patient id"})
	}
	var in struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rec, err := h.svc.SetStatus(c.Request().Context(), p, id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
