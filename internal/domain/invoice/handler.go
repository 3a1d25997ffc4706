package invoice

import (
	"net/http"
	"strconv"

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
	g := api.Group("/invoices")
	g.GET("", h.List, auth.Require(h.log, auth.ActionList, auth.KindInvoice))
	g.POST("", h.Create, auth.Require(h.log, auth.ActionCreate, auth.KindInvoice))
	// Stats routes are registered before /:id so echo does not swallow
	// "stats" as an invoice id.
	g.GET("/stats/summary", h.Summary, auth.Require(h.log, auth.ActionList, auth.KindInvoice))
	g.GET("/stats/monthly", h.Monthly, auth.Require(h.log, auth.ActionList, auth.KindInvoice))
	g.GET("/stats/payment-methods", h.PaymentMethods, auth.Require(h.log, auth.ActionList, auth.KindInvoice))
	g.GET("/:id", h.Get, auth.Require(h.log, auth.ActionRead, auth.KindInvoice))
	g.PATCH("/:id/status", h.SetStatus, auth.Require(h.log, auth.ActionUpdate, auth.KindInvoice))
}

func (h *Handler) Create(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	inv, err := h.svc.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) Get(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid invoice id"})
	}
	inv, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) List(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ListFilter{
		Status: Status(c.QueryParam("status")),
		Limit:  pg.Limit(),
		Offset: pg.Offset(),
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"patient_id": "invalid patient id"})
		}
		f.PatientID = &id
	}
	invs, total, err := h.svc.List(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invs, pg, total))
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid invoice id"})
	}
	var in SetStatusInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	inv, err := h.svc.SetStatus(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) Summary(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	row, err := h.svc.Summary(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) Monthly(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	months, _ := strconv.Atoi(c.QueryParam("months"))
	series, err := h.svc.Monthly(c.Request().Context(), p, months)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, series)
}

func (h *Handler) PaymentMethods(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	breakdown, err := h.svc.PaymentMethods(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, breakdown)
}
