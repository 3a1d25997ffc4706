package appointment

import (
	"net/http"
	"time"

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
	g := api.Group("/appointments")
	g.GET("", h.List, auth.Require(h.log, auth.ActionList, auth.KindAppointment))
	g.POST("", h.Create, auth.Require(h.log, auth.ActionCreate, auth.KindAppointment))
	g.GET("/:id", h.Get, auth.Require(h.log, auth.ActionRead, auth.KindAppointment))
	g.PUT("/:id", h.Update, auth.Require(h.log, auth.ActionUpdate, auth.KindAppointment))
	g.PATCH("/:id/status", h.SetStatus, auth.Require(h.log, auth.ActionUpdate, auth.KindAppointment))
	g.DELETE("/:id", h.Delete, auth.Require(h.log, auth.ActionDelete, auth.KindAppointment))

	cg := api.Group("/consultations")
	cg.GET("", h.ListConsultations, auth.Require(h.log, auth.ActionList, auth.KindConsultation))
	cg.POST("", h.CreateConsultation, auth.Require(h.log, auth.ActionCreate, auth.KindConsultation))
	cg.GET("/:id", h.GetConsultation, auth.Require(h.log, auth.ActionRead, auth.KindConsultation))
	cg.PUT("/:id", h.UpdateConsultation, auth.Require(h.log, auth.ActionUpdate, auth.KindConsultation))
}

func (h *Handler) Create(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	a, err := h.svc.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid appointment id"})
	}
	a, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
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
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"doctor_id": "invalid doctor id"})
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"from": "must be RFC3339"})
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"to": "must be RFC3339"})
		}
		f.To = &t
	}
	appts, total, err := h.svc.List(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, pg, total))
}

func (h *Handler) Update(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid appointment id"})
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	a, err := h.svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SetStatus(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid appointment id"})
	}
	var in struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	a, err := h.svc.SetStatus(c.Request().Context(), p, id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid appointment id"})
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	var in ConsultationInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rec, err := h.svc.CreateConsultation(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetConsultation(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid consultation id"})
	}
	rec, err := h.svc.GetConsultation(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	f := ConsultationFilter{Limit: pg.Limit(), Offset: pg.Offset()}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"patient_id": "invalid patient id"})
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid request", map[string]string{"doctor_id": "invalid doctor id"})
		}
		f.DoctorID = &id
	}
	recs, total, err := h.svc.ListConsultations(c.Request().Context(), p, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, pg, total))
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	p, _ := auth.FromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid request", map[string]string{"id": "invalid consultation id"})
	}
	var in ConsultationUpdate
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request", map[string]string{"body": "malformed request body"})
	}
	rec, err := h.svc.UpdateConsultation(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
