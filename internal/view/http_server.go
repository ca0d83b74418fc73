package view

import (
	"net/http"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/server"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/CarLeaseHub/CarLeaseHub/internal/lease"
	"github.com/gin-gonic/gin"
)

// HTTPHandler 只读视图的 HTTP 接口。
type HTTPHandler struct {
	service *Service
	log     logger.Logger
}

func NewHTTPHandler(service *Service, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/owners", h.ListOwners)
	rg.GET("/owners/:id", h.GetOwner)
	rg.GET("/owners/:id/leases", h.OwnerLeases)
	rg.GET("/customers", h.ListCustomers)
	rg.GET("/customers/:id", h.GetCustomer)
	rg.GET("/customers/:id/leases", h.CustomerLeases)
	rg.GET("/cars", h.ListCars)
	rg.GET("/cars/available", h.AvailableCars)
	rg.GET("/cars/:id", h.GetCar)
	rg.GET("/leases", h.ListLeases)
	rg.GET("/leases/:id", h.GetLease)
}

// ListOwners GET /owners
func (h *HTTPHandler) ListOwners(c *gin.Context) {
	views, err := h.service.ListOwners(c.Request.Context())
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, views)
}

// GetOwner GET /owners/:id
func (h *HTTPHandler) GetOwner(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	v, err := h.service.GetOwner(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, v)
}

// ListCustomers GET /customers
func (h *HTTPHandler) ListCustomers(c *gin.Context) {
	views, err := h.service.ListCustomers(c.Request.Context())
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, views)
}

// GetCustomer GET /customers/:id
func (h *HTTPHandler) GetCustomer(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid customer id"))
		return
	}
	v, err := h.service.GetCustomer(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, v)
}

// CustomerLeases GET /customers/:id/leases
func (h *HTTPHandler) CustomerLeases(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid customer id"))
		return
	}
	details, err := h.service.CustomerLeases(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, details)
}

// OwnerLeases GET /owners/:id/leases
func (h *HTTPHandler) OwnerLeases(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	details, err := h.service.OwnerLeases(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, details)
}

// GetCar GET /cars/:id
func (h *HTTPHandler) GetCar(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid car id"))
		return
	}
	v, err := h.service.GetCar(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, v)
}

// GetLease GET /leases/:id
func (h *HTTPHandler) GetLease(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid lease id"))
		return
	}
	d, err := h.service.GetLease(c.Request.Context(), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, d)
}

// ListCars GET /cars?status=idle|on_lease|on_service
func (h *HTTPHandler) ListCars(c *gin.Context) {
	cars, err := h.service.CarsByStatus(c.Request.Context(), fleet.Status(c.Query("status")))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, cars)
}

// AvailableCars GET /cars/available
func (h *HTTPHandler) AvailableCars(c *gin.Context) {
	cars, err := h.service.AvailableCars(c.Request.Context())
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, cars)
}

// ListLeases GET /leases?status=active|ended
func (h *HTTPHandler) ListLeases(c *gin.Context) {
	details, err := h.service.LeasesByStatus(c.Request.Context(), lease.Status(c.Query("status")))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, details)
}
