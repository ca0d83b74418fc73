package fleet

import (
	"net/http"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/server"
	"github.com/gin-gonic/gin"
)

// HTTPHandler 车队管理的 HTTP 接口。
type HTTPHandler struct {
	registry *Registry
	log      logger.Logger
}

func NewHTTPHandler(registry *Registry, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{registry: registry, log: log}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/owners", h.CreateOwner)
	rg.PUT("/owners/:id", h.UpdateOwner)
	rg.DELETE("/owners/:id", h.DeleteOwner)
	rg.POST("/owners/:id/cars", h.RegisterCars)
	rg.PUT("/owners/:id/cars", h.UpdateCarDetails)
	rg.DELETE("/owners/:id/cars/:carId", h.DeleteCar)
}

type ownerRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type carSpecRequest struct {
	Model   string `json:"model" binding:"required"`
	Variant string `json:"variant" binding:"required"`
}

type carUpdateRequest struct {
	ID      uint   `json:"id" binding:"required"`
	Model   string `json:"model" binding:"required"`
	Variant string `json:"variant" binding:"required"`
}

// CreateOwner POST /owners
func (h *HTTPHandler) CreateOwner(c *gin.Context) {
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, errs.Invalid("name/email/phone_number required"))
		return
	}

	o, err := h.registry.CreateOwner(c.Request.Context(), OwnerInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		server.RespondError(c, err)
		return
	}

	h.log.Infof("owner created: id=%d", o.ID)
	server.Respond(c, http.StatusCreated, o)
}

// UpdateOwner PUT /owners/:id
func (h *HTTPHandler) UpdateOwner(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, errs.Invalid("name/email/phone_number required"))
		return
	}

	o, err := h.registry.UpdateOwner(c.Request.Context(), id, OwnerInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, o)
}

// DeleteOwner DELETE /owners/:id
func (h *HTTPHandler) DeleteOwner(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	if err := h.registry.DeleteOwner(c.Request.Context(), id); err != nil {
		server.RespondError(c, err)
		return
	}
	h.log.Infof("owner deleted: id=%d", id)
	server.Respond(c, http.StatusNoContent, nil)
}

// RegisterCars POST /owners/:id/cars
func (h *HTTPHandler) RegisterCars(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	var reqs []carSpecRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.RespondError(c, errs.Invalid("car model/variant required"))
		return
	}

	specs := make([]CarSpec, 0, len(reqs))
	for _, r := range reqs {
		specs = append(specs, CarSpec{Model: r.Model, Variant: r.Variant})
	}

	result, err := h.registry.RegisterCars(c.Request.Context(), id, specs)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	h.log.Infof("cars registered: owner=%d count=%d", id, len(result.Cars))
	server.Respond(c, http.StatusCreated, result)
}

// UpdateCarDetails PUT /owners/:id/cars
func (h *HTTPHandler) UpdateCarDetails(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	var reqs []carUpdateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		server.RespondError(c, errs.Invalid("car id/model/variant required"))
		return
	}

	updates := make([]CarUpdate, 0, len(reqs))
	for _, r := range reqs {
		updates = append(updates, CarUpdate{ID: r.ID, Model: r.Model, Variant: r.Variant})
	}

	result, err := h.registry.UpdateCarDetails(c.Request.Context(), id, updates)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, result)
}

// DeleteCar DELETE /owners/:id/cars/:carId
func (h *HTTPHandler) DeleteCar(c *gin.Context) {
	ownerID, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid owner id"))
		return
	}
	carID, err := server.ParamUint(c, "carId")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid car id"))
		return
	}

	if err := h.registry.DeleteCar(c.Request.Context(), ownerID, carID); err != nil {
		server.RespondError(c, err)
		return
	}
	h.log.Infof("car deleted: owner=%d car=%d", ownerID, carID)
	server.Respond(c, http.StatusNoContent, nil)
}
