package customer

import (
	"net/http"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/server"
	"github.com/gin-gonic/gin"
)

// HTTPHandler 客户档案的 HTTP 接口。
type HTTPHandler struct {
	service *Service
	log     logger.Logger
}

func NewHTTPHandler(service *Service, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/customers", h.Register)
	rg.PUT("/customers/:id", h.Update)
	rg.DELETE("/customers/:id", h.Delete)
}

type customerRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// Register POST /customers
func (h *HTTPHandler) Register(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, errs.Invalid("name/email/phone_number required"))
		return
	}

	cust, err := h.service.Register(c.Request.Context(), Input{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		server.RespondError(c, err)
		return
	}

	h.log.Infof("customer registered: id=%d", cust.ID)
	server.Respond(c, http.StatusCreated, cust)
}

// Update PUT /customers/:id
func (h *HTTPHandler) Update(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid customer id"))
		return
	}
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, errs.Invalid("name/email/phone_number required"))
		return
	}

	cust, err := h.service.Update(c.Request.Context(), id, Input{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		server.RespondError(c, err)
		return
	}
	server.Respond(c, http.StatusOK, cust)
}

// Delete DELETE /customers/:id
func (h *HTTPHandler) Delete(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid customer id"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		server.RespondError(c, err)
		return
	}
	h.log.Infof("customer deleted: id=%d", id)
	server.Respond(c, http.StatusNoContent, nil)
}
