package lease

import (
	"net/http"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/server"
	"github.com/gin-gonic/gin"
)

// HTTPHandler 租约生命周期的 HTTP 接口。
type HTTPHandler struct {
	manager *Manager
	log     logger.Logger
}

func NewHTTPHandler(manager *Manager, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{manager: manager, log: log}
}

// RegisterRoutes 挂载租约路由（调用方决定前缀和鉴权中间件）。
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leases/start", h.StartLease)
	rg.POST("/leases/:id/end", h.EndLease)
}

type startLeaseRequest struct {
	CustomerID uint `json:"customer_id" binding:"required"`
	CarID      uint `json:"car_id" binding:"required"`
}

// StartLease POST /leases/start
func (h *HTTPHandler) StartLease(c *gin.Context) {
	var req startLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, errs.Invalid("customer_id/car_id required"))
		return
	}

	result, err := h.manager.StartLease(c.Request.Context(), req.CustomerID, req.CarID)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			h.log.Errorf("start lease failed: customer=%d car=%d err=%v", req.CustomerID, req.CarID, err)
		}
		server.RespondError(c, err)
		return
	}

	h.log.Infof("lease started: customer=%d car=%d", req.CustomerID, req.CarID)
	server.Respond(c, http.StatusCreated, result)
}

// EndLease POST /leases/:id/end
func (h *HTTPHandler) EndLease(c *gin.Context) {
	id, err := server.ParamUint(c, "id")
	if err != nil {
		server.RespondError(c, errs.Invalid("invalid lease id"))
		return
	}

	detail, err := h.manager.EndLease(c.Request.Context(), id)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			h.log.Errorf("end lease failed: lease=%d err=%v", id, err)
		}
		server.RespondError(c, err)
		return
	}

	h.log.Infof("lease ended: lease=%d car=%d", detail.ID, detail.Car.ID)
	server.Respond(c, http.StatusOK, detail)
}
