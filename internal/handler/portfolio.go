package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

type PortfolioHandler struct {
	Portfolio *service.PortfolioService
}

func NewPortfolioHandler(svc *service.Services) *PortfolioHandler {
	return &PortfolioHandler{Portfolio: svc.Portfolio}
}

type upsertPortfolioReq struct {
	StartingBalance decimal.NullDecimal `json:"starting_balance"`
	RiskPercentage  decimal.NullDecimal `json:"risk_percentage"`
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.Portfolio.Get(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err, "failed to load portfolio")
		return
	}
	util.Success(c, util.Response{"portfolio": p})
}

func (h *PortfolioHandler) UpsertPortfolio(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req upsertPortfolioReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	var patch service.PortfolioPatch
	if req.StartingBalance.Valid {
		patch.StartingBalance = &req.StartingBalance.Decimal
	}
	if req.RiskPercentage.Valid {
		patch.RiskPercentage = &req.RiskPercentage.Decimal
	}
	p, err := h.Portfolio.Upsert(c.Request.Context(), user.ID, patch)
	if err != nil {
		util.Fail(c, err, "failed to save portfolio")
		return
	}
	util.Success(c, util.Response{"portfolio": p})
}
