package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/calendar"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// TradeHandler 负责交易记录相关接口
type TradeHandler struct {
	Trades    *service.TradeService
	Analytics *service.AnalyticsService
	PageSize  int
}

func NewTradeHandler(svc *service.Services, pageSize int) *TradeHandler {
	return &TradeHandler{
		Trades:    svc.Trades,
		Analytics: svc.Analytics,
		PageSize:  pageSize,
	}
}

// ---------- 请求/响应结构 ----------

type createTradeReq struct {
	Ticker     string              `json:"ticker" binding:"required"`
	Date       string              `json:"date" binding:"required"`
	Time       string              `json:"time" binding:"required"`
	Direction  string              `json:"direction"`
	ProfitLoss decimal.NullDecimal `json:"profit_loss"` // "12.50" or 12.5
	Note       string              `json:"note" binding:"max=2000"`
	CustomData models.CustomData   `json:"custom_data"`
}

type patchTradeReq struct {
	Ticker     *string             `json:"ticker"`
	Date       *string             `json:"date"`
	Time       *string             `json:"time"`
	Direction  *string             `json:"direction"`
	ProfitLoss decimal.NullDecimal `json:"profit_loss"`
	Note       *string             `json:"note" binding:"omitempty,max=2000"`
	CustomData *models.CustomData  `json:"custom_data"`
}

type tradeResp struct {
	ID         uint              `json:"id"`
	Ticker     string            `json:"ticker"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	TimeLabel  string            `json:"time_label"` // 12 小时制
	Direction  string            `json:"direction"`
	ProfitLoss decimal.Decimal   `json:"profit_loss"`
	Outcome    analytics.Outcome `json:"outcome"`
	Note       string            `json:"note"`
	CustomData models.CustomData `json:"custom_data"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (h *TradeHandler) toTradeResp(t *models.Trade) tradeResp {
	label, _ := calendar.FormatTime(t.Time)
	data := t.CustomData.Data()
	if data == nil {
		data = models.CustomData{}
	}
	return tradeResp{
		ID:         t.ID,
		Ticker:     t.Ticker,
		Date:       t.Date,
		Time:       t.Time,
		TimeLabel:  label,
		Direction:  t.Direction,
		ProfitLoss: t.ProfitLoss,
		Outcome:    h.Analytics.Classifier().Outcome(t.ProfitLoss),
		Note:       t.Note,
		CustomData: data,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// ---------- 记一笔 ----------

func (h *TradeHandler) CreateTrade(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req createTradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	if !req.ProfitLoss.Valid {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "profit_loss is required")
		return
	}

	trade, err := h.Trades.Insert(c.Request.Context(), user.ID, service.TradeInput{
		Ticker:     req.Ticker,
		Date:       req.Date,
		Time:       req.Time,
		Direction:  req.Direction,
		ProfitLoss: req.ProfitLoss.Decimal,
		Note:       req.Note,
		CustomData: req.CustomData,
	})
	if err != nil {
		util.Fail(c, err, "failed to save trade")
		return
	}

	util.Success(c, util.Response{
		"trade": h.toTradeResp(trade),
	})
}

// PatchTrade 修改一条已有的交易（只能修改自己的）
func (h *TradeHandler) PatchTrade(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req patchTradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	patch := service.TradePatch{
		Ticker:     req.Ticker,
		Date:       req.Date,
		Time:       req.Time,
		Direction:  req.Direction,
		Note:       req.Note,
		CustomData: req.CustomData,
	}
	if req.ProfitLoss.Valid {
		patch.ProfitLoss = &req.ProfitLoss.Decimal
	}

	trade, err := h.Trades.Patch(c.Request.Context(), user.ID, id, patch)
	if err != nil {
		util.Fail(c, err, "failed to update trade")
		return
	}

	util.Success(c, util.Response{
		"trade": h.toTradeResp(trade),
	})
}

func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.Trades.Delete(c.Request.Context(), user.ID, id); err != nil {
		util.Fail(c, err, "failed to delete trade")
		return
	}

	util.Success(c, util.Response{
		"message": "deleted",
	})
}

// ListTrades 查询交易列表：?date= 单日，?start=&end= 或 ?period= 时间段，支持分页
func (h *TradeHandler) ListTrades(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c, h.PageSize)

	q := service.TradeQuery{Page: page, PageSize: size}
	if date := c.Query("date"); date != "" {
		if err := util.ValidateDate(date); err != nil {
			util.Fail(c, err, "")
			return
		}
		q.Date = date
	} else {
		r, err := h.Analytics.ResolveRange(rangeQuery(c))
		if err != nil {
			util.Fail(c, err, "")
			return
		}
		q.Range = r
	}

	trades, total, err := h.Trades.Query(c.Request.Context(), user.ID, q)
	if err != nil {
		util.Fail(c, err, "failed to list trades")
		return
	}

	items := make([]tradeResp, 0, len(trades))
	for i := range trades {
		items = append(items, h.toTradeResp(&trades[i]))
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func rangeQuery(c *gin.Context) service.RangeQuery {
	return service.RangeQuery{
		Period: c.Query("period"),
		Start:  c.Query("start"),
		End:    c.Query("end"),
	}
}
