package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// AnalyticsHandler serves dashboard figures. Every endpoint accepts
// ?period=day|week|month|year|all or ?start=&end= (capped range).
type AnalyticsHandler struct {
	Analytics *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.Services) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: svc.Analytics}
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	v, err := h.Analytics.Summary(c.Request.Context(), user.ID, rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "failed to compute summary")
		return
	}
	util.Success(c, util.Response{
		"range":   v.Range,
		"summary": v.Summary,
	})
}

func (h *AnalyticsHandler) ByTicker(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	items, err := h.Analytics.ByTicker(c.Request.Context(), user.ID, rangeQuery(c), limit)
	if err != nil {
		util.Fail(c, err, "failed to group by ticker")
		return
	}
	util.Success(c, util.Response{"items": items})
}

func (h *AnalyticsHandler) ByMonth(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.Analytics.ByMonth(c.Request.Context(), user.ID, rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "failed to group by month")
		return
	}
	util.Success(c, util.Response{"items": items})
}

func (h *AnalyticsHandler) ByHour(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.Analytics.ByHour(c.Request.Context(), user.ID, rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "failed to group by hour")
		return
	}
	util.Success(c, util.Response{"items": items})
}

func (h *AnalyticsHandler) Daily(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.Analytics.Daily(c.Request.Context(), user.ID, rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "failed to compute daily pnl")
		return
	}
	util.Success(c, util.Response{"items": items})
}

func (h *AnalyticsHandler) Balance(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.Analytics.Balance(c.Request.Context(), user.ID, rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "failed to compute balance")
		return
	}
	util.Success(c, util.Response{"items": items})
}

// Week 返回 ?date= 所在周（周一到周日）的每日盈亏
func (h *AnalyticsHandler) Week(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	days, err := h.Analytics.Week(c.Request.Context(), user.ID, c.Query("date"))
	if err != nil {
		util.Fail(c, err, "failed to compute week")
		return
	}
	util.Success(c, util.Response{"days": days})
}

// Calendar takes ?year= and a zero-based ?month=; both default to today.
func (h *AnalyticsHandler) Calendar(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	today := h.Analytics.Today()
	year, month := today.Year(), int(today.Month())-1
	if v := c.Query("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid year")
			return
		}
		year = n
	}
	if v := c.Query("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid month")
			return
		}
		month = n
	}

	view, err := h.Analytics.Calendar(c.Request.Context(), user.ID, year, month)
	if err != nil {
		util.Fail(c, err, "failed to build calendar")
		return
	}
	util.Success(c, util.Response{"calendar": view})
}
