package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// LogHandler 负责日志查询接口
type LogHandler struct {
	DB     *gorm.DB
	Cipher *util.Cipher
}

func NewLogHandler(db *gorm.DB, cipher *util.Cipher) *LogHandler {
	return &LogHandler{DB: db, Cipher: cipher}
}

func (h *LogHandler) decryptField(s string) string {
	return h.Cipher.DecryptString(s)
}

type logResp struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *LogHandler) toResp(l *models.AuditLog) logResp {
	return logResp{
		ID:        l.ID,
		Action:    h.decryptField(l.ActionEnc),
		Path:      h.decryptField(l.PathEnc),
		Method:    l.Method,
		Status:    l.Status,
		IP:        l.IP,
		UserAgent: l.UserAgent,
		CreatedAt: l.CreatedAt,
	}
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ListLogs 列出当前用户的操作日志（分页 + 时间 + 关键字）
// path/action 加密存储，关键字只能在解密后过滤
func (h *LogHandler) ListLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c, 20)

	base := h.DB.Model(&models.AuditLog{}).Where("user_id = ?", user.ID)
	if s := c.Query("start"); s != "" {
		start, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid start date")
			return
		}
		base = base.Where("created_at >= ?", start)
	}
	if s := c.Query("end"); s != "" {
		end, err := time.Parse("2006-01-02", s)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid end date")
			return
		}
		base = base.Where("created_at < ?", end.Add(24*time.Hour))
	}
	if m := strings.ToUpper(strings.TrimSpace(c.Query("method"))); m != "" {
		base = base.Where("method = ?", m)
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		var total int64
		if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			util.Fail(c, err, "failed to query logs")
			return
		}
		var logs []models.AuditLog
		if err := base.Order("created_at DESC, id DESC").
			Limit(size).
			Offset((page - 1) * size).
			Find(&logs).Error; err != nil {
			util.Fail(c, err, "failed to query logs")
			return
		}
		items := make([]logResp, 0, len(logs))
		for i := range logs {
			items = append(items, h.toResp(&logs[i]))
		}
		util.Success(c, util.Response{"items": items, "total": total, "page": page, "size": size})
		return
	}

	var logs []models.AuditLog
	if err := base.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		util.Fail(c, err, "failed to query logs")
		return
	}
	matched := make([]logResp, 0)
	for i := range logs {
		r := h.toResp(&logs[i])
		if strings.Contains(strings.ToLower(r.Path), q) || strings.Contains(strings.ToLower(r.Action), q) {
			matched = append(matched, r)
		}
	}
	util.Success(c, util.Response{
		"items": paginate(matched, page, size),
		"total": int64(len(matched)),
		"page":  page,
		"size":  size,
	})
}

type tradeHistoryResp struct {
	ID         uint      `json:"id"`
	Operation  string    `json:"operation"`
	TradeID    string    `json:"trade_id,omitempty"`
	Ticker     string    `json:"ticker,omitempty"`
	Date       string    `json:"date,omitempty"`
	ProfitLoss string    `json:"profit_loss,omitempty"`
	Status     int       `json:"status"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
}

// tradeOperation classifies an audited request as a trade write.
func tradeOperation(method, path string) (op, id string, ok bool) {
	switch {
	case method == http.MethodPost && path == "/api/trades":
		return "create", "", true
	case strings.HasPrefix(path, "/api/trades/"):
		id = strings.TrimPrefix(path, "/api/trades/")
		if id == "" || strings.Contains(id, "/") {
			return "", "", false
		}
		switch method {
		case http.MethodPatch:
			return "update", id, true
		case http.MethodDelete:
			return "delete", id, true
		}
	}
	return "", "", false
}

// ListTradeHistory 查询交易相关的历史操作（仅增删改）
func (h *LogHandler) ListTradeHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, size := pageParams(c, 50)

	var all []models.AuditLog
	if err := h.DB.Where("user_id = ? AND method IN ?", user.ID,
		[]string{http.MethodPost, http.MethodPatch, http.MethodDelete}).
		Order("created_at DESC, id DESC").
		Find(&all).Error; err != nil {
		util.Fail(c, err, "failed to query history")
		return
	}

	items := make([]tradeHistoryResp, 0)
	for i := range all {
		l := &all[i]
		path := h.decryptField(l.PathEnc)
		op, id, ok := tradeOperation(l.Method, path)
		if !ok {
			continue
		}
		item := tradeHistoryResp{
			ID:        l.ID,
			Operation: op,
			TradeID:   id,
			Status:    l.Status,
			IP:        l.IP,
			CreatedAt: l.CreatedAt,
		}
		// action 形如 "POST /api/trades {...}"，取出 JSON 部分
		action := h.decryptField(l.ActionEnc)
		if i := strings.Index(action, "{"); i >= 0 {
			var body map[string]any
			if json.Unmarshal([]byte(action[i:]), &body) == nil {
				if v, ok := body["ticker"].(string); ok {
					item.Ticker = strings.ToUpper(v)
				}
				if v, ok := body["date"].(string); ok {
					item.Date = v
				}
				switch v := body["profit_loss"].(type) {
				case string:
					item.ProfitLoss = v
				case float64:
					item.ProfitLoss = decimal.NewFromFloat(v).String()
				}
			}
		}
		items = append(items, item)
	}

	util.Success(c, util.Response{
		"items": paginate(items, page, size),
		"total": int64(len(items)),
		"page":  page,
		"size":  size,
	})
}
