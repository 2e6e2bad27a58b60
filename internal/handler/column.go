package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// ColumnHandler exposes the custom column registry.
type ColumnHandler struct {
	Columns *service.ColumnService
}

func NewColumnHandler(svc *service.Services) *ColumnHandler {
	return &ColumnHandler{Columns: svc.Columns}
}

type addColumnReq struct {
	Name string            `json:"name" binding:"required"`
	Type models.ColumnType `json:"type" binding:"required"`
}

type updateColumnReq struct {
	Name *string            `json:"name"`
	Type *models.ColumnType `json:"type"`
}

type reorderColumnsReq struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *ColumnHandler) ListColumns(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	cols, err := h.Columns.List(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err, "failed to list columns")
		return
	}
	util.Success(c, util.Response{"items": cols})
}

func (h *ColumnHandler) AddColumn(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req addColumnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	col, err := h.Columns.Add(c.Request.Context(), user.ID, req.Name, req.Type)
	if err != nil {
		util.Fail(c, err, "failed to add column")
		return
	}
	util.Success(c, util.Response{"column": col})
}

// UpdateColumn renames and/or retypes; retyping drops values of the old
// type from every trade.
func (h *ColumnHandler) UpdateColumn(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateColumnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	col, err := h.Columns.Update(c.Request.Context(), user.ID, c.Param("id"), service.ColumnPatch{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		util.Fail(c, err, "failed to update column")
		return
	}
	util.Success(c, util.Response{"column": col})
}

func (h *ColumnHandler) ReorderColumns(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req reorderColumnsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	cols, err := h.Columns.Reorder(c.Request.Context(), user.ID, req.IDs)
	if err != nil {
		util.Fail(c, err, "failed to reorder columns")
		return
	}
	util.Success(c, util.Response{"items": cols})
}

func (h *ColumnHandler) DeleteColumn(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Columns.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		util.Fail(c, err, "failed to delete column")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}
