package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

type NoteHandler struct {
	Notes *service.NoteService
}

func NewNoteHandler(svc *service.Services) *NoteHandler {
	return &NoteHandler{Notes: svc.Notes}
}

type saveNoteReq struct {
	Content string `json:"content"`
}

type noteResp struct {
	Date      string     `json:"date"`
	Content   string     `json:"content"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toNoteResp(n *models.Note) noteResp {
	r := noteResp{Date: n.Date, Content: n.Content}
	if n.ID != 0 {
		r.UpdatedAt = &n.UpdatedAt
	}
	return r
}

func (h *NoteHandler) ListNotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	notes, err := h.Notes.ListAll(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err, "failed to list notes")
		return
	}
	items := make([]noteResp, 0, len(notes))
	for i := range notes {
		items = append(items, toNoteResp(&notes[i]))
	}
	util.Success(c, util.Response{"items": items})
}

// GetNote 没有笔记的日期返回空内容
func (h *NoteHandler) GetNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.Notes.GetByDate(c.Request.Context(), user.ID, c.Param("date"))
	if err != nil {
		util.Fail(c, err, "failed to load note")
		return
	}
	util.Success(c, util.Response{"note": toNoteResp(n)})
}

func (h *NoteHandler) SaveNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req saveNoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	n, err := h.Notes.Save(c.Request.Context(), user.ID, c.Param("date"), req.Content)
	if err != nil {
		util.Fail(c, err, "failed to save note")
		return
	}
	util.Success(c, util.Response{"note": toNoteResp(n)})
}
