package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// FileHandler serves image uploads. Uploading is two steps: the client asks
// for a one-shot upload URL, then PUTs the raw bytes to it.
type FileHandler struct {
	Files *service.FileService
}

func NewFileHandler(svc *service.Services) *FileHandler {
	return &FileHandler{Files: svc.Files}
}

func fileResp(f *models.StoredFile) gin.H {
	return gin.H{
		"id":           f.ID,
		"content_type": f.ContentType,
		"size":         f.Size,
		"created_at":   f.CreatedAt,
	}
}

func (h *FileHandler) CreateUploadURL(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	ticket, err := h.Files.CreateUploadLocation(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err, "failed to create upload url")
		return
	}
	util.Success(c, util.Response{"upload": ticket})
}

// Upload is authorised by the ticket in the path, not by a session.
func (h *FileHandler) Upload(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if body == nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "empty body")
		return
	}
	f, err := h.Files.Upload(c.Request.Context(), c.Param("token"), c.ContentType(), body)
	if err != nil {
		util.Fail(c, err, "failed to store file")
		return
	}
	util.Success(c, util.Response{"file": fileResp(f)})
}

func (h *FileHandler) GetURL(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	url, err := h.Files.ResolveURL(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		util.Fail(c, err, "failed to resolve file")
		return
	}
	util.Success(c, util.Response{"url": url})
}

func (h *FileHandler) Download(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	f, rc, err := h.Files.Open(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		util.Fail(c, err, "failed to open file")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", f.ID))
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-File-Size":            strconv.FormatInt(f.Size, 10),
	})
}

func (h *FileHandler) DeleteFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.Files.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		util.Fail(c, err, "failed to delete file")
		return
	}
	util.Success(c, util.Response{"message": "deleted"})
}
