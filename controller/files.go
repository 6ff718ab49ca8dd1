package controller

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"webdesk/service/fs"
)

type FileController struct {
	fs         *fs.FSService
	viewMaxAge time.Duration
}

func NewFileController(fsService *fs.FSService, viewMaxAge time.Duration) *FileController {
	return &FileController{
		fs:         fsService,
		viewMaxAge: viewMaxAge,
	}
}

type pathQuery struct {
	Path string `form:"path"`
}

type folderRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"newName"`
}

func (fc *FileController) List(c *gin.Context) {
	listing, err := fc.fs.List(c.Query("path"))
	if err != nil {
		fc.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (fc *FileController) Download(c *gin.Context) {
	fc.serveFile(c, "attachment", "")
}

func (fc *FileController) View(c *gin.Context) {
	fc.serveFile(c, "inline", fmt.Sprintf("public, max-age=%d", int(fc.viewMaxAge.Seconds())))
}

func (fc *FileController) serveFile(c *gin.Context, disposition, cacheControl string) {
	f, info, err := fc.fs.Open(c.Query("path"))
	if err != nil {
		fc.abortWithError(c, err)
		return
	}
	defer f.Close()

	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": info.Name()}))
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (fc *FileController) CreateFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !isEmptyBody(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Folder name required"})
		return
	}
	if req.Path == "" {
		req.Path = c.Query("path")
	}

	if err := fc.fs.CreateFolder(req.Path, req.Name); err != nil {
		fc.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (fc *FileController) Delete(c *gin.Context) {
	var query pathQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := fc.fs.Delete(query.Path); err != nil {
		fc.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (fc *FileController) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !isEmptyBody(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NewName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New name required"})
		return
	}
	if req.Path == "" {
		req.Path = c.Query("path")
	}

	if err := fc.fs.Rename(req.Path, req.NewName); err != nil {
		fc.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Upload answers failures in plain text, not JSON.
func (fc *FileController) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.Error(err)
		c.String(http.StatusBadRequest, "No file uploaded")
		return
	}

	src, err := header.Open()
	if err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	defer src.Close()

	if err := fc.fs.Upload(c.Query("path"), header.Filename, src); err != nil {
		c.Error(err)
		c.String(statusOf(err), fs.Message(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (fc *FileController) abortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": fs.Message(err)})
}

// isEmptyBody lets a request without a body fall through to the
// required field checks.
func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}

func statusOf(err error) int {
	switch {
	case fs.IsTraversal(err), errors.Is(err, fs.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, fs.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
