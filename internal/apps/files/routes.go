package files

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"api-boilerplate/internal/http/httperr"
	"api-boilerplate/internal/router"
	"api-boilerplate/internal/storage"
)

const (
	mib               = int64(1 << 20)
	defaultURLExpiry  = 15 * time.Minute
	maxURLExpiry      = 7 * 24 * time.Hour
	defaultMaxUploadB = 25 * mib
)

func init() {
	router.Register(func(r *router.Routes, deps *router.Deps) {
		h := newHandler(deps)
		g := r.Group("/files")
		g.POST("", router.Doc{Summary: "Upload a file", Auth: true}, h.upload)
		g.GET("", router.Doc{Summary: "List files", Auth: true}, h.list)
		g.GET("/download/*key", router.Doc{Summary: "Download a file", Auth: true}, h.download)
		g.GET("/url/*key", router.Doc{Summary: "Presigned download URL", Auth: true}, h.url)
		g.DELETE("/*key", router.Doc{Summary: "Delete a file", Auth: true}, h.delete)
	})
}

type handler struct {
	storage  storage.Service
	logger   logrus.FieldLogger
	maxBytes int64
	partSize int64
}

func newHandler(deps *router.Deps) *handler {
	h := &handler{
		storage:  deps.Storage,
		logger:   deps.Logger,
		maxBytes: deps.MaxUploadMB * mib,
		partSize: deps.PartSizeMB * mib,
	}
	if h.maxBytes <= 0 {
		h.maxBytes = defaultMaxUploadB
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	return h
}

type UploadResponse struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type ObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) ObjectResponse {
	resp := ObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func (h *handler) upload(c *gin.Context) {
	if h.storage == nil {
		_ = c.Error(httperr.New(http.StatusServiceUnavailable, "storage service not configured"))
		return
	}

	// multipart overhead on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+mib)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(h.tooLarge())
			return
		}
		_ = c.Error(httperr.Wrap(http.StatusUnprocessableEntity, "file is required", err))
		return
	}
	if header.Size > h.maxBytes {
		_ = c.Error(h.tooLarge())
		return
	}

	name := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		_ = c.Error(httperr.BadRequest("invalid filename"))
		return
	}
	filename := storage.RandomFilename(name)
	key := storage.JoinKey(c.PostForm("prefix"), filename)
	contentType := contentTypeOf(header)

	file, err := header.Open()
	if err != nil {
		_ = c.Error(fmt.Errorf("open uploaded file: %w", err))
		return
	}
	defer file.Close()

	logger := h.logger.WithField("key", key)
	err = h.storage.UploadStream(c.Request.Context(), file, key, storage.StreamOptions{
		ContentType: contentType,
		PartSize:    h.partSize,
		Size:        header.Size,
		ProgressCallback: func(done, total int64) {
			logger.Debugf("uploaded %d/%d bytes", done, total)
		},
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.Infof("file uploaded (%d bytes)", header.Size)
	c.JSON(http.StatusCreated, UploadResponse{
		Key:         key,
		Filename:    filename,
		Size:        header.Size,
		ContentType: contentType,
	})
}

func (h *handler) tooLarge() *httperr.Error {
	return httperr.New(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("File exceeds the %d MB upload limit", h.maxBytes/mib))
}

func (h *handler) list(c *gin.Context) {
	if h.storage == nil {
		_ = c.Error(httperr.New(http.StatusServiceUnavailable, "storage service not configured"))
		return
	}

	objects, err := h.storage.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]ObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) download(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}

	body, info, err := h.storage.Open(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(storageError(err, key))
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
}

func (h *handler) url(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}

	expires := defaultURLExpiry
	if raw := c.Query("expires"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 || time.Duration(seconds)*time.Second > maxURLExpiry {
			_ = c.Error(httperr.BadRequest("expires must be between 1 second and 7 days"))
			return
		}
		expires = time.Duration(seconds) * time.Second
	}

	u, err := h.storage.PresignGet(c.Request.Context(), key, expires)
	if err != nil {
		_ = c.Error(storageError(err, key))
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "url": u, "expires_in": int(expires.Seconds())})
}

func (h *handler) delete(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}
	if err := h.storage.Delete(c.Request.Context(), key); err != nil {
		_ = c.Error(storageError(err, key))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// objectKey reads the wildcard key, which gin hands over with a leading slash.
func objectKey(c *gin.Context) (string, bool) {
	key := strings.TrimLeft(c.Param("key"), "/")
	if key == "" {
		_ = c.Error(httperr.BadRequest("object key is required"))
		return "", false
	}
	return key, true
}

func storageError(err error, key string) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return httperr.Wrap(http.StatusNotFound, fmt.Sprintf("File %s not found", key), err)
	case errors.Is(err, storage.ErrInvalidKey):
		return httperr.Wrap(http.StatusBadRequest, "object key is required", err)
	default:
		return err
	}
}

func contentTypeOf(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
