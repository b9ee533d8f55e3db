package handler

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
)

// UploadHandler 按 key 直接输出已存储的文件
type UploadHandler struct {
	svc    *service.PaperService
	prefix string
	log    *zap.Logger
}

func NewUploadHandler(svc *service.PaperService, urlPrefix string, l *zap.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, prefix: "/" + strings.Trim(urlPrefix, "/"), log: l}
}

func (h *UploadHandler) MountRoot(root *gin.RouterGroup) {
	e := ez.New(root.Group(h.prefix), h.log)
	e.Raw(http.MethodGet, "/:key", func(c *gin.Context) {
		d, err := h.svc.ServeUpload(c.Request.Context(), c.Param("key"))
		if err != nil {
			e.Fail(c, err)
			return
		}
		sendFile(c, d, "inline")
	})
}

// sendFile 流式输出并设置 Content-Disposition
func sendFile(c *gin.Context, d *service.Download, disposition string) {
	defer d.Reader.Close()
	cd := mime.FormatMediaType(disposition, map[string]string{"filename": d.FileName})
	if cd == "" {
		cd = disposition
	}
	c.DataFromReader(http.StatusOK, -1, d.ContentType, d.Reader, map[string]string{
		"Content-Disposition":    cd,
		"X-Content-Type-Options": "nosniff",
	})
}
