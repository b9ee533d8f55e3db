package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
	mdw "papervault/internal/transport/http/middleware"
)

type PaperHandler struct {
	svc   *service.PaperService
	guard gin.HandlerFunc
	log   *zap.Logger
}

func NewPaperHandler(svc *service.PaperService, guard gin.HandlerFunc, l *zap.Logger) *PaperHandler {
	return &PaperHandler{svc: svc, guard: guard, log: l}
}

func (h *PaperHandler) Priority() int { return 20 }

// uploadForm 与文件一起提交的表单字段
type uploadForm struct {
	Title       string `form:"title"`
	Subject     string `form:"subject"`
	Semester    string `form:"semester"`
	Year        string `form:"year"`
	SubjectCode string `form:"subjectCode"`
	CollegeName string `form:"collegeName"`
	Description string `form:"description"`
}

func (f *uploadForm) meta() domain.PaperMetadata {
	return domain.PaperMetadata{
		Title: f.Title, Subject: f.Subject, Semester: f.Semester, Year: f.Year,
		SubjectCode: f.SubjectCode, CollegeName: f.CollegeName, Description: f.Description,
	}
}

func (h *PaperHandler) MountAPI(api *gin.RouterGroup) {
	pub := ez.New(api.Group("/papers"), h.log)
	priv := pub.Group("", h.guard)

	ez.RegisterAction(pub, ez.Action[domain.PaperFilter, []domain.PaperView]{
		Method: http.MethodGet, Path: "", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *domain.PaperFilter) ([]domain.PaperView, error) {
			return h.svc.ListPapers(c.Request.Context(), *in)
		},
	})
	ez.RegisterAction(pub, ez.Action[struct{}, *domain.FilterOptions]{
		Method: http.MethodGet, Path: "/filter-options", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.FilterOptions, error) {
			return h.svc.ListFilterOptions(c.Request.Context())
		},
	})
	ez.RegisterAction(priv, ez.Action[struct{}, []domain.PaperView]{
		Method: http.MethodGet, Path: "/user/papers", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.PaperView, error) {
			return h.svc.ListByAuthor(c.Request.Context(), mdw.UserID(c))
		},
	})
	ez.RegisterAction(pub, ez.Action[struct{}, *domain.PaperDetail]{
		Method: http.MethodGet, Path: "/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.PaperDetail, error) {
			return h.svc.GetPaper(c.Request.Context(), c.Param("id"))
		},
	})
	pub.Raw(http.MethodGet, "/:id/download", func(c *gin.Context) {
		d, err := h.svc.DownloadPaper(c.Request.Context(), c.Param("id"))
		if err != nil {
			pub.Fail(c, err)
			return
		}
		sendFile(c, d, "attachment")
	})

	ez.RegisterAction(priv, ez.Action[uploadForm, *domain.PaperView]{
		Method: http.MethodPost, Path: "", Binder: ez.BindForm, Auth: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *uploadForm) (*domain.PaperView, error) {
			fh, err := c.FormFile("file")
			if errors.Is(err, http.ErrMissingFile) {
				return h.svc.UploadPaper(c.Request.Context(), mdw.UserID(c), in.meta(), nil)
			}
			if err != nil {
				return nil, err
			}
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return h.svc.UploadPaper(c.Request.Context(), mdw.UserID(c), in.meta(), &service.FileInput{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Reader:      f,
			})
		},
	})
	ez.RegisterAction(priv, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete, Path: "/:id", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.svc.DeletePaper(c.Request.Context(), mdw.UserID(c), c.Param("id")); err != nil {
				return nil, err
			}
			return gin.H{"message": "paper deleted"}, nil
		},
	})
}
