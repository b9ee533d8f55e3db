package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papervault/internal/domain"
	"papervault/internal/service"
	"papervault/internal/transport/http/ez"
	mdw "papervault/internal/transport/http/middleware"
)

type SolutionHandler struct {
	svc   *service.SolutionService
	guard gin.HandlerFunc
	log   *zap.Logger
}

func NewSolutionHandler(svc *service.SolutionService, guard gin.HandlerFunc, l *zap.Logger) *SolutionHandler {
	return &SolutionHandler{svc: svc, guard: guard, log: l}
}

func (h *SolutionHandler) Priority() int { return 30 }

type solutionIn struct {
	Content string `json:"content"`
}

func (h *SolutionHandler) MountAPI(api *gin.RouterGroup) {
	pub := ez.New(api.Group("/solutions"), h.log)
	priv := pub.Group("", h.guard)

	ez.RegisterAction(pub, ez.Action[struct{}, []domain.SolutionView]{
		Method: http.MethodGet, Path: "/paper/:paperId", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.SolutionView, error) {
			return h.svc.ListForPaper(c.Request.Context(), c.Param("paperId"))
		},
	})
	ez.RegisterAction(priv, ez.Action[solutionIn, *domain.SolutionView]{
		Method: http.MethodPost, Path: "/paper/:paperId", Binder: ez.BindJSON, Auth: true, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *solutionIn) (*domain.SolutionView, error) {
			return h.svc.AddSolution(c.Request.Context(), mdw.UserID(c), c.Param("paperId"), in.Content)
		},
	})
	for _, kind := range []domain.VoteKind{domain.Upvote, domain.Downvote} {
		ez.RegisterAction(priv, ez.Action[struct{}, domain.VoteSets]{
			Method: http.MethodPut, Path: "/:id/" + string(kind), Binder: ez.BindNone, Auth: true,
			Handler: func(c *gin.Context, _ *struct{}) (domain.VoteSets, error) {
				return h.svc.ToggleVote(c.Request.Context(), mdw.UserID(c), c.Param("id"), kind)
			},
		})
	}
	ez.RegisterAction(priv, ez.Action[struct{}, []domain.SolutionView]{
		Method: http.MethodGet, Path: "/user/solutions", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.SolutionView, error) {
			return h.svc.ListByAuthor(c.Request.Context(), mdw.UserID(c))
		},
	})
}
