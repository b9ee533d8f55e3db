package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"papervault/internal/core/cache"
	"papervault/internal/core/storage"
	"papervault/internal/domain"
	"papervault/pkg/utils"
)

const (
	filterOptionsKey = "papers:filter-options"
	relatedLimit     = 3
)

type PaperService struct {
	papers    PaperStore
	solutions SolutionStore
	users     UserStore
	gate      *UploadGate
	store     storage.Store
	cache     *cache.Cache
	cacheTTL  time.Duration
	log       *zap.Logger
	v         *validator.Validate
	now       func() time.Time
}

type PaperDeps struct {
	Papers    PaperStore
	Solutions SolutionStore
	Users     UserStore
	Gate      *UploadGate
	Store     storage.Store
	Cache     *cache.Cache // 可为 nil
	CacheTTL  time.Duration
	Log       *zap.Logger
}

func NewPaperService(d PaperDeps) *PaperService {
	return &PaperService{
		papers: d.Papers, solutions: d.Solutions, users: d.Users,
		gate: d.Gate, store: d.Store, cache: d.Cache, cacheTTL: d.CacheTTL,
		log: d.Log, v: newValidator(), now: utcNow,
	}
}

// Download 调用方负责关闭 Reader
type Download struct {
	Reader      io.ReadCloser
	FileName    string
	ContentType string
}

func (s *PaperService) ListPapers(ctx context.Context, f domain.PaperFilter) ([]domain.PaperView, error) {
	ps, err := s.papers.List(ctx, f)
	if err != nil {
		return nil, storeErr(s.log, "paper.list", err)
	}
	return s.enrich(ctx, ps)
}

// enrich 一次分组计数 + 一次批量查作者
func (s *PaperService) enrich(ctx context.Context, ps []domain.Paper) ([]domain.PaperView, error) {
	out := make([]domain.PaperView, 0, len(ps))
	if len(ps) == 0 {
		return out, nil
	}
	ids := make([]string, len(ps))
	authorIDs := make([]string, len(ps))
	for i, p := range ps {
		ids[i], authorIDs[i] = p.ID, p.AuthorID
	}
	counts, err := s.solutions.CountByPapers(ctx, ids)
	if err != nil {
		return nil, storeErr(s.log, "solution.count_by_papers", err)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_ids", err)
	}
	for _, p := range ps {
		v := domain.PaperView{Paper: p, SolutionCount: counts[p.ID]}
		if a, ok := authors[p.AuthorID]; ok {
			v.Author = a.Public()
			v.Author.Avatar = ""
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *PaperService) GetPaper(ctx context.Context, id string) (*domain.PaperDetail, error) {
	p, err := s.papers.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(s.log, "paper.find", err)
	}
	if p == nil {
		return nil, domain.NotFound("paper not found")
	}
	views, err := s.enrich(ctx, []domain.Paper{*p})
	if err != nil {
		return nil, err
	}
	rel, err := s.papers.Related(ctx, p.Subject, p.ID, relatedLimit)
	if err != nil {
		return nil, storeErr(s.log, "paper.related", err)
	}
	related := make([]domain.RelatedPaper, 0, len(rel))
	for _, r := range rel {
		related = append(related, domain.RelatedPaper{
			ID: r.ID, Title: r.Title, Subject: r.Subject, Semester: r.Semester,
			Year: r.Year, CollegeName: r.CollegeName,
		})
	}
	return &domain.PaperDetail{Paper: views[0], SolutionCount: views[0].SolutionCount, RelatedPapers: related}, nil
}

// UploadPaper 先落 blob 再写记录；写记录失败则删除 blob
func (s *PaperService) UploadPaper(ctx context.Context, authorID string, meta domain.PaperMetadata, file *FileInput) (*domain.PaperView, error) {
	meta.Trim()
	if err := validate(s.v, meta); err != nil {
		return nil, err
	}
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, storeErr(s.log, "user.find_by_id", err)
	}
	if author == nil {
		return nil, domain.NotFound("author not found")
	}
	if file == nil || file.Reader == nil {
		return nil, domain.E(domain.ErrMissingFile, "file is required")
	}
	stored, err := s.gate.Accept(ctx, *file)
	if err != nil {
		return nil, err
	}
	p := &domain.Paper{
		ID:          utils.NewID(),
		Title:       meta.Title,
		Subject:     meta.Subject,
		Semester:    meta.Semester,
		Year:        meta.Year,
		SubjectCode: meta.SubjectCode,
		CollegeName: meta.CollegeName,
		Description: meta.Description,
		FileURL:     stored.FileURL,
		FileName:    stored.FileName,
		AuthorID:    author.ID,
		CreatedAt:   s.now(),
	}
	if err := s.papers.Create(ctx, p); err != nil {
		s.gate.Discard(ctx, stored.Key)
		return nil, storeErr(s.log, "paper.create", err)
	}
	s.invalidateOptions(ctx)
	s.log.Info("paper uploaded", zap.String("id", p.ID), zap.String("author", author.ID), zap.String("key", stored.Key))

	pub := author.Public()
	pub.Avatar = ""
	return &domain.PaperView{Paper: *p, Author: pub}, nil
}

func (s *PaperService) DownloadPaper(ctx context.Context, id string) (*Download, error) {
	p, err := s.papers.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(s.log, "paper.find", err)
	}
	if p == nil {
		return nil, domain.NotFound("paper not found")
	}
	rc, err := s.openBlob(ctx, s.gate.KeyFromURL(p.FileURL))
	if err != nil {
		return nil, err
	}
	return &Download{Reader: rc, FileName: p.FileName, ContentType: ContentTypeFor(p.FileName)}, nil
}

// ServeUpload 按 key 直接读 blob（/uploads/:key）
func (s *PaperService) ServeUpload(ctx context.Context, key string) (*Download, error) {
	rc, err := s.openBlob(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Download{Reader: rc, FileName: key, ContentType: ContentTypeFor(key)}, nil
}

func (s *PaperService) openBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	if storage.ValidKey(key) != nil {
		return nil, domain.NotFound("file not found")
	}
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		if isBlobMissing(err) {
			return nil, domain.NotFound("file not found")
		}
		return nil, storeErr(s.log, "blob.download", err)
	}
	return rc, nil
}

func isBlobMissing(err error) bool { return errors.Is(err, storage.ErrBlobNotFound) }

func (s *PaperService) ListByAuthor(ctx context.Context, authorID string) ([]domain.PaperView, error) {
	ps, err := s.papers.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, storeErr(s.log, "paper.list_by_author", err)
	}
	return s.enrich(ctx, ps)
}

// ListFilterOptions 走缓存；上传/删除时失效
func (s *PaperService) ListFilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	opts, err := cache.GetOrLoadJSON(s.cache, ctx, filterOptionsKey, s.cacheTTL, s.loadFilterOptions)
	if err != nil {
		return nil, storeErr(s.log, "paper.filter_options", err)
	}
	return opts, nil
}

func (s *PaperService) loadFilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	var o domain.FilterOptions
	g, gctx := errgroup.WithContext(ctx)
	for col, dst := range map[string]*[]string{
		"subject":      &o.Subjects,
		"semester":     &o.Semesters,
		"year":         &o.Years,
		"subject_code": &o.SubjectCodes,
		"college_name": &o.CollegeNames,
	} {
		g.Go(func() error {
			vals, err := s.papers.Distinct(gctx, col)
			if err != nil {
				return err
			}
			*dst = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PaperService) invalidateOptions(ctx context.Context) {
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), filterOptionsKey); err != nil {
		s.log.Warn("invalidate filter options failed", zap.Error(err))
	}
}

// DeletePaper 仅作者可删；先删记录，blob 尽力删除
func (s *PaperService) DeletePaper(ctx context.Context, requesterID, id string) error {
	p, err := s.papers.FindByID(ctx, id)
	if err != nil {
		return storeErr(s.log, "paper.find", err)
	}
	if p == nil {
		return domain.NotFound("paper not found")
	}
	if p.AuthorID != requesterID {
		return domain.Forbidden("only the author can delete this paper")
	}
	deleted, err := s.papers.Delete(ctx, id)
	if err != nil {
		return storeErr(s.log, "paper.delete", err)
	}
	if !deleted {
		return domain.NotFound("paper not found")
	}
	s.gate.Discard(ctx, s.gate.KeyFromURL(p.FileURL))
	s.invalidateOptions(ctx)
	s.log.Info("paper deleted", zap.String("id", id), zap.String("by", requesterID))
	return nil
}
