package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"papervault/internal/core/auth"
	"papervault/internal/core/cache"
	"papervault/internal/core/storage"
	"papervault/internal/domain"
	"papervault/internal/repo"
	"papervault/internal/testutil"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// tick 每次调用前进一秒，保证倒序稳定
func tick() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

// recordingStore 记录写入过的 key
type recordingStore struct {
	storage.Store
	mu   sync.Mutex
	keys []string
}

func (r *recordingStore) Upload(ctx context.Context, key string, rd io.Reader) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.Store.Upload(ctx, key, rd)
}

type env struct {
	db        *gorm.DB
	users     *repo.UserRepo
	papers    *repo.PaperRepo
	solutions *repo.SolutionRepo
	store     *recordingStore
	gate      *UploadGate
	auth      *AuthService
	paper     *PaperService
	solution  *SolutionService
}

func newEnv(t *testing.T, opts ...func(*PaperDeps)) *env {
	t.Helper()
	db := testutil.NewDB(t)
	l := zap.NewNop()
	clock := tick()

	e := &env{
		db:        db,
		users:     repo.NewUserRepo(db),
		papers:    repo.NewPaperRepo(db),
		solutions: repo.NewSolutionRepo(db),
		store:     &recordingStore{Store: storage.NewLocalFs(afero.NewMemMapFs())},
	}
	e.gate = NewUploadGate(e.store, 10<<20, "/uploads/", l)
	e.gate.now = clock

	e.auth = NewAuthService(e.users, auth.NewJWTer("test-secret", "papervault", time.Hour), l)
	e.auth.now = clock

	deps := PaperDeps{
		Papers: e.papers, Solutions: e.solutions, Users: e.users,
		Gate: e.gate, Store: e.store, Cache: cache.NewWithClient(nil, ""), CacheTTL: time.Minute, Log: l,
	}
	for _, o := range opts {
		o(&deps)
	}
	e.paper = NewPaperService(deps)
	e.paper.now = clock

	e.solution = NewSolutionService(e.solutions, e.papers, e.users, l)
	e.solution.now = clock
	return e
}

func (e *env) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.User
}

const pdfBody = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

func pdfFile(name string) *FileInput {
	return &FileInput{Name: name, ContentType: "application/pdf", Size: int64(len(pdfBody)), Reader: strings.NewReader(pdfBody)}
}

func meta(title, subject string) domain.PaperMetadata {
	return domain.PaperMetadata{
		Title: title, Subject: subject, Semester: "Fall", Year: "2024",
		SubjectCode: subject + "101", CollegeName: "MIT",
	}
}

func (e *env) upload(t *testing.T, author *domain.User, title, subject string) *domain.PaperView {
	t.Helper()
	p, err := e.paper.UploadPaper(context.Background(), author.ID, meta(title, subject), pdfFile(title+".pdf"))
	require.NoError(t, err)
	return p
}

func str(s string) *string { return &s }
