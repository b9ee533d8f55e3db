package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"papervault/internal/core/storage"
	"papervault/internal/domain"
	"papervault/pkg/utils"
)

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	sniffLen = 3072
)

// 扩展名 → 允许的声明类型
var allowedTypes = map[string]string{
	".pdf":  mimePDF,
	".doc":  mimeDOC,
	".docx": mimeDOCX,
}

// ContentTypeFor 下载时按扩展名回填类型
func ContentTypeFor(name string) string {
	if ct, ok := allowedTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// FileInput 上传的文件流与声明信息
type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type StoredFile struct {
	Key      string
	FileURL  string
	FileName string
}

type UploadGate struct {
	store     storage.Store
	maxBytes  int64
	urlPrefix string
	log       *zap.Logger
	now       func() time.Time
}

func NewUploadGate(store storage.Store, maxBytes int64, urlPrefix string, l *zap.Logger) *UploadGate {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &UploadGate{store: store, maxBytes: maxBytes, urlPrefix: urlPrefix, log: l, now: utcNow}
}

func unsupported() error {
	return domain.E(domain.ErrUnsupportedFileType, "only PDF, DOC and DOCX files are allowed")
}

func (g *UploadGate) tooLarge() error {
	return domain.E(domain.ErrFileTooLarge, fmt.Sprintf("file exceeds %d MB", g.maxBytes>>20))
}

// Accept 校验扩展名、声明类型、内容与大小，写入一个 blob
func (g *UploadGate) Accept(ctx context.Context, f FileInput) (*StoredFile, error) {
	if f.Reader == nil {
		return nil, domain.E(domain.ErrMissingFile, "file is required")
	}
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(f.Name, `\`, "/")))
	ext := strings.ToLower(filepath.Ext(name))
	want, ok := allowedTypes[ext]
	if !ok {
		return nil, unsupported()
	}
	declared, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || !strings.EqualFold(declared, want) {
		return nil, unsupported()
	}
	if f.Size > g.maxBytes {
		return nil, g.tooLarge()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Reader, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if ext == ".pdf" && !mimetype.Detect(head).Is(mimePDF) {
		return nil, unsupported()
	}

	key := fmt.Sprintf("%d-%s-%s", g.now().UnixMilli(), utils.RandHex(4), SanitizeName(name))
	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), f.Reader), max: g.maxBytes}
	if err := g.store.Upload(ctx, key, body); err != nil {
		// key 冲突时 blob 属于别人
		if !errors.Is(err, storage.ErrBlobExists) {
			if derr := g.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
				g.log.Warn("remove partial blob failed", zap.String("key", key), zap.Error(derr))
			}
		}
		if errors.Is(err, errTooLarge) || body.exceeded {
			return nil, g.tooLarge()
		}
		return nil, storeErr(g.log, "blob.upload", err)
	}
	return &StoredFile{Key: key, FileURL: g.urlPrefix + key, FileName: name}, nil
}

// KeyFromURL fileUrl → blob key
func (g *UploadGate) KeyFromURL(fileURL string) string {
	return strings.TrimPrefix(fileURL, g.urlPrefix)
}

// Discard 尽力删除 blob，失败只记日志
func (g *UploadGate) Discard(ctx context.Context, key string) {
	if err := g.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		g.log.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}

var errTooLarge = errors.New("upload exceeds size limit")

// limitedReader 超过 max 字节时返回 errTooLarge
type limitedReader struct {
	r        io.Reader
	n, max   int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		l.exceeded = true
		return n, errTooLarge
	}
	return n, err
}

// SanitizeName 只保留字母数字和 . - _，最长 100
func SanitizeName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "file"
	}
	if limit := 100 - len(ext); len(out) > limit {
		out = out[:limit]
	}
	return out + ext
}
