package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papervault/internal/core/storage"
	"papervault/internal/domain"
	"papervault/internal/testutil"
)

func newGate(t *testing.T, max int64) (*UploadGate, *recordingStore) {
	t.Helper()
	rs := &recordingStore{Store: storage.NewLocalFs(afero.NewMemMapFs())}
	g := NewUploadGate(rs, max, "/uploads", zap.NewNop())
	g.now = tick()
	return g, rs
}

func TestUploadGate_Accept(t *testing.T) {
	g, rs := newGate(t, 10<<20)
	ctx := context.Background()

	got, err := g.Accept(ctx, FileInput{Name: `C:\tmp\exam 1.pdf`, ContentType: "application/pdf", Size: int64(len(pdfBody)), Reader: strings.NewReader(pdfBody)})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{13}-[0-9a-f]{8}-exam_1\.pdf$`), got.Key)
	assert.Equal(t, "/uploads/"+got.Key, got.FileURL)
	assert.Equal(t, "exam 1.pdf", got.FileName)
	assert.Equal(t, []string{got.Key}, rs.keys)

	rc, err := rs.Download(ctx, got.Key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, pdfBody, string(b))
	assert.Equal(t, got.Key, g.KeyFromURL(got.FileURL))
}

func TestUploadGate_AcceptsWordWithParams(t *testing.T) {
	g, _ := newGate(t, 10<<20)
	ctx := context.Background()

	_, err := g.Accept(ctx, FileInput{Name: "notes.docx", ContentType: mimeDOCX, Reader: strings.NewReader("PK\x03\x04 docx")})
	require.NoError(t, err)
	_, err = g.Accept(ctx, FileInput{Name: "old.DOC", ContentType: "application/msword", Reader: strings.NewReader("doc")})
	require.NoError(t, err)
	_, err = g.Accept(ctx, FileInput{Name: "a.pdf", ContentType: "application/pdf; charset=binary", Reader: strings.NewReader(pdfBody)})
	require.NoError(t, err)
}

func TestUploadGate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		in   FileInput
		kind error
	}{
		{"no reader", FileInput{Name: "a.pdf", ContentType: mimePDF}, domain.ErrMissingFile},
		{"bad extension", FileInput{Name: "a.exe", ContentType: mimePDF, Reader: strings.NewReader(pdfBody)}, domain.ErrUnsupportedFileType},
		{"no extension", FileInput{Name: "paper", ContentType: mimePDF, Reader: strings.NewReader(pdfBody)}, domain.ErrUnsupportedFileType},
		{"mime mismatch", FileInput{Name: "a.pdf", ContentType: mimeDOC, Reader: strings.NewReader(pdfBody)}, domain.ErrUnsupportedFileType},
		{"bad mime", FileInput{Name: "a.pdf", ContentType: "", Reader: strings.NewReader(pdfBody)}, domain.ErrUnsupportedFileType},
		{"pdf not sniffed", FileInput{Name: "a.pdf", ContentType: mimePDF, Reader: strings.NewReader("<html>hi</html>")}, domain.ErrUnsupportedFileType},
		{"declared too large", FileInput{Name: "a.pdf", ContentType: mimePDF, Size: 2 << 20, Reader: strings.NewReader(pdfBody)}, domain.ErrFileTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, rs := newGate(t, 1<<20)
			_, err := g.Accept(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.kind)
			assert.Empty(t, rs.keys, "nothing stored")
		})
	}
}

func TestUploadGate_StreamTooLargeRemovesBlob(t *testing.T) {
	g, rs := newGate(t, 1<<20)
	ctx := context.Background()
	body := append([]byte(pdfBody), bytes.Repeat([]byte("x"), 2<<20)...)

	_, err := g.Accept(ctx, FileInput{Name: "big.pdf", ContentType: mimePDF, Reader: bytes.NewReader(body)})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	require.Len(t, rs.keys, 1)
	ok, err := rs.Exists(ctx, rs.keys[0])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadGate_KeyCollisionKeepsExistingBlob(t *testing.T) {
	ms := &testutil.MockStore{}
	ms.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: %q", storage.ErrBlobExists, "k"))
	g := NewUploadGate(ms, 10<<20, "/uploads", zap.NewNop())

	_, err := g.Accept(context.Background(), *pdfFile("a.pdf"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	ms.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUploadGate_WriteFailureRemovesBlob(t *testing.T) {
	ms := &testutil.MockStore{}
	ms.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	ms.On("Delete", mock.Anything, mock.Anything).Return(nil)
	g := NewUploadGate(ms, 10<<20, "/uploads", zap.NewNop())

	_, err := g.Accept(context.Background(), *pdfFile("a.pdf"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	ms.AssertNumberOfCalls(t, "Delete", 1)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "exam_1.pdf", SanitizeName("exam 1.pdf"))
	assert.Equal(t, "file.pdf", SanitizeName("考试.PDF"))
	assert.Equal(t, "a-b_c.docx", SanitizeName("a-b_c.docx"))
	long := strings.Repeat("a", 300) + ".pdf"
	assert.Len(t, SanitizeName(long), 100)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, mimePDF, ContentTypeFor("x.PDF"))
	assert.Equal(t, mimeDOCX, ContentTypeFor("x.docx"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("x"))
}
