package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"papervault/internal/domain"
)

const (
	assistantPrefix = "Act like a teacher assistant and give a brief textual response."
	noReply         = "No response from model"
)

type ChatRequest struct {
	Prompt          string   `json:"prompt"`
	Temperature     *float64 `json:"temperature"     binding:"omitempty,min=0,max=2"`
	CandidateCount  *int     `json:"candidateCount"  binding:"omitempty,min=1,max=8"`
	MaxOutputTokens *int     `json:"maxOutputTokens" binding:"omitempty,min=1,max=8192"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}

type ChatOpts struct {
	Endpoint string // 如 https://generativelanguage.googleapis.com/v1beta
	Model    string
	APIKey   string
	Timeout  time.Duration
}

type ChatService struct {
	opts ChatOpts
	http *http.Client
	log  *zap.Logger
}

func NewChatService(o ChatOpts, l *zap.Logger) *ChatService {
	if o.Timeout == 0 {
		o.Timeout = 20 * time.Second
	}
	return &ChatService{opts: o, http: &http.Client{Timeout: o.Timeout}, log: l}
}

type genPart struct {
	Text string `json:"text"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type genRequest struct {
	Contents         []genContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		CandidateCount  int     `json:"candidateCount"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type genResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
}

func upstream() error { return domain.E(domain.ErrUpstream, "chat service is unavailable") }

func (s *ChatService) Ask(ctx context.Context, in ChatRequest) (*ChatReply, error) {
	prompt := assistantPrefix
	if p := strings.TrimSpace(in.Prompt); p != "" {
		prompt += " " + p
	}
	var body genRequest
	body.Contents = []genContent{{Parts: []genPart{{Text: prompt}}}}
	body.GenerationConfig.Temperature = 0.7
	body.GenerationConfig.CandidateCount = 1
	body.GenerationConfig.MaxOutputTokens = 256
	if in.Temperature != nil {
		body.GenerationConfig.Temperature = *in.Temperature
	}
	if in.CandidateCount != nil {
		body.GenerationConfig.CandidateCount = *in.CandidateCount
	}
	if in.MaxOutputTokens != nil {
		body.GenerationConfig.MaxOutputTokens = *in.MaxOutputTokens
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(s.opts.Endpoint, "/"), s.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.opts.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		s.log.Warn("chat upstream call failed", zap.Error(err))
		return nil, upstream()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Warn("chat upstream non-200", zap.Int("status", resp.StatusCode), zap.ByteString("body", snippet))
		return nil, upstream()
	}
	var out genResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		s.log.Warn("chat upstream decode failed", zap.Error(err))
		return nil, upstream()
	}
	raw := ""
	if len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0 {
		raw = out.Candidates[0].Content.Parts[0].Text
	}
	if strings.TrimSpace(raw) == "" {
		raw = noReply
	}
	return &ChatReply{Reply: FormatReply(raw)}, nil
}

var bulletRe = regexp.MustCompile(`^\s*[-*]\s+`)

// FormatReply 以 - 或 * 开头的行转成列表项，其余为段落；内容做 HTML 转义
func FormatReply(text string) string {
	var b strings.Builder
	inList := false
	for _, line := range strings.Split(text, "\n") {
		if bulletRe.MatchString(line) {
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + html.EscapeString(bulletRe.ReplaceAllString(line, "")) + "</li>")
			continue
		}
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
		b.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	if inList {
		b.WriteString("</ul>")
	}
	return b.String()
}
