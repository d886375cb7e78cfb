package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/scholarly/internal/breaker"
	"github.com/dgallion1/scholarly/internal/config"
	"github.com/dgallion1/scholarly/internal/llm"
	"github.com/dgallion1/scholarly/internal/scholar"
	"github.com/dgallion1/scholarly/internal/summarize"
)

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []llm.Request
	fn   func(req llm.Request) (*llm.Response, error)
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func replyWith(text string) func(llm.Request) (*llm.Response, error) {
	return func(llm.Request) (*llm.Response, error) {
		return &llm.Response{Generations: []llm.Generation{{Text: text}}}, nil
	}
}

// echoSection answers a section prompt with "S:<first word of the section body>".
func echoSection(req llm.Request) (*llm.Response, error) {
	const marker = "### Section Text:\n"
	body := req.Prompt[strings.LastIndex(req.Prompt, marker)+len(marker):]
	return &llm.Response{Generations: []llm.Generation{{Text: "S:" + strings.Fields(body)[0]}}}, nil
}

type fakeSearcher struct {
	papers []scholar.Paper
	err    error
	query  string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]scholar.Paper, error) {
	f.query = query
	return f.papers, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, deps Deps, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.GenerationProvider = "cohere"
	for _, m := range mutate {
		m(&cfg)
	}
	if deps.Text == nil {
		deps.Text = &fakeGenerator{fn: replyWith("ok")}
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarize.New(deps.Text, summarize.DefaultConfig(), discardLogger())
	}
	if deps.Search == nil {
		deps.Search = &fakeSearcher{}
	}
	return NewServer(deps, discardLogger(), cfg)
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	return do(t, h, http.MethodPost, target, strings.NewReader(body), "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartUpload(t *testing.T, filename string, content []byte, query string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	if query != "" {
		require.NoError(t, mw.WriteField("query", query))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := do(t, s, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend with APIs is active.", decodeBody(t, rec)["message"])

	rec = do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHumanizeForwardsSamplingParameters(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("  A warmer sentence.\n")}
	s := newTestServer(t, Deps{Text: gen})

	rec := postJSON(t, s, "/humanize-text/", `{"query":"The results were significant."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "A warmer sentence.", decodeBody(t, rec)["response"])

	req := gen.last()
	assert.Contains(t, req.Prompt, "The results were significant.")
	assert.Equal(t, 250, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.6, *req.Temperature, 1e-9)
	require.NotNil(t, req.TopK)
	assert.Equal(t, 0, *req.TopK)
	require.NotNil(t, req.TopP)
	assert.InDelta(t, 0.9, *req.TopP, 1e-9)
	assert.Equal(t, []string{"--"}, req.StopSequences)
}

func TestQueryValidation(t *testing.T) {
	s := newTestServer(t, Deps{})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing query", "/humanize-text/", `{}`, http.StatusBadRequest},
		{"blank query", "/auto-lit-review/", `{"query":"   "}`, http.StatusBadRequest},
		{"invalid json", "/humanize-text/", `{"query":`, http.StatusBadRequest},
		{"empty body", "/auto-lit-review/", ``, http.StatusBadRequest},
		{"codex bad mode", "/codex/", `{"mode":"poem","query":"x := 1"}`, http.StatusBadRequest},
		{"codex missing query", "/codex/", `{"mode":"debug"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, s, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestCodexModes(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("fixed")}
	s := newTestServer(t, Deps{Text: gen})

	for _, mode := range []string{"debug", "complete", "explain"} {
		rec := postJSON(t, s, "/codex/", `{"mode":"`+mode+`","query":"func f() {}"}`)
		require.Equal(t, http.StatusOK, rec.Code, mode)
		assert.Equal(t, "fixed", decodeBody(t, rec)["response"])
		assert.Equal(t, 400, gen.last().MaxTokens)
		assert.Contains(t, gen.last().Prompt, "func f() {}")
	}
}

func TestLitReviewTokenBudget(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("review")}
	s := newTestServer(t, Deps{Text: gen})

	rec := postJSON(t, s, "/auto-lit-review/", `{"query":"graph neural networks"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 700, gen.last().MaxTokens)
	assert.Contains(t, gen.last().Prompt, "graph neural networks")
}

func TestUpstreamFailureHidesDetails(t *testing.T) {
	gen := &fakeGenerator{fn: func(llm.Request) (*llm.Response, error) {
		return nil, &llm.StatusError{Provider: "cohere", StatusCode: 500, Message: "internal trace id 42"}
	}}
	s := newTestServer(t, Deps{Text: gen})

	rec := postJSON(t, s, "/auto-lit-review/", `{"query":"topic"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "trace id")
	assert.Equal(t, "generation service request failed", decodeBody(t, rec)["error"])
}

func TestEmptyGenerationIsBadGateway(t *testing.T) {
	gen := &fakeGenerator{fn: func(llm.Request) (*llm.Response, error) {
		return &llm.Response{}, nil
	}}
	s := newTestServer(t, Deps{Text: gen})

	rec := postJSON(t, s, "/humanize-text/", `{"query":"text"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "generation service returned no text", decodeBody(t, rec)["error"])
}

func TestGenerateText(t *testing.T) {
	t.Run("disabled without gemini", func(t *testing.T) {
		s := newTestServer(t, Deps{})
		rec := postJSON(t, s, "/generate_text/", `{"query":"hello"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("forwards raw query", func(t *testing.T) {
		gemini := &fakeGenerator{fn: replyWith("hi there")}
		s := newTestServer(t, Deps{Gemini: gemini})
		rec := postJSON(t, s, "/generate_text/", `{"query":"hello"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hi there", decodeBody(t, rec)["response"])
		assert.Equal(t, "hello", gemini.last().Prompt)
	})
}

func TestSemanticSearch(t *testing.T) {
	year := 2021
	t.Run("returns papers", func(t *testing.T) {
		fs := &fakeSearcher{papers: []scholar.Paper{
			{Title: "Attention", Authors: []string{"A. Author"}, Year: &year, Link: "https://openalex.org/W1"},
		}}
		s := newTestServer(t, Deps{Search: fs})

		rec := do(t, s, http.MethodGet, "/semantic-search/?query=attention+models", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "attention models", fs.query)
		assert.JSONEq(t, `{"papers":[{"title":"Attention","authors":["A. Author"],"year":2021,"link":"https://openalex.org/W1"}]}`, rec.Body.String())
	})

	t.Run("no results is an empty list", func(t *testing.T) {
		s := newTestServer(t, Deps{Search: &fakeSearcher{}})
		rec := do(t, s, http.MethodGet, "/semantic-search/?query=nothing", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"papers":[]}`, rec.Body.String())
	})

	t.Run("missing query", func(t *testing.T) {
		s := newTestServer(t, Deps{})
		rec := do(t, s, http.MethodGet, "/semantic-search/", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream error", func(t *testing.T) {
		s := newTestServer(t, Deps{Search: &fakeSearcher{err: &scholar.StatusError{StatusCode: 503, Body: "down"}}})
		rec := do(t, s, http.MethodGet, "/semantic-search/?query=x", nil, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "down")
	})
}

func TestSummarizeUpload(t *testing.T) {
	gen := &fakeGenerator{fn: echoSection}
	s := newTestServer(t, Deps{Text: gen})

	body, ct := multipartUpload(t, "paper.txt", []byte("1 Introduction\nalpha one\n2 Methods\nbeta two\n"), "focus on methods")
	rec := do(t, s, http.MethodPost, "/summarize-pdf/", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "S:alpha\n\nS:beta", decodeBody(t, rec)["response"])
	assert.Contains(t, gen.last().Prompt, "focus on methods")
}

func TestSummarizeUploadErrors(t *testing.T) {
	failing := &fakeGenerator{fn: func(llm.Request) (*llm.Response, error) {
		return nil, errors.New("connection refused")
	}}
	empty := &fakeGenerator{fn: replyWith("   ")}

	tests := []struct {
		name     string
		gen      llm.Generator
		filename string
		content  string
		want     int
	}{
		{"no file", nil, "", "", http.StatusBadRequest},
		{"unsupported extension", nil, "notes.exe", "hello", http.StatusBadRequest},
		{"no readable text", nil, "blank.txt", "  \n\n ", http.StatusBadRequest},
		{"every section fails upstream", failing, "paper.txt", "1 Introduction\nalpha\n", http.StatusBadGateway},
		{"every summary empty", empty, "paper.txt", "1 Introduction\nalpha\n", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Text: tt.gen})
			body, ct := multipartUpload(t, tt.filename, []byte(tt.content), "")
			rec := do(t, s, http.MethodPost, "/summarize-pdf/", body, ct)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestSummarizeUploadTooLarge(t *testing.T) {
	s := newTestServer(t, Deps{}, func(c *config.Config) { c.MaxUploadBytes = 16 })

	body, ct := multipartUpload(t, "paper.txt", bytes.Repeat([]byte("word "), 20), "")
	rec := do(t, s, http.MethodPost, "/summarize-pdf/", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSummarizeJobLifecycle(t *testing.T) {
	gen := &fakeGenerator{fn: echoSection}
	cfg := config.Defaults()
	cfg.WorkerCount = 1
	pipeline := summarize.New(gen, summarize.DefaultConfig(), discardLogger())
	orch := summarize.NewOrchestrator(cfg, pipeline, discardLogger())
	orch.Start(context.Background())
	defer orch.Stop()

	s := newTestServer(t, Deps{Text: gen, Summarizer: pipeline, Orchestrator: orch})

	body, ct := multipartUpload(t, "paper.txt", []byte("1 Introduction\nalpha\n2 Methods\nbeta\n"), "")
	rec := do(t, s, http.MethodPost, "/api/summarize/jobs", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decodeBody(t, rec)
	jobID, _ := accepted["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "queued", accepted["status"])
	assert.Equal(t, "/api/summarize/jobs/"+jobID, accepted["poll_url"])

	var snap summarize.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = do(t, s, http.MethodGet, "/api/summarize/jobs/"+jobID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		if snap.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, summarize.StatusCompleted, snap.Status, snap.Error)
	assert.Equal(t, "S:alpha\n\nS:beta", snap.Response)
	assert.Equal(t, "paper", snap.Title)
	assert.Equal(t, 2, snap.Progress.Summarized)
}

func TestJobStatusNotFound(t *testing.T) {
	orch := summarize.NewOrchestrator(config.Defaults(), summarize.New(&fakeGenerator{fn: replyWith("x")}, summarize.DefaultConfig(), nil), discardLogger())
	s := newTestServer(t, Deps{Orchestrator: orch})

	rec := do(t, s, http.MethodGet, "/api/summarize/jobs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsDisabledWithoutOrchestrator(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec := do(t, s, http.MethodGet, "/api/summarize/jobs/any", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLLMStats(t *testing.T) {
	t.Run("unavailable without stats", func(t *testing.T) {
		s := newTestServer(t, Deps{})
		rec := do(t, s, http.MethodGet, "/api/stats/llm", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("reports window", func(t *testing.T) {
		stats := llm.NewLLMStats(time.Hour)
		stats.Observe(120*time.Millisecond, nil)
		stats.Observe(30*time.Millisecond, errors.New("timeout"))
		s := newTestServer(t, Deps{Stats: stats})

		rec := do(t, s, http.MethodGet, "/api/stats/llm", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "cohere", body["provider"])
		assert.Equal(t, "fake-model", body["model"])
		inner, ok := body["stats"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 1, inner["errors"])
	})

	t.Run("includes circuit state", func(t *testing.T) {
		text := llm.NewBreaker(&fakeGenerator{fn: replyWith("x")}, breaker.DefaultConfig("test"), discardLogger())
		s := newTestServer(t, Deps{Text: text, Stats: llm.NewLLMStats(time.Hour)})

		rec := do(t, s, http.MethodGet, "/api/stats/llm", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "closed", decodeBody(t, rec)["circuit"])
	})
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s := newTestServer(t, Deps{}, func(c *config.Config) {
		c.CORSAllowedOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"auth failed for sk-ant-api03-abcDEF_123", "auth failed for sk-ant-****"},
		{"bad key sk-abcdefghijklmnop", "bad key sk-****"},
		{`GET https://x.test/v1?key=AIzaSECRET&alt=json`, `GET https://x.test/v1?key=****&alt=json`},
		{"Authorization: Bearer abc.def-ghi", "Authorization: Bearer ****"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeError(errors.New(tt.in)))
	}
	assert.Equal(t, "", SanitizeError(nil))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "paper.pdf", sanitizeFilename("../../etc/paper.pdf"))
	assert.Equal(t, "paper.pdf", sanitizeFilename(`C:\Users\me\paper.pdf`))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
}
