// Package vector wraps the hosted semantic search capability: a
// text-embedding model plus an Upstash Vector index. The ranking itself
// is external; only the query contract is relied on.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultTopK matches the hosted index contract used by the tools.
	DefaultTopK = 5

	maxResponseSizeBytes = 2 << 20

	defaultQueryAttempts = 3
	defaultRetryBase     = 300 * time.Millisecond
)

// Hit is one ranked match: the stored chunk, the structured metadata
// attached at indexing time, and the relevance score (descending order).
type Hit struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
}

// Index is the query contract a corpus exposes.
type Index interface {
	Query(ctx context.Context, text string, topK int) ([]Hit, error)
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Config holds Upstash Vector REST settings.
type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client talks to the Upstash Vector REST API. Corpora are namespaces.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	embedder   Embedder
}

func NewClient(cfg Config, embedder Embedder, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash vector url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid vector rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash vector token is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		baseURL:  baseURL,
		token:    token,
		embedder: embedder,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Namespace returns a corpus handle. The handle implements Index.
func (c *Client) Namespace(name string) *Namespace {
	return &Namespace{client: c, name: strings.TrimSpace(name)}
}

// Namespace is one corpus within the vector index.
type Namespace struct {
	client *Client
	name   string
}

var _ Index = (*Namespace)(nil)

// Document is one chunk to index. Content is also stored in metadata so
// query hits can surface it.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"-"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Vector   []float64      `json:"vector"`
}

type upsertRecord struct {
	ID       string         `json:"id"`
	Vector   []float64      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type restResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// statusError is a non-2xx REST reply. Client errors (4xx) are permanent
// and must not be retried.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vector http status=%d body=%s", e.status, e.body)
}

func (e *statusError) permanent() bool {
	return e.status < http.StatusInternalServerError
}

// Upsert embeds and stores the documents in this namespace.
func (n *Namespace) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := n.client.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	records := make([]upsertRecord, len(docs))
	for i, d := range docs {
		metadata := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			metadata[k] = v
		}
		metadata["content"] = d.Content
		records[i] = upsertRecord{ID: d.ID, Vector: vectors[i], Metadata: metadata}
	}

	_, err = n.client.exec(ctx, "upsert/"+n.name, records)
	return err
}

// Query embeds the text and returns the topK nearest chunks, best first.
// Transient index faults are retried with bounded exponential backoff.
func (n *Namespace) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("query text is empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := n.client.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	var raw json.RawMessage
	backoff := retry.WithMaxRetries(defaultQueryAttempts-1, retry.NewExponential(defaultRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := n.client.exec(ctx, "query/"+n.name, queryRequest{
			Vector:          vectors[0],
			TopK:            topK,
			IncludeMetadata: true,
		})
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.permanent() {
				return err
			}
			return retry.RetryableError(err)
		}
		raw = resp.Result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", n.name, err)
	}

	var matches []queryMatch
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &matches); err != nil {
			return nil, fmt.Errorf("decode query matches: %w", err)
		}
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		content, _ := m.Metadata["content"].(string)
		delete(m.Metadata, "content")
		hits = append(hits, Hit{Content: content, Metadata: m.Metadata, Score: m.Score})
	}
	return hits, nil
}

func (c *Client) exec(ctx context.Context, path string, payload any) (*restResponse, error) {
	if c == nil {
		return nil, errors.New("nil client")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty request path")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vector request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vector request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute vector request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read vector response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{status: resp.StatusCode, body: string(raw)}
	}

	var parsed restResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode vector response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}
