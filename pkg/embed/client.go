// Package embed provides a client for a CLIP-style embedding sidecar.
// The sidecar holds the pretrained vision-language model; this client
// only moves bytes and vectors.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the embedding operations used for zero-shot
// classification.
type Client interface {
	// TextEmbeddings embeds each prompt, returning one vector per prompt
	// in input order.
	TextEmbeddings(ctx context.Context, prompts []string) ([][]float64, error)
	// ImageEmbedding embeds a raw encoded image (JPEG/PNG bytes).
	ImageEmbedding(ctx context.Context, image []byte) ([]float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an embedding client for the sidecar at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textRequest struct {
	Texts []string `json:"texts"`
}

type textResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type imageResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *httpClient) TextEmbeddings(ctx context.Context, prompts []string) ([][]float64, error) {
	payload, err := json.Marshal(textRequest{Texts: prompts})
	if err != nil {
		return nil, eris.Wrap(err, "embed: marshal text request")
	}

	body, err := c.post(ctx, "/embed/text", "application/json", payload)
	if err != nil {
		return nil, err
	}

	var result textResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "embed: unmarshal text response")
	}
	if len(result.Embeddings) != len(prompts) {
		return nil, eris.Errorf("embed: got %d embeddings for %d prompts", len(result.Embeddings), len(prompts))
	}
	return result.Embeddings, nil
}

func (c *httpClient) ImageEmbedding(ctx context.Context, image []byte) ([]float64, error) {
	body, err := c.post(ctx, "/embed/image", "application/octet-stream", image)
	if err != nil {
		return nil, err
	}

	var result imageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "embed: unmarshal image response")
	}
	if len(result.Embedding) == 0 {
		return nil, eris.New("embed: empty image embedding")
	}
	return result.Embedding, nil
}

func (c *httpClient) post(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "embed: create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "embed: POST %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "embed: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("embed: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
