// Package vision resolves case color from a listing photo via zero-shot
// classification against two text prompts. It is a strictly best-effort
// fallback behind the textual heuristic: every failure path yields an
// unresolved color, never an error.
package vision

import (
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/pkg/embed"
)

var prompts = []string{"white computer case", "black computer case"}

type state int

const (
	stateUnloaded state = iota
	stateLoaded
	stateDisabled
)

// Classifier performs zero-shot white/black classification. Prompt
// embeddings are fetched lazily on first use; a load failure disables
// the classifier for the remainder of the run.
type Classifier struct {
	embedder embed.Client
	http     *http.Client

	mu            sync.Mutex
	state         state
	promptVectors [][]float64 // L2-normalized, one per prompt
}

// Option configures the classifier.
type Option func(*Classifier)

// WithHTTPClient sets the client used for image fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Classifier) {
		c.http = hc
	}
}

// New creates a classifier backed by the given embedding client. A nil
// embedder produces a permanently disabled classifier.
func New(embedder embed.Client, opts ...Option) *Classifier {
	c := &Classifier{
		embedder: embedder,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	if embedder == nil {
		c.state = stateDisabled
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Disabled reports whether the classifier will never resolve a color.
func (c *Classifier) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateDisabled
}

// ensureLoaded embeds the color prompts once. Unloaded transitions to
// Loaded on success or Disabled on failure; Disabled is terminal.
func (c *Classifier) ensureLoaded(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateLoaded:
		return true
	case stateDisabled:
		return false
	}

	vecs, err := c.embedder.TextEmbeddings(ctx, prompts)
	if err != nil {
		zap.L().Warn("vision: prompt embedding failed, disabling classifier", zap.Error(err))
		c.state = stateDisabled
		return false
	}
	for i := range vecs {
		normalize(vecs[i])
	}
	c.promptVectors = vecs
	c.state = stateLoaded
	return true
}

// Classify fetches the image and returns the prompt label with the
// higher similarity. Any failure (fetch, embed, empty vectors) yields
// ColorNone.
func (c *Classifier) Classify(ctx context.Context, imageURL string) model.CaseColor {
	if imageURL == "" || !c.ensureLoaded(ctx) {
		return model.ColorNone
	}

	image, ok := c.fetchImage(ctx, imageURL)
	if !ok {
		return model.ColorNone
	}

	vec, err := c.embedder.ImageEmbedding(ctx, image)
	if err != nil {
		zap.L().Debug("vision: image embedding failed", zap.String("url", imageURL), zap.Error(err))
		return model.ColorNone
	}
	normalize(vec)

	probs := softmax([]float64{
		100 * dot(vec, c.promptVectors[0]),
		100 * dot(vec, c.promptVectors[1]),
	})
	if probs[0] > probs[1] {
		return model.ColorWhite
	}
	return model.ColorBlack
}

func (c *Classifier) fetchImage(ctx context.Context, imageURL string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Debug("vision: image fetch failed", zap.String("url", imageURL), zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return nil, false
	}
	return body, true
}

// normalize scales v to unit L2 norm in place.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// softmax converts similarity scores to a probability distribution,
// shifted by the max for numerical stability.
func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
