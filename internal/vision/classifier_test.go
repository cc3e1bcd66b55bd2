package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/rotisserie/eris"

	"github.com/va-pc/buildscout/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeEmbedder returns canned vectors: prompt 0 along the x axis,
// prompt 1 along the y axis, and a configurable image vector.
type fakeEmbedder struct {
	imageVec  []float64
	textErr   error
	imageErr  error
	textCalls atomic.Int32
}

func (f *fakeEmbedder) TextEmbeddings(ctx context.Context, prompts []string) ([][]float64, error) {
	f.textCalls.Add(1)
	if f.textErr != nil {
		return nil, f.textErr
	}
	return [][]float64{{1, 0}, {0, 1}}, nil
}

func (f *fakeEmbedder) ImageEmbedding(ctx context.Context, image []byte) ([]float64, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return f.imageVec, nil
}

func imageServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClassify_White(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK)
	c := New(&fakeEmbedder{imageVec: []float64{0.9, 0.1}})

	assert.Equal(t, model.ColorWhite, c.Classify(context.Background(), srv.URL))
}

func TestClassify_Black(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK)
	c := New(&fakeEmbedder{imageVec: []float64{0.2, 0.8}})

	assert.Equal(t, model.ColorBlack, c.Classify(context.Background(), srv.URL))
}

func TestClassify_PromptsEmbeddedOnce(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK)
	f := &fakeEmbedder{imageVec: []float64{1, 0}}
	c := New(f)

	for range 3 {
		c.Classify(context.Background(), srv.URL)
	}
	assert.Equal(t, int32(1), f.textCalls.Load())
}

func TestClassify_LoadFailureDisablesForRun(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK)
	f := &fakeEmbedder{textErr: eris.New("model not ready")}
	c := New(f)

	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), srv.URL))
	assert.True(t, c.Disabled())

	// Disabled is terminal: no further load attempts.
	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), srv.URL))
	assert.Equal(t, int32(1), f.textCalls.Load())
}

func TestClassify_ImageFetchFailure(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusNotFound)
	c := New(&fakeEmbedder{imageVec: []float64{1, 0}})

	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), srv.URL))
	assert.False(t, c.Disabled(), "inference failures do not disable the classifier")
}

func TestClassify_ImageEmbeddingFailure(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, http.StatusOK)
	c := New(&fakeEmbedder{imageErr: eris.New("decode failed")})

	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), srv.URL))
	assert.False(t, c.Disabled())
}

func TestClassify_NilEmbedderDisabled(t *testing.T) {
	t.Parallel()

	c := New(nil)
	assert.True(t, c.Disabled())
	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), "https://img/x"))
}

func TestClassify_EmptyURL(t *testing.T) {
	t.Parallel()

	f := &fakeEmbedder{imageVec: []float64{1, 0}}
	c := New(f)

	assert.Equal(t, model.ColorNone, c.Classify(context.Background(), ""))
	assert.Equal(t, int32(0), f.textCalls.Load(), "no load attempt without an image")
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	probs := softmax([]float64{100, 0})
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
	assert.Greater(t, probs[0], probs[1])
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v := []float64{3, 4}
	normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	zero := []float64{0, 0}
	normalize(zero)
	assert.Equal(t, []float64{0, 0}, zero)
}
