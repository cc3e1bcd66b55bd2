package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeStore serves canned data for handler tests.
type fakeStore struct {
	builds  map[string]model.Build
	our     []model.Build
	byPrice []model.Build
	bySpecs []model.Build
	stats   *store.Stats
	err     error
}

func (f *fakeStore) UpsertBuilds(ctx context.Context, builds []model.Build) (int, error) {
	return len(builds), f.err
}

func (f *fakeStore) GetBuild(ctx context.Context, id string) (*model.Build, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.builds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (f *fakeStore) OurBuilds(ctx context.Context) ([]model.Build, error) {
	return f.our, f.err
}

func (f *fakeStore) AllBuilds(ctx context.Context) ([]model.Build, error) {
	return f.our, f.err
}

func (f *fakeStore) CompareByPrice(ctx context.Context, id string, priceRange float64, limit int) ([]model.Build, error) {
	return f.byPrice, f.err
}

func (f *fakeStore) CompareBySpecs(ctx context.Context, id string, limit int) ([]model.Build, error) {
	return f.bySpecs, f.err
}

func (f *fakeStore) Stats(ctx context.Context) (*store.Stats, error) {
	return f.stats, f.err
}

func (f *fakeStore) CreateRun(ctx context.Context, run *model.ParseRun) error { return f.err }

func (f *fakeStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, parsed int, errMsg string) error {
	return f.err
}

func (f *fakeStore) Migrate(ctx context.Context) error { return f.err }
func (f *fakeStore) Close() error                      { return nil }

func testBuild(id string, price float64) model.Build {
	return model.Build{
		ID:          id,
		Company:     "VA-PC Official",
		Title:       "Gaming PC",
		Description: "Процессор: Ryzen 5 7600",
		Price:       price,
		CPU:         "R5 7600",
		GPU:         "RTX 4060",
		RAM:         "16",
		CaseColor:   model.ColorWhite,
		VKURL:       "https://vk.com/market-7?w=product-7_42",
		ParsedAt:    time.Now(),
		IsOurBuild:  true,
	}
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{})
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestOurBuilds_Formatting(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{our: []model.Build{testBuild("7_42", 119990)}})
	rec := doRequest(t, srv, http.MethodGet, "/api/builds/our", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []buildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "119 990 руб.", resp[0].PriceFormatted)
	assert.Equal(t, "16 GB", resp[0].RAM)
	assert.Equal(t, "white", resp[0].CaseColor)
	assert.True(t, resp[0].IsOurBuild)
}

func TestOurBuilds_Placeholders(t *testing.T) {
	t.Parallel()

	build := model.Build{ID: "1_1", Price: 50000}
	srv := New(&fakeStore{our: []model.Build{build}})
	rec := doRequest(t, srv, http.MethodGet, "/api/builds/our", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []buildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Не указан", resp[0].CPU)
	assert.Equal(t, "Не указана", resp[0].GPU)
	assert.Equal(t, "Не указана", resp[0].RAM)
	assert.Equal(t, "Не определен", resp[0].CaseColor)
}

func TestGetBuild(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{builds: map[string]model.Build{"7_42": testBuild("7_42", 100000)}})
	rec := doRequest(t, srv, http.MethodGet, "/api/builds/7_42", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp buildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7_42", resp.ID)
	assert.Equal(t, "100 000 руб.", resp.PriceFormatted)
}

func TestGetBuild_NotFound(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{builds: map[string]model.Build{}})
	rec := doRequest(t, srv, http.MethodGet, "/api/builds/9_9", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComparePrice_Annotation(t *testing.T) {
	t.Parallel()

	cheaper := testBuild("2_1", 90000)
	pricier := testBuild("2_2", 110000)
	equal := testBuild("2_3", 100000)
	srv := New(&fakeStore{
		builds:  map[string]model.Build{"7_42": testBuild("7_42", 100000)},
		byPrice: []model.Build{cheaper, equal, pricier},
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/compare/price", compareRequest{BuildID: "7_42"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []buildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 3)
	assert.Equal(t, "cheaper", resp[0].PriceComparison)
	assert.Equal(t, "equal", resp[1].PriceComparison)
	assert.Equal(t, "more_expensive", resp[2].PriceComparison)
}

func TestComparePrice_TargetMissing(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{builds: map[string]model.Build{}})
	rec := doRequest(t, srv, http.MethodPost, "/api/compare/price", compareRequest{BuildID: "9_9"})

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompareSpecs(t *testing.T) {
	t.Parallel()

	rival := testBuild("3_1", 95000)
	rival.IsOurBuild = false
	srv := New(&fakeStore{
		builds:  map[string]model.Build{"7_42": testBuild("7_42", 100000)},
		bySpecs: []model.Build{rival},
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/compare/specs", compareRequest{BuildID: "7_42"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []buildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "cheaper", resp[0].PriceComparison)
}

func TestParseStart(t *testing.T) {
	t.Parallel()

	var gotGroups []int64
	var gotSource model.Source
	starter := func(groupIDs []int64, source model.Source) (string, error) {
		gotGroups = groupIDs
		gotSource = source
		return "run-1", nil
	}
	srv := New(&fakeStore{}, WithParseStarter(starter, nil))

	rec := doRequest(t, srv, http.MethodPost, "/api/parse/start", parseRequest{GroupIDs: []int64{7, 8}})

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "parsing_started", resp["status"])
	assert.Equal(t, "run-1", resp["run_id"])
	assert.Equal(t, []int64{7, 8}, gotGroups)
	assert.Equal(t, model.SourceMarket, gotSource, "source defaults to market")
}

func TestParseStart_DefaultGroups(t *testing.T) {
	t.Parallel()

	var gotGroups []int64
	starter := func(groupIDs []int64, source model.Source) (string, error) {
		gotGroups = groupIDs
		return "run-2", nil
	}
	srv := New(&fakeStore{}, WithParseStarter(starter, []int64{111}))

	rec := doRequest(t, srv, http.MethodPost, "/api/parse/start", parseRequest{Source: "wall"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{111}, gotGroups)
}

func TestParseStart_InvalidSource(t *testing.T) {
	t.Parallel()

	starter := func(groupIDs []int64, source model.Source) (string, error) { return "", nil }
	srv := New(&fakeStore{}, WithParseStarter(starter, []int64{111}))

	rec := doRequest(t, srv, http.MethodPost, "/api/parse/start", parseRequest{Source: "rss"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseStart_NotConfigured(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{})
	rec := doRequest(t, srv, http.MethodPost, "/api/parse/start", parseRequest{GroupIDs: []int64{7}})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["detail"], "token")
}

func TestStats(t *testing.T) {
	t.Parallel()

	now := time.Now()
	srv := New(&fakeStore{stats: &store.Stats{TotalBuilds: 7, OurBuilds: 2, OtherBuilds: 5, LastUpdate: &now}})
	rec := doRequest(t, srv, http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.TotalBuilds)
	assert.Equal(t, 2, resp.OurBuilds)
	assert.Equal(t, 5, resp.OtherBuilds)
}

func TestStoreError_Is500(t *testing.T) {
	t.Parallel()

	srv := New(&fakeStore{err: eris.New("store: connection refused")})
	rec := doRequest(t, srv, http.MethodGet, "/api/builds/our", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price float64
		want  string
	}{
		{119990, "119 990 руб."},
		{40000, "40 000 руб."},
		{999, "999 руб."},
		{1500000, "1 500 000 руб."},
		{0, "0 руб."},
		{119990.5, "119 990 руб."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price), "price %v", tt.price)
	}
}
