package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/sampler"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

type testServer struct {
	db      *sql.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.EnsureMetaTables(context.Background(), db))
	return &testServer{db: db, handler: NewHandler(db, sampler.New(42), Options{})}
}

func (s *testServer) do(t *testing.T, method, target, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Code, strings.TrimSpace(rec.Body.String())
}

func (s *testServer) post(t *testing.T, target, body string) (int, string) {
	return s.do(t, http.MethodPost, target, body)
}

const srsBody = `{"data":[9,10,11,18,22],"withReplacement":true,"populationSize":50,"significanceLevel":5}`

func TestEstimatorEndpoints(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name, target, body, want string
	}{
		{
			name:   "srs",
			target: "/api/estimator/srs",
			body:   srsBody,
			want:   `{"mean":14,"variance":6.5,"confidenceInterval":{"lowerBound":9.002960876679072,"upperBound":18.997039123320928,"significanceLevel":5}}`,
		},
		{
			name:   "difference model",
			target: "/api/estimator/model?modelType=diff",
			body:   `{"data":[9,10,11],"auxiliaryData":[11,11,11],"auxiliaryMean":15,"populationSize":5,"significanceLevel":5}`,
			want:   `{"mean":14,"variance":0.13333333333333333,"confidenceInterval":{"lowerBound":13.284309191526583,"upperBound":14.715690808473417,"significanceLevel":5}}`,
		},
		{
			name:   "design",
			target: "/api/estimator/design",
			body:   `{"data":[4,9,24],"inclusionProbabilities":[0.05,0.1,0.125],"populationSize":20,"significanceLevel":5}`,
			want:   `{"mean":18.1,"variance":28.810000000000016,"confidenceInterval":{"lowerBound":7.5797102701494,"upperBound":28.620289729850604,"significanceLevel":5}}`,
		},
		{
			name:   "stratified",
			target: "/api/estimator/stratified",
			body:   `{"data":[9,10,11,18,22,25],"strata":["m","m","m","f","f","f"],"stratumSizes":{"m":25,"f":75},"significanceLevel":5}`,
			want:   `{"mean":18.75,"variance":2.2383333333333337,"confidenceInterval":{"lowerBound":15.817632128580499,"upperBound":21.6823678714195,"significanceLevel":5}}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := s.post(t, tc.target, tc.body)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tc.want, body)
		})
	}
}

func TestClusterEndpoint(t *testing.T) {
	s := newTestServer(t)

	code, body := s.post(t, "/api/estimator/cluster?equalSizes=false",
		`{"data":[135,180,160,225],"clusterSizes":[50,60,40,50],"populationSize":2000,"clusterCount":4,"totalClusterCount":40,"significanceLevel":5}`)
	require.Equal(t, http.StatusOK, code, body)
	var res struct {
		Mean     float64 `json:"mean"`
		Variance float64 `json:"variance"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.InDelta(t, 3.5, res.Mean, 1e-12)
	assert.InDelta(t, 0.162, res.Variance, 1e-12)

	// cluster sizes alone select the heterogeneous estimator
	_, implicit := s.post(t, "/api/estimator/cluster",
		`{"data":[135,180,160,225],"clusterSizes":[50,60,40,50],"populationSize":2000,"clusterCount":4,"totalClusterCount":40,"significanceLevel":5}`)
	assert.Equal(t, body, implicit)

	code, _ = s.post(t, "/api/estimator/cluster?equalSizes=false",
		`{"data":[135,180],"populationSize":1000,"clusterCount":2,"totalClusterCount":20,"significanceLevel":5}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.post(t, "/api/estimator/cluster?equalSizes=maybe", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEndpointNamesAreCaseInsensitive(t *testing.T) {
	s := newTestServer(t)
	code, body := s.post(t, "/api/Estimator/srs", srsBody)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"mean":14`)

	code, body = s.post(t, "/api/Format/JSONArray", `[{"a":1}]`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"a":[1]}`, body)
}

func TestEstimatorRejectsInput(t *testing.T) {
	s := newTestServer(t)
	cases := map[string]struct{ target, body string }{
		"unequal auxiliary data": {
			"/api/estimator/model?modelType=diff",
			`{"data":[9,10,11,10],"auxiliaryData":[11,11,11],"auxiliaryMean":15,"populationSize":5,"significanceLevel":5}`,
		},
		"no model":      {"/api/estimator/model", ``},
		"unknown model": {"/api/estimator/model?modelType=sum", ``},
		"unequal inclusion probabilities": {
			"/api/estimator/design",
			`{"data":[4,9],"inclusionProbabilities":[0.05,0.1,0.125],"populationSize":20,"significanceLevel":5}`,
		},
		"unequal strata": {
			"/api/estimator/stratified",
			`{"data":[9,10,11,18,22,25],"strata":["m","m","m","f","f"],"stratumSizes":{"m":25,"f":75},"significanceLevel":5}`,
		},
		"significance level": {
			"/api/estimator/srs",
			`{"data":[9,10,11],"withReplacement":true,"significanceLevel":3}`,
		},
		"empty body":    {"/api/estimator/srs", ``},
		"malformed":     {"/api/estimator/srs", `{"data":`},
		"decimals":      {"/api/estimator/srs?decimals=16", srsBody},
		"decimals text": {"/api/estimator/srs?decimals=two", srsBody},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			code, body := s.post(t, tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, code, body)
		})
	}
}

func TestValidationErrorBody(t *testing.T) {
	s := newTestServer(t)
	code, body := s.post(t, "/api/estimator/srs", `{"data":[],"significanceLevel":5}`)
	require.Equal(t, http.StatusBadRequest, code)

	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Contains(t, resp.Errors, "data")
}

func TestNonFiniteResultsAreStrings(t *testing.T) {
	s := newTestServer(t)
	code, body := s.post(t, "/api/estimator/srs", `{"data":[5],"withReplacement":true,"significanceLevel":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"mean":5,"variance":"NaN","confidenceInterval":{"lowerBound":"NaN","upperBound":"NaN","significanceLevel":5}}`, body)
}

func TestDecimals(t *testing.T) {
	s := newTestServer(t)
	code, body := s.post(t, "/api/estimator/srs?decimals=3", srsBody)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"mean":14,"variance":6.5,"confidenceInterval":{"lowerBound":9.003,"upperBound":18.997,"significanceLevel":5}}`, body)

	_, body = s.post(t, "/api/estimator/srs?decimals=0", srsBody)
	assert.Equal(t, `{"mean":14,"variance":7,"confidenceInterval":{"lowerBound":9,"upperBound":19,"significanceLevel":5}}`, body)
}

func TestBatch(t *testing.T) {
	s := newTestServer(t)
	body := `{"items":[
		{"design":"srs","sample":` + srsBody + `},
		{"design":"model","modelType":"ratio","sample":{"data":[1],"auxiliaryData":[1,2],"auxiliaryMean":1,"populationSize":5,"significanceLevel":5}},
		{"design":"model","modelType":"sum","sample":{}},
		{"design":"stratified","sample":{"data":[9,10,11,18,22,25],"strata":["m","m","m","f","f","f"],"stratumSizes":{"m":25,"f":75},"significanceLevel":5}},
		{"design":"histogram","sample":{}}
	]}`
	code, resp := s.post(t, "/api/estimator/batch?decimals=2", body)
	require.Equal(t, http.StatusOK, code, resp)

	var out struct {
		Results []struct {
			Result *struct {
				Mean     float64 `json:"mean"`
				Variance float64 `json:"variance"`
			} `json:"result"`
			Error  string              `json:"error"`
			Errors map[string][]string `json:"errors"`
			Status int                 `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &out))
	require.Len(t, out.Results, 5)

	assert.Equal(t, http.StatusOK, out.Results[0].Status)
	assert.Equal(t, 14.0, out.Results[0].Result.Mean)
	assert.Equal(t, 6.5, out.Results[0].Result.Variance)

	assert.Equal(t, http.StatusBadRequest, out.Results[1].Status)
	assert.NotEmpty(t, out.Results[1].Errors)

	assert.Equal(t, http.StatusBadRequest, out.Results[2].Status)
	assert.Contains(t, out.Results[2].Error, "unsupported model type")

	assert.Equal(t, 18.75, out.Results[3].Result.Mean)
	assert.Equal(t, 2.24, out.Results[3].Result.Variance)

	assert.Equal(t, http.StatusBadRequest, out.Results[4].Status)
	assert.Contains(t, out.Results[4].Errors, "design")

	code, _ = s.post(t, "/api/estimator/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSampleSizeEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.post(t, "/api/samplesize/srs", `{"e":0.015,"alpha":5,"withReplacement":true,"worstCasePercentage":0.4}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "4098", body)

	code, _ = s.post(t, "/api/samplesize/srs", `{"e":0.02,"alpha":5,"withReplacement":false}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.post(t, "/api/samplesize/stratified/distribution",
		`{"stratumNames":["b","m","s"],"sampleSize":50,"stratumTotalSizes":[40,100,220],"stratumVariances":[250,120,50],"stratumCosts":[130,80,60]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"b":7,"m":16,"s":27}`, body)

	_, body = s.post(t, "/api/samplesize/stratified/distribution", `{"stratumNames":["s","p"],"sampleSize":40,"stratumTotalSizes":[200,50]}`)
	assert.Equal(t, `{"s":32,"p":8}`, body)

	code, _ = s.post(t, "/api/samplesize/stratified/distribution", `{"sampleSize":40,"stratumTotalSizes":[200,50],"stratumVariances":[1]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.post(t, "/api/samplesize/stratified/distribution", `{"sampleSize":10,"stratumTotalSizes":[5,5],"stratumVariances":[0,0]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "at least one stratum variance must be positive")
}

func TestSampleEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.post(t, "/api/sample/srs?withReplacement=true&n=6",
		`{"age":[23,54,28,58,52],"height":[165,182,169,190,175]}`)
	require.Equal(t, http.StatusOK, code)
	var numeric map[string][]float64
	require.NoError(t, json.Unmarshal([]byte(body), &numeric))
	assert.Len(t, numeric["age"], 6)

	code, body = s.post(t, "/api/sample/srs?withReplacement=true&n=3",
		`{"age":[20,34],"name":["Alex","Angelina"],"married":[true,false],"lucky numbers":[[1,2],[4]],"pet":[{"name":"Fluffy"},{"name":"Minou","kind":"cat","age":4}]}`)
	require.Equal(t, http.StatusOK, code)
	var arbitrary map[string][]any
	require.NoError(t, json.Unmarshal([]byte(body), &arbitrary))
	assert.Len(t, arbitrary, 5)

	code, _ = s.post(t, "/api/sample/srs?withReplacement=true&n=3", `{"age":[20,23],"name":["Angelina"]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.post(t, "/api/sample/srs", `{"age":[20,23]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.post(t, "/api/sample/systematic?interval=3",
		`{"age":[19,23,39,83,54,63,34],"name":["Alice","Bob","Carol","Dave","Erin","Frank","Grace"]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"age":[19,83,34],"name":["Alice","Dave","Grace"]}`, body)

	code, _ = s.post(t, "/api/sample/systematic?interval=3&firstIndex=3", `{"age":[1,2,3]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSampleSizeLimit(t *testing.T) {
	s := newTestServer(t)
	table := `{"age":[1,2],"name":["x","y"]}`

	code, body := s.post(t, "/api/sample/srs?n=9223372036854775807", table)
	require.Equal(t, http.StatusBadRequest, code, body)
	assert.Contains(t, body, `"n":["n must not exceed 1000000"]`)

	code, _ = s.post(t, "/api/sample/srs?n=1000001", table)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.post(t, "/api/sample/stratified?strataColumn=name&n=1000001", table)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.post(t, "/api/sample/srs?n=1000", table)
	require.Equal(t, http.StatusOK, code)
	var drawn map[string][]any
	require.NoError(t, json.Unmarshal([]byte(body), &drawn))
	assert.Len(t, drawn["age"], 1000)
}

func TestStratifiedSampleEndpoint(t *testing.T) {
	s := newTestServer(t)
	code, body := s.post(t, "/api/sample/stratified?strataColumn=region&n=5",
		`{"region":["n","n","n","n","n","n","s","s","s","s"],"v":[1,2,3,4,5,6,7,8,9,10]}`)
	require.Equal(t, http.StatusOK, code, body)

	var resp struct {
		Sample         map[string][]any     `json:"sample"`
		Strata         []sampler.StrataInfo `json:"strata"`
		AllocationType string               `json:"allocationType"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Len(t, resp.Sample["v"], 5)
	assert.Equal(t, "proportional", resp.AllocationType)
	require.Len(t, resp.Strata, 2)
	assert.Equal(t, 3, resp.Strata[0].SampleSize)

	code, body = s.post(t, "/api/sample/stratified?strataColumn=region&n=5&varianceColumn=v",
		`{"region":["n","n","n","n","n","n","s","s","s","s"],"v":[1,2,3,4,5,6,7,8,9,10]}`)
	require.Equal(t, http.StatusOK, code, body)
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "neyman", resp.AllocationType)
	assert.InDelta(t, 3.5, resp.Strata[0].Variance, 1e-9)
	assert.Equal(t, 3, resp.Strata[0].SampleSize)
	assert.Equal(t, 2, resp.Strata[1].SampleSize)

	code, _ = s.post(t, "/api/sample/stratified?n=5", `{"a":[1]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFormatEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.post(t, "/api/format/jsonarray",
		`[{"name":"Alice","age":54,"hasPets":false},{"name":"Bob","age":41,"hasPets":true},{"name":"Carol","age":72,"hasPets":true}]`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"name":["Alice","Bob","Carol"],"age":[54,41,72],"hasPets":[false,true,true]}`, body)

	code, _ = s.post(t, "/api/format/jsonarray", `[{"a":1},{"b":2}]`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.post(t, "/api/format/delimited",
		`{"data":"name;age\nAlice;34\nBob;22","delimiter":";","treatFirstRowAsColumnNames":true}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"name":["Alice","Bob"],"age":[34,22]}`, body)

	code, _ = s.post(t, "/api/format/delimited", `{"data":"a,b","delimiter":";;"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDatasetEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	var tbl dataset.Table
	require.NoError(t, json.Unmarshal([]byte(`{"age":[19,23,39,83,54,63,34],"name":["Alice","Bob","Carol","Dave","Erin","Frank","Grace"]}`), &tbl))
	require.NoError(t, storage.ImportTable(ctx, s.db, "people", &tbl))

	code, body := s.do(t, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Datasets []storage.DatasetInfo `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list.Datasets, 1)
	assert.Equal(t, "people", list.Datasets[0].Name)
	assert.Equal(t, int64(7), list.Datasets[0].RowCount)

	code, body = s.post(t, "/api/datasets/people/sample/systematic?interval=3", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"age":[19,83,34],"name":["Alice","Dave","Grace"]}`, body)

	code, body = s.post(t, "/api/datasets/people/sample/srs?n=3&withReplacement=false", "")
	require.Equal(t, http.StatusOK, code)
	var drawn map[string][]any
	require.NoError(t, json.Unmarshal([]byte(body), &drawn))
	assert.Len(t, drawn["name"], 3)

	_, body = s.do(t, http.MethodGet, "/api/datasets", "")
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Equal(t, int64(2), list.Datasets[0].Samples)

	code, _ = s.post(t, "/api/datasets/nobody/sample/srs?n=3", "")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, json.Unmarshal([]byte(`{"a":[1],"A":[2]}`), &tbl))
	err := storage.ImportTable(ctx, s.db, "folded", &tbl)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"status":"ok"}`, body)

	s.post(t, "/api/estimator/srs", srsBody)
	code, body = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "sampling_http_requests_total")
	assert.Contains(t, body, `sampling_estimations_total{design="srs",result="ok"}`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestUnmatchedRequestsPassMiddleware(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/Health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"status":"ok"}`, body)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/estimator/srs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	_, metrics := s.do(t, http.MethodGet, "/metrics", "")
	assert.Contains(t, metrics, `sampling_http_requests_total{code="404",route="unmatched"}`)
	assert.Contains(t, metrics, `sampling_http_requests_total{code="405",route="unmatched"}`)
	assert.Contains(t, metrics, `sampling_http_requests_total{code="200",route="/health"}`)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)

	var tbl dataset.Table
	require.NoError(t, json.Unmarshal([]byte(`{"g":["a","b","a","a"],"x":[1,null,2,3]}`), &tbl))
	require.NoError(t, storage.ImportTable(context.Background(), s.db, "small", &tbl))

	type profileBody struct {
		Rows    int `json:"rows"`
		Columns []struct {
			Name      string          `json:"name"`
			Missing   int             `json:"missing"`
			Distinct  uint64          `json:"distinct"`
			Mode      json.RawMessage `json:"mode"`
			ModeCount uint64          `json:"modeCount"`
		} `json:"columns"`
	}

	for _, req := range []struct{ method, target, body string }{
		{http.MethodGet, "/api/datasets/small/profile", ""},
		{http.MethodPost, "/api/Profile?significanceLevel=1", `{"g":["a","b","a","a"],"x":[1,null,2,3]}`},
	} {
		code, body := s.do(t, req.method, req.target, req.body)
		require.Equal(t, http.StatusOK, code, body)
		var got profileBody
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, 4, got.Rows)
		require.Len(t, got.Columns, 2)
		assert.Equal(t, "g", got.Columns[0].Name)
		assert.Equal(t, uint64(2), got.Columns[0].Distinct)
		assert.JSONEq(t, `"a"`, string(got.Columns[0].Mode))
		assert.Equal(t, uint64(3), got.Columns[0].ModeCount)
		assert.Equal(t, 1, got.Columns[1].Missing)
		assert.Equal(t, uint64(3), got.Columns[1].Distinct)
	}

	code, _ := s.do(t, http.MethodGet, "/api/datasets/small/profile?significanceLevel=50", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/datasets/missing/profile", "")
	assert.Equal(t, http.StatusNotFound, code)
}
