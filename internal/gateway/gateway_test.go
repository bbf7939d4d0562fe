package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tabula-labs/tabula/internal/dataset"
	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/internal/storage"
	"github.com/tabula-labs/tabula/pkg/api"
	"github.com/tabula-labs/tabula/pkg/models"
)

// testClient wraps an authenticated HTTP client sharing one session
// cookie across requests.
type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func newTestClient(t *testing.T) (*testClient, *Gateway) {
	t.Helper()
	g := NewTestGateway(t)
	server := httptest.NewServer(g)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &testClient{
		t:      t,
		base:   server.URL,
		client: &http.Client{Jar: jar},
		token:  TestToken,
	}, g
}

func (c *testClient) do(method, path string, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	if c.token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set(api.HeaderContentType, contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *testClient) uploadCSV(filename string, content []byte) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(content)
	mw.Close()
	return c.do(http.MethodPost, api.EndpointUpload, mw.FormDataContentType(), &buf)
}

func (c *testClient) ask(question string) *http.Response {
	c.t.Helper()
	body, _ := json.Marshal(models.AskRequest{Question: question})
	return c.do(http.MethodPost, api.EndpointAsk, api.ContentTypeJSON, bytes.NewReader(body))
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	c, _ := newTestClient(t)
	c.token = ""

	resp := c.do(http.MethodGet, api.EndpointHealth, "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want 200", resp.StatusCode)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	c, _ := newTestClient(t)

	c.token = ""
	resp := c.do(http.MethodGet, api.EndpointHistory, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", resp.StatusCode)
	}

	c.token = "wrong-token"
	resp = c.do(http.MethodGet, api.EndpointHistory, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: got %d, want 401", resp.StatusCode)
	}
}

func TestUploadCSV(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.uploadCSV("Sales Data.csv", dataset.SampleSalesCSV(30, 3))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("got %d: %s", resp.StatusCode, body)
	}

	var upload models.UploadResponse
	decode(t, resp, &upload)
	if upload.Dataset != "sales_data" {
		t.Errorf("got dataset %q, want sales_data", upload.Dataset)
	}
	if upload.RowCount != 30 {
		t.Errorf("got %d rows, want 30", upload.RowCount)
	}
	if upload.Engine != "sqlite" {
		t.Errorf("got engine %q, want sqlite", upload.Engine)
	}
	if len(upload.Columns) != 7 {
		t.Errorf("got %d columns, want 7", len(upload.Columns))
	}
}

func TestUploadRejectsNonCSV(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.uploadCSV("data.xlsx", []byte("not a csv"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
}

func TestAskWithoutDataset(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.ask("How many records are there?")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", resp.StatusCode)
	}
	var errResp models.ErrorResponse
	decode(t, resp, &errResp)
	if errResp.Suggestion == "" {
		t.Error("no-dataset error should carry an upload suggestion")
	}
}

func TestAskFlow(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.uploadCSV("sales.csv", dataset.SampleSalesCSV(30, 3))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: got %d", resp.StatusCode)
	}

	resp = c.ask("How many records are there?")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("ask: got %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get(api.HeaderQueryID) == "" {
		t.Error("ask response should carry a query ID header")
	}

	var ask models.AskResponse
	decode(t, resp, &ask)
	if !strings.Contains(ask.SQL, "COUNT(*)") {
		t.Errorf("got SQL %q, want a COUNT query", ask.SQL)
	}
	if ask.Pandas == "" {
		t.Error("response should include a pandas snippet")
	}
	if ask.RowCount != 1 || len(ask.Rows) != 1 {
		t.Errorf("got row count %d, want 1", ask.RowCount)
	}
	if ask.Engine != "sqlite" || ask.Generator != "baseline" {
		t.Errorf("got engine=%s generator=%s", ask.Engine, ask.Generator)
	}
}

func TestHistoryAfterAsk(t *testing.T) {
	c, _ := newTestClient(t)

	c.uploadCSV("sales.csv", dataset.SampleSalesCSV(30, 3)).Body.Close()
	c.ask("How many records are there?").Body.Close()
	c.ask("What is the average Price?").Body.Close()

	resp := c.do(http.MethodGet, api.EndpointHistory, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	var history models.HistoryResponse
	decode(t, resp, &history)

	if len(history.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(history.Entries))
	}
	if history.Entries[0].Question != "What is the average Price?" {
		t.Errorf("entries should be newest first, got %q", history.Entries[0].Question)
	}
	if len(history.Questions) != 2 || history.Questions[0] != "What is the average Price?" {
		t.Errorf("got questions %v", history.Questions)
	}
}

func TestRejectedQuestionIsRecorded(t *testing.T) {
	c, _ := newTestClient(t)

	c.uploadCSV("sales.csv", dataset.SampleSalesCSV(30, 3)).Body.Close()

	resp := c.ask("why is the sky blue?")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodGet, api.EndpointHistory, "", nil)
	var history models.HistoryResponse
	decode(t, resp, &history)
	if len(history.Entries) != 1 {
		t.Fatalf("rejected ask should still be recorded, got %d entries", len(history.Entries))
	}
	if history.Entries[0].Outcome != "rejected" {
		t.Errorf("got outcome %q, want rejected", history.Entries[0].Outcome)
	}
}

func TestHistorySurvivesGatewayRestart(t *testing.T) {
	repo := storage.NewMemoryRepository()

	g1 := NewTestGatewayWith(t, repo, observability.NewNoopLogger())
	server1 := httptest.NewServer(g1)
	t.Cleanup(server1.Close)
	jar1, _ := cookiejar.New(nil)
	c1 := &testClient{t: t, base: server1.URL, client: &http.Client{Jar: jar1}, token: TestToken}

	c1.uploadCSV("sales.csv", dataset.SampleSalesCSV(10, 1)).Body.Close()
	c1.ask("How many records are there?").Body.Close()

	u1, _ := url.Parse(server1.URL)
	cookies := jar1.Cookies(u1)
	if len(cookies) == 0 {
		t.Fatal("first gateway should have set a session cookie")
	}

	// A second gateway over the same store stands in for a restarted
	// process. The client presents the cookie issued before the restart.
	g2 := NewTestGatewayWith(t, repo, observability.NewNoopLogger())
	server2 := httptest.NewServer(g2)
	t.Cleanup(server2.Close)
	jar2, _ := cookiejar.New(nil)
	u2, _ := url.Parse(server2.URL)
	jar2.SetCookies(u2, cookies)
	c2 := &testClient{t: t, base: server2.URL, client: &http.Client{Jar: jar2}, token: TestToken}

	resp := c2.do(http.MethodGet, api.EndpointHistory, "", nil)
	var history models.HistoryResponse
	decode(t, resp, &history)
	if len(history.Entries) != 1 {
		t.Fatalf("got %d entries after restart, want 1", len(history.Entries))
	}
	if len(history.Questions) != 1 || history.Questions[0] != "How many records are there?" {
		t.Errorf("got questions %v after restart", history.Questions)
	}
}

func TestAuditSummaryEndpoint(t *testing.T) {
	var logs bytes.Buffer
	g := NewTestGatewayWith(t, storage.NewMemoryRepository(), observability.NewJSONLogger(&logs))
	server := httptest.NewServer(g)
	t.Cleanup(server.Close)
	jar, _ := cookiejar.New(nil)
	c := &testClient{t: t, base: server.URL, client: &http.Client{Jar: jar}, token: TestToken}

	c.uploadCSV("sales.csv", dataset.SampleSalesCSV(10, 1)).Body.Close()
	c.ask("How many records are there?").Body.Close()
	c.ask("why is the sky blue?").Body.Close()

	resp := c.do(http.MethodGet, api.EndpointAudit, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	var summary observability.AuditSummary
	decode(t, resp, &summary)

	if summary.SuccessCount != 1 {
		t.Errorf("got %d successes, want 1", summary.SuccessCount)
	}
	if summary.FailureCount != 1 {
		t.Errorf("got %d failures, want 1", summary.FailureCount)
	}
	if len(summary.TopFailures) != 1 {
		t.Errorf("got top failures %v, want one reason", summary.TopFailures)
	}
	if len(summary.QueriesByEngine) != 1 || summary.QueriesByEngine[0].Engine != "sqlite" {
		t.Errorf("got engine counts %v", summary.QueriesByEngine)
	}

	c.token = ""
	resp = c.do(http.MethodGet, api.EndpointAudit, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated audit: got %d, want 401", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodGet, api.EndpointExport, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("export before any result: got %d, want 404", resp.StatusCode)
	}

	c.uploadCSV("sales.csv", dataset.SampleSalesCSV(30, 3)).Body.Close()
	c.ask("How many records are there?").Body.Close()

	resp = c.do(http.MethodGet, api.EndpointExport, "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get(api.HeaderContentType); ct != api.ContentTypeCSV {
		t.Errorf("got content type %q, want text/csv", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "query_result.csv") {
		t.Errorf("got disposition %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Errorf("got %d CSV lines, want header plus one row:\n%s", len(lines), body)
	}
}

func TestSuggestWithoutDatasetFallsBack(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodGet, api.EndpointSuggest, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	var suggest models.SuggestResponse
	decode(t, resp, &suggest)
	if len(suggest.Questions) == 0 {
		t.Error("suggest should always return questions")
	}
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodGet, api.EndpointStatus, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	var status models.StatusResponse
	decode(t, resp, &status)
	if !status.Ready {
		t.Errorf("got not ready: %+v", status)
	}
	if status.EnginesAvailable != 1 {
		t.Errorf("got %d engines, want 1", status.EnginesAvailable)
	}
	if status.ModelConfigured {
		t.Error("baseline generator should report model_configured=false")
	}
	if status.Version != "test" {
		t.Errorf("got version %q", status.Version)
	}
	if status.SessionsRecorded != 0 {
		t.Errorf("got %d recorded sessions before any ask", status.SessionsRecorded)
	}

	c.uploadCSV("sales.csv", dataset.SampleSalesCSV(10, 1)).Body.Close()
	c.ask("How many records are there?").Body.Close()

	resp = c.do(http.MethodGet, api.EndpointStatus, "", nil)
	decode(t, resp, &status)
	if status.SessionsRecorded != 1 {
		t.Errorf("got %d recorded sessions, want 1", status.SessionsRecorded)
	}
}

func TestReadyz(t *testing.T) {
	c, _ := newTestClient(t)
	c.token = ""

	resp := c.do(http.MethodGet, api.EndpointReady, "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want 200", resp.StatusCode)
	}
}

func TestAskRejectsBadJSON(t *testing.T) {
	c, _ := newTestClient(t)

	resp := c.do(http.MethodPost, api.EndpointAsk, api.ContentTypeJSON, strings.NewReader("{not json"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, api.EndpointAsk, api.ContentTypeJSON, strings.NewReader(`{"question":"  "}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank question: got %d, want 400", resp.StatusCode)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	c1, g := newTestClient(t)

	c1.uploadCSV("sales.csv", dataset.SampleSalesCSV(10, 1)).Body.Close()
	c1.ask("How many records are there?").Body.Close()

	// Second client against the same gateway gets its own session.
	server := httptest.NewServer(g)
	t.Cleanup(server.Close)
	jar, _ := cookiejar.New(nil)
	c2 := &testClient{t: t, base: server.URL, client: &http.Client{Jar: jar}, token: TestToken}

	resp := c2.do(http.MethodGet, api.EndpointHistory, "", nil)
	var history models.HistoryResponse
	decode(t, resp, &history)
	if len(history.Entries) != 0 {
		t.Errorf("new session should see no history, got %d entries", len(history.Entries))
	}

	resp = c2.ask("How many records are there?")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("new session has no dataset: got %d, want 400", resp.StatusCode)
	}
}
