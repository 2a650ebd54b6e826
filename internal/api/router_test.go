package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api"
	"github.com/varunidealabs/cash-flow-analyzer/internal/api/handlers"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/export"
	"github.com/varunidealabs/cash-flow-analyzer/internal/insights"
	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs"
	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs/inmemory"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
	"golang.org/x/time/rate"
)

type MockStorageService struct {
	UploadBytesFunc  func(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	UploadFileFunc   func(ctx context.Context, objectName, filePath string) (string, error)
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, objectName, data, contentType)
	}
	return "gs://bucket/" + objectName, nil
}

func (m *MockStorageService) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, objectName, filePath)
	}
	return "gs://bucket/" + objectName, nil
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, nil
}

type MockInsightGenerator struct {
	GenerateFunc func(ctx context.Context, ledger domain.Ledger, bundle *cashflow.Bundle) *insights.Insights
}

func (m *MockInsightGenerator) Generate(ctx context.Context, ledger domain.Ledger, bundle *cashflow.Bundle) *insights.Insights {
	return m.GenerateFunc(ctx, ledger, bundle)
}

type MockNotionService struct {
	CreatePageFunc func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: "page"}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *MockNotionService) DeletePage(ctx context.Context, pageID string) error {
	return nil
}

type testServer struct {
	handler  http.Handler
	jobStore *inmemory.Store
	sessions *session.Store
	session  *session.Session
	genCalls int
}

func testLedger() domain.Ledger {
	jan := civil.Date{Year: 2024, Month: 1, Day: 5}
	feb := civil.Date{Year: 2024, Month: 2, Day: 3}
	amt := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	return domain.Ledger{
		{Date: jan, Description: "Salary", Amount: amt("50000"), Type: domain.TxCredit, Category: "Income", Year: 2024, Month: 1, YearMonth: "2024-01"},
		{Date: jan, Description: "Rent", Amount: amt("-15000"), Type: domain.TxDebit, Category: "Housing", Year: 2024, Month: 1, YearMonth: "2024-01"},
		{Date: feb, Description: "Groceries", Amount: amt("-2500.50"), Type: domain.TxDebit, Category: "Food", Year: 2024, Month: 2, YearMonth: "2024-02"},
		{Description: "Unknown fee", Amount: amt("-10"), Type: domain.TxDebit, Category: "Fees"},
	}
}

func newTestServer(t *testing.T, withIntegrations bool, limiter *rate.Limiter) *testServer {
	t.Helper()

	ts := &testServer{
		jobStore: inmemory.NewStore(),
		sessions: session.NewStore(0),
	}
	queue := inmemory.NewQueue(10, 1, ts.jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	ledger := testLedger()
	ts.session = session.New("run-1", "jan.txt", ledger, cashflow.Aggregate(ledger))
	ts.sessions.Put(ts.session)

	var gen handlers.InsightGenerator
	var notion *handlers.NotionTarget
	if withIntegrations {
		gen = &MockInsightGenerator{
			GenerateFunc: func(ctx context.Context, ledger domain.Ledger, bundle *cashflow.Bundle) *insights.Insights {
				ts.genCalls++
				return &insights.Insights{Summary: "Healthy month", HealthScore: 75}
			},
		}
		notion = &handlers.NotionTarget{Client: &MockNotionService{}, DatabaseID: "db-1"}
	}

	ts.handler = api.NewRouter(api.Deps{
		Log:        logger.NewWithWriter(io.Discard),
		Limiter:    limiter,
		Statements: handlers.NewStatementsHandler(queue, &MockStorageService{}),
		Jobs:       handlers.NewJobsHandler(ts.jobStore),
		Sessions:   handlers.NewSessionsHandler(ts.sessions, gen, notion),
	})
	return ts
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false, nil)
	rec := ts.do(http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestUploadStatement(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		data        []byte
		wantStatus  int
		wantContent string
	}{
		{"pdf", "file", []byte("%PDF-1.7\n..."), http.StatusAccepted, "application/pdf"},
		{"text", "file", []byte("01/01/2024 Salary 50,000.00 CR\n"), http.StatusAccepted, "text/plain"},
		{"png", "file", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), http.StatusUnsupportedMediaType, ""},
		{"empty", "file", []byte{}, http.StatusBadRequest, ""},
		{"wrong field", "upload", []byte("hello"), http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false, nil)
			body, ct := multipartUpload(t, tt.field, "C:\\docs\\jan statement.pdf", tt.data)

			rec := ts.do(http.MethodPost, "/api/statements", body, ct)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}

			var resp map[string]string
			decode(t, rec, &resp)
			job, err := ts.jobStore.GetJob(context.Background(), resp["job_id"])
			if err != nil {
				t.Fatalf("GetJob() error = %v", err)
			}
			if job.ContentType != tt.wantContent || job.DocumentName != "jan statement.pdf" {
				t.Errorf("job = %+v", job)
			}
			if !strings.HasPrefix(job.SourceURI, "gs://bucket/statements/") || resp["source_uri"] != job.SourceURI {
				t.Errorf("SourceURI = %q, response %q", job.SourceURI, resp["source_uri"])
			}
			if job.Status != jobs.JobStatusPending {
				t.Errorf("Status = %s", job.Status)
			}
		})
	}
}

func TestJobsEndpoints(t *testing.T) {
	ts := newTestServer(t, false, nil)
	_ = ts.jobStore.SaveJob(context.Background(), &jobs.AnalyzeStatementJob{JobID: "job-1", DocumentName: "jan.pdf", Status: jobs.JobStatusFailed})

	rec := ts.do(http.MethodGet, "/api/jobs?status=failed", nil, "")
	var list struct {
		Jobs  []jobs.AnalyzeStatementJob `json:"jobs"`
		Count int                        `json:"count"`
	}
	decode(t, rec, &list)
	if list.Count != 1 || list.Jobs[0].JobID != "job-1" {
		t.Errorf("list = %+v", list)
	}

	if rec := ts.do(http.MethodGet, "/api/jobs/job-1", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("GET job status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/jobs/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET missing job status = %d", rec.Code)
	}
}

func TestGetSession(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rec := ts.do(http.MethodGet, "/api/sessions/"+ts.session.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Session struct {
			ID     string `json:"id"`
			Bundle struct {
				Summary struct {
					TotalIncome decimal.Decimal `json:"total_income"`
				} `json:"summary"`
			} `json:"bundle"`
		} `json:"session"`
		Transactions []handlers.TransactionView `json:"transactions"`
	}
	decode(t, rec, &resp)

	if resp.Session.ID != ts.session.ID || len(resp.Transactions) != 4 {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.Session.Bundle.Summary.TotalIncome.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("total_income = %s", resp.Session.Bundle.Summary.TotalIncome)
	}
	if resp.Transactions[3].Date != nil || resp.Transactions[3].YearMonth != nil {
		t.Error("undated row should have null date")
	}
	if *resp.Transactions[0].Date != "2024-01-05" {
		t.Errorf("date = %q", *resp.Transactions[0].Date)
	}

	if rec := ts.do(http.MethodGet, "/api/sessions/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", rec.Code)
	}
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t, false, nil)
	base := "/api/sessions/" + ts.session.ID + "/transactions"

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
		wantNet    string
	}{
		{"all", "", http.StatusOK, 4, "32489.5"},
		{"debits", "?type=debit", http.StatusOK, 3, "-17510.5"},
		{"category list", "?category=food,housing", http.StatusOK, 2, "-17500.5"},
		{"date range drops undated", "?from=2024-02-01&to=2024-02-28", http.StatusOK, 1, "-2500.5"},
		{"search", "?search=SAL", http.StatusOK, 1, "50000"},
		{"bad date", "?from=02/01/2024", http.StatusBadRequest, 0, ""},
		{"reversed range", "?from=2024-03-01&to=2024-01-01", http.StatusBadRequest, 0, ""},
		{"bad type", "?type=refund", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, base+tt.query, nil, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Transactions []handlers.TransactionView `json:"transactions"`
				Totals       cashflow.Totals            `json:"totals"`
			}
			decode(t, rec, &resp)
			if len(resp.Transactions) != tt.wantCount || resp.Totals.Count != tt.wantCount {
				t.Errorf("count = %d/%d, want %d", len(resp.Transactions), resp.Totals.Count, tt.wantCount)
			}
			if !resp.Totals.Net.Equal(decimal.RequireFromString(tt.wantNet)) {
				t.Errorf("net = %s, want %s", resp.Totals.Net, tt.wantNet)
			}
		})
	}
}

func TestCharts(t *testing.T) {
	ts := newTestServer(t, false, nil)
	rec := ts.do(http.MethodGet, "/api/sessions/"+ts.session.ID+"/charts", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var charts struct {
		IncomeVsExpenses  []cashflow.MonthlyIncomeExpense `json:"income_vs_expenses"`
		SpendingBreakdown []cashflow.CategoryAmount       `json:"spending_breakdown"`
		RunningBalance    []struct {
			Date *string `json:"date"`
		} `json:"running_balance"`
	}
	decode(t, rec, &charts)
	if len(charts.IncomeVsExpenses) != 2 || len(charts.SpendingBreakdown) != 3 {
		t.Errorf("charts = %+v", charts)
	}
	if len(charts.RunningBalance) != 4 || charts.RunningBalance[3].Date != nil {
		t.Errorf("running balance = %+v", charts.RunningBalance)
	}
}

func TestInsights(t *testing.T) {
	ts := newTestServer(t, true, nil)
	path := "/api/sessions/" + ts.session.ID + "/insights"

	for i := 0; i < 2; i++ {
		rec := ts.do(http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var out insights.Insights
		decode(t, rec, &out)
		if out.Summary != "Healthy month" || out.HealthScore != 75 {
			t.Errorf("insights = %+v", out)
		}
	}
	if ts.genCalls != 1 {
		t.Errorf("generator called %d times, want 1 (cached)", ts.genCalls)
	}

	unconfigured := newTestServer(t, false, nil)
	rec := unconfigured.do(http.MethodGet, "/api/sessions/"+unconfigured.session.ID+"/insights", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d", rec.Code)
	}
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, false, nil)

	tests := []struct {
		path        string
		contentType string
		filePrefix  string
	}{
		{"/export.xlsx", export.ContentTypeXLSX, "cash_flow_analysis_"},
		{"/export.csv", export.ContentTypeCSV, "transactions_"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(http.MethodGet, "/api/sessions/"+ts.session.ID+tt.path, nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
			if !strings.Contains(rec.Header().Get("Content-Disposition"), tt.filePrefix) {
				t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
			}
			if rec.Body.Len() == 0 {
				t.Error("empty export body")
			}
		})
	}

	rec := ts.do(http.MethodGet, "/api/sessions/"+ts.session.ID+"/export.csv", nil, "")
	if !strings.HasPrefix(rec.Body.String(), "date,description,amount,type,category,year,month,year_month") {
		t.Errorf("csv header = %q", strings.SplitN(rec.Body.String(), "\n", 2)[0])
	}
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, false, nil)
	path := "/api/sessions/" + ts.session.ID

	if rec := ts.do(http.MethodDelete, path, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("first delete status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, path, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, path, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestNotionSync(t *testing.T) {
	ts := newTestServer(t, true, nil)
	rec := ts.do(http.MethodPost, "/api/sessions/"+ts.session.ID+"/notion-sync", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Result struct {
			Created int `json:"created"`
		} `json:"result"`
		DryRun bool `json:"dry_run"`
	}
	decode(t, rec, &resp)
	if resp.Result.Created != 4 || resp.DryRun {
		t.Errorf("resp = %+v", resp)
	}

	unconfigured := newTestServer(t, false, nil)
	rec = unconfigured.do(http.MethodPost, "/api/sessions/"+unconfigured.session.ID+"/notion-sync", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d", rec.Code)
	}
}

func TestRateLimitedAPI(t *testing.T) {
	ts := newTestServer(t, false, rate.NewLimiter(rate.Limit(0.001), 1))

	if rec := ts.do(http.MethodGet, "/api/sessions", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/sessions", nil, ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/health", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("health should not be rate limited, got %d", rec.Code)
	}
}
