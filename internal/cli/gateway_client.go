package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"time"

	"github.com/tabula-labs/tabula/internal/observability"
	"github.com/tabula-labs/tabula/pkg/api"
	"github.com/tabula-labs/tabula/pkg/models"
)

// GatewayClient is the HTTP client for a running tabula gateway. The
// client keeps the session cookie, so an upload followed by questions
// lands in the same gateway session.
type GatewayClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(endpoint, token string) *GatewayClient {
	jar, _ := cookiejar.New(nil)
	return &GatewayClient{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Jar:     jar,
		},
	}
}

// Endpoint returns the configured gateway endpoint.
func (c *GatewayClient) Endpoint() string {
	return c.endpoint
}

// HealthInfo is the gateway liveness payload.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// GetHealthInfo checks gateway liveness.
func (c *GatewayClient) GetHealthInfo(ctx context.Context) (*HealthInfo, error) {
	resp, err := c.doRequest(ctx, "GET", api.EndpointHealth, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}

// GetStatus retrieves operational status from the gateway.
func (c *GatewayClient) GetStatus(ctx context.Context) (*models.StatusResponse, error) {
	resp, err := c.doRequest(ctx, "GET", api.EndpointStatus, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var status models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// Upload sends a CSV file to the gateway and binds it to the session.
func (c *GatewayClient) Upload(ctx context.Context, path string) (*models.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, "POST", api.EndpointUpload, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var result models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Ask sends a question about the session's dataset.
func (c *GatewayClient) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	body, _ := json.Marshal(models.AskRequest{Question: question})
	resp, err := c.doRequest(ctx, "POST", api.EndpointAsk, api.ContentTypeJSON, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var result models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Suggest retrieves starter questions for the session's dataset.
func (c *GatewayClient) Suggest(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, "GET", api.EndpointSuggest, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var result models.SuggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Questions, nil
}

// History retrieves the session's stored interactions.
func (c *GatewayClient) History(ctx context.Context) (*models.HistoryResponse, error) {
	resp, err := c.doRequest(ctx, "GET", api.EndpointHistory, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var result models.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetAuditSummary retrieves aggregated audit statistics.
func (c *GatewayClient) GetAuditSummary(ctx context.Context) (*observability.AuditSummary, error) {
	resp, err := c.doRequest(ctx, "GET", api.EndpointAudit, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}
	var summary observability.AuditSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &summary, nil
}

// Export streams the last result CSV to w.
func (c *GatewayClient) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.doRequest(ctx, "GET", api.EndpointExport, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// doRequest performs an HTTP request to the gateway.
func (c *GatewayClient) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no gateway endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set(api.HeaderContentType, contentType)
	}
	if c.token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable at %s: %w", c.endpoint, err)
	}
	return resp, nil
}

// parseErrorResponse parses an error envelope from the gateway.
func (c *GatewayClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("gateway error: %d - %s", resp.StatusCode, string(body))
	}

	if errResp.Reason != "" {
		return fmt.Errorf("%s: %s", errResp.Error, errResp.Reason)
	}
	return fmt.Errorf("%s", errResp.Error)
}
