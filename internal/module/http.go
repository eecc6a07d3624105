package module

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkeller/modelharness/internal/logging"
)

// wire envelope for dispatch errors. A non-200 status carries one of these.
type wireError struct {
	Error string `json:"error"`
}

// Handler serves an engine's operation surface over HTTP. Environment
// processes mount it at POST /op.
func Handler(engine Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/op", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request: %v", err))
			return
		}
		if !req.Op.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation: %s", req.Op))
			return
		}

		result, err := engine.Dispatch(r.Context(), req)
		if err != nil {
			logging.Debug("dispatch of %s failed: %v", req.Op, err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logging.Error("failed to encode dispatch result: %v", err)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(wireError{Error: msg})
}

// HTTPClient dispatches operations against an engine running in another
// process, reached at baseURL.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Dispatch(ctx context.Context, req Request) (*OperationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/op", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", req.Op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var we wireError
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &we) == nil && we.Error != "" {
			return nil, fmt.Errorf("dispatch %s: %s", req.Op, we.Error)
		}
		return nil, fmt.Errorf("dispatch %s: engine returned status %d", req.Op, resp.StatusCode)
	}

	var result OperationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}
