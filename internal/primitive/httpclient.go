package primitive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/gateway"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
)

// HTTP client errors.
var (
	// ErrNoURL indicates an HTTP call without a target URL.
	ErrNoURL = apperrors.Wrap(apperrors.ErrInvalidInput, "http call requires a url")

	// ErrUnsupportedScheme indicates a URL scheme other than http or https.
	ErrUnsupportedScheme = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported url scheme")
)

// maxResponseBytes caps how much of a response body is read back.
const maxResponseBytes = 8 << 20

// HTTPClient performs outbound HTTP requests for chains terminating in the
// http_client primitive.
type HTTPClient struct {
	client      *http.Client
	projectRoot string
	logger      *slog.Logger
	now         func() time.Time
}

// NewHTTPClient creates an HTTPClient primitive. A nil client falls back to a
// client with a 30 second timeout.
func NewHTTPClient(client *http.Client, projectRoot string, logger *slog.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		client:      client,
		projectRoot: projectRoot,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the primitive clock, for tests.
func (h *HTTPClient) WithClock(now func() time.Time) *HTTPClient {
	h.now = now
	return h
}

// Name implements gateway.Primitive.
func (h *HTTPClient) Name() string {
	return tooldomain.PrimitiveHTTPClient
}

// Execute re-validates the token against the chain's requirements, then
// performs the request. Non-2xx responses are returned as results, not
// errors; the status code travels in the result metadata.
func (h *HTTPClient) Execute(
	ctx context.Context,
	token *domain.CapabilityToken,
	chain []tooldomain.ToolDefinition,
	params *gateway.CallParams,
) (*gateway.CallResult, error) {
	if params.URL == "" {
		return nil, ErrNoURL
	}
	parsed, err := url.Parse(params.URL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperrors.Wrapf(ErrUnsupportedScheme, "scheme %q", parsed.Scheme)
	}

	required := requiredCapabilities(chain, domain.NetHTTP)
	target := domain.CallTarget{Path: params.Path}
	if len(chain) > 0 {
		target.ToolID = chain[0].ToolID
	}
	if err := domain.CheckCall(token, required, target, h.projectRoot, h.now()); err != nil {
		return nil, err
	}

	method := params.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(params.Body) > 0 {
		body = bytes.NewReader(params.Body)
	}
	request, err := http.NewRequestWithContext(ctx, method, params.URL, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build request")
	}
	for key, value := range params.Metadata {
		request.Header.Set(key, value)
	}

	response, err := h.client.Do(request)
	if err != nil {
		return nil, apperrors.Wrapf(err, "request to %q failed", params.URL)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			h.logger.WarnContext(ctx, "failed to close response body", slog.Any("error", err))
		}
	}()

	output, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read response body")
	}

	return &gateway.CallResult{
		Output:   output,
		Metadata: map[string]string{"status_code": strconv.Itoa(response.StatusCode)},
	}, nil
}
