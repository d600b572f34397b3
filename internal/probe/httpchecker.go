package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// HTTPChecker probes URL endpoints with a GET. A response below 400 is
// up; 4xx/5xx is down with the status line as the reason.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, ep domain.Endpoint) Outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.Address, nil)
	if err != nil {
		return down("bad_url")
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return down(classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return down(resp.Status)
	}
	return up(start, resp.Status)
}
