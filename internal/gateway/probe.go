package gateway

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ProbeResult is the outcome of a single reachability check.
type ProbeResult struct {
	URL     string
	Status  int
	Elapsed time.Duration
	// Code is set for failures the checkout flow would answer with a
	// fallback link.
	Code string
	Err  error
}

func (r ProbeResult) Reachable() bool { return r.Err == nil }

// Recoverable reports whether a failed probe is one the checkout flow
// survives by falling back.
func (r ProbeResult) Recoverable() bool { return r.Code != "" }

// Probe issues a GET against url. Any HTTP answer, whatever its status,
// counts as reachable.
func Probe(ctx context.Context, url string, timeout time.Duration) ProbeResult {
	client := newHTTPClient(timeout)
	defer client.CloseIdleConnections()

	res := ProbeResult{URL: url}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		res.Code, _ = transportCode(err)
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	res.Status = resp.StatusCode
	return res
}
