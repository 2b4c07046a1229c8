// Package auxiliary fetches supplementary prompt context from an external
// HTTP endpoint on a best-effort basis.
package auxiliary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/perbu/ragchain/pkg/httpx"
	"github.com/perbu/ragchain/pkg/result"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// FallbackContent replaces the auxiliary context whenever it cannot be used.
const FallbackContent = "No additional context found."

const (
	ReasonEmpty    = "empty content"
	ReasonStatus   = "non-2xx status"
	ReasonNetwork  = "request failed"
	ReasonDecode   = "invalid response"
	ReasonOpen     = "circuit open"
	ReasonCanceled = "canceled"
)

var (
	errStatus = errors.New("unexpected status")
	errDecode = errors.New("decode response")
)

type contextResponse struct {
	Content string `json:"content"`
}

// Doer is the subset of *fasthttp.Client the fetcher needs.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

type Fetcher struct {
	client  Doer
	url     string
	timeout time.Duration
	breaker httpx.CircuitBreaker
	logger  *logrus.Logger
}

func NewFetcher(client Doer, url string, timeout time.Duration, breaker httpx.CircuitBreaker, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		url:     url,
		timeout: timeout,
		breaker: breaker,
		logger:  logger,
	}
}

// Fetch never fails: any problem with the endpoint yields FallbackContent
// tagged with the reason.
func (f *Fetcher) Fetch(ctx context.Context) result.Text {
	// A request that is already gone says nothing about the endpoint's health.
	if err := ctx.Err(); err != nil {
		return result.Fallback(FallbackContent, ReasonCanceled)
	}

	var content string
	err := f.breaker.Execute(func() error {
		var err error
		content, err = f.get(ctx)
		return err
	})
	if err != nil {
		reason := classify(err)
		f.logger.WithError(err).WithField("reason", reason).Warn("failed to fetch external context, proceeding without it")
		return result.Fallback(FallbackContent, reason)
	}
	if content == "" {
		return result.Fallback(FallbackContent, ReasonEmpty)
	}
	return result.Ok(content)
}

func (f *Fetcher) get(ctx context.Context) (string, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := f.do(ctx, req, resp); err != nil {
		return "", err
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", fmt.Errorf("%w: %d", errStatus, code)
	}

	var body contextResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("%w: %v", errDecode, err)
	}
	return body.Content, nil
}

// do bounds the request by the configured timeout and by ctx's deadline,
// whichever comes first.
func (f *Fetcher) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return f.client.Do(req, resp)
	}
	return f.client.DoTimeout(req, resp, timeout)
}

func classify(err error) string {
	switch {
	case errors.Is(err, httpx.ErrOpen):
		return ReasonOpen
	case errors.Is(err, errStatus):
		return ReasonStatus
	case errors.Is(err, errDecode):
		return ReasonDecode
	default:
		return ReasonNetwork
	}
}
