package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"music-api-go/circuitbreaker"
	"music-api-go/logcolors"
	"music-api-go/stats"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://music.youtube.com/youtubei/v1"
	DefaultTimeout = 15 * time.Second
)

// Upstream endpoint paths, relative to the base URL.
const (
	EndpointSearch            = "search"
	EndpointBrowse            = "browse"
	EndpointNext              = "next"
	EndpointPlayer            = "player"
	EndpointSearchSuggestions = "music/get_search_suggestions"
)

// maxErrorBody bounds how much of a failed reply is logged.
const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Language   string
	Region     string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Breaker guards every request. Nil disables it.
	Breaker *circuitbreaker.CircuitBreaker
}

// Client talks to the innertube music API.
type Client struct {
	baseURL string
	apiKey  string
	web     Context
	android Context
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// New creates a Client. Zero-valued options fall back to the public defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	android := DefaultAndroid
	if opts.Language != "" {
		android.Client.HL = opts.Language
	}
	if opts.Region != "" {
		android.Client.GL = opts.Region
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		web:     DefaultWebWithLocale(opts.Language, opts.Region),
		android: android,
		http:    httpClient,
		breaker: opts.Breaker,
	}
}

// Breaker returns the circuit breaker guarding the client, or nil.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// WebContext returns the web client context requests are sent with.
func (c *Client) WebContext() Context {
	return c.web
}

// post sends body to endpoint and decodes the reply into out.
//
// Failures come back as *FetchError. When ctx is done its error is returned
// unwrapped, whatever the transport reported.
func (c *Client) post(ctx context.Context, endpoint string, clientCtx Context, body any, mask string, query url.Values, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return parseError(endpoint, fmt.Errorf("encode body: %w", err))
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("prettyPrint", "false")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	reqURL := c.baseURL + "/" + endpoint + "?" + q.Encode()

	var raw []byte
	do := func() error {
		raw, err = c.roundTrip(ctx, endpoint, reqURL, clientCtx, payload, mask)
		return err
	}

	if c.breaker != nil {
		err = c.breaker.Do(do, func(err error) circuitbreaker.Outcome {
			switch {
			case ctx.Err() != nil:
				return circuitbreaker.OutcomeIgnore
			case errors.Is(err, ErrTransport):
				return circuitbreaker.OutcomeFailure
			default:
				return circuitbreaker.OutcomeSuccess
			}
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			log.Warnf("%s %s blocked, circuit is open (retry in %v)", logcolors.LogInnertube, endpoint, c.breaker.TimeUntilRetry())
			return transportError(endpoint, 0, err)
		}
	} else {
		err = do()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		stats.Get().RecordUpstreamFailure(endpoint)
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		stats.Get().RecordUpstreamFailure(endpoint)
		log.Warnf("%s Failed to decode %s response: %v", logcolors.LogInnertube, endpoint, err)
		return parseError(endpoint, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, endpoint, reqURL string, clientCtx Context, payload []byte, mask string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, transportError(endpoint, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", clientCtx.userAgent())
	if c.apiKey != "" {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}
	if mask != "" {
		req.Header.Set("X-Goog-FieldMask", mask)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("%s %s request failed: %v", logcolors.LogInnertube, endpoint, err)
		}
		return nil, transportError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(endpoint, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		log.Errorf("%s Unexpected status %d from %s: %s", logcolors.LogInnertube, resp.StatusCode, endpoint, string(snippet))
		return nil, transportError(endpoint, resp.StatusCode, nil)
	}

	log.Debugf("%s %s responded in %v (%d bytes)", logcolors.LogInnertube, endpoint, time.Since(start), len(raw))
	return raw, nil
}
