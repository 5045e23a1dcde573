package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/tablebot/internal/domain/booking"
	"github.com/example/tablebot/internal/metrics"
)

const (
	DefaultBaseURL = "https://restaurantslots.azurewebsites.net/api/"

	listPath = "GetRestaurantSlots"
	bookPath = "BookRestaurantSlot"

	opFetch  = "fetch_slots"
	opSubmit = "submit_booking"
)

// Options tune the transport boundary. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RatePerSec  float64
	Logger      *zap.Logger
	HTTPClient  *http.Client
}

// Client talks to the restaurant slot service. One Client is shared by all
// conversations in the process.
type Client struct {
	hc          *http.Client
	base        *url.URL
	maxAttempts int
	limiter     *rate.Limiter
	log         *zap.Logger
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid slot service url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		hc:          hc,
		base:        base,
		maxAttempts: attempts,
		limiter:     rate.NewLimiter(limit, 1),
		log:         log,
	}, nil
}

// FetchSlots lists every slot the service knows for date. The date is passed
// through untouched.
func (c *Client) FetchSlots(ctx context.Context, date string) ([]booking.SlotOption, error) {
	var out []booking.SlotOption

	op := func() error {
		status, body, err := c.do(ctx, opFetch, http.MethodGet, listPath, url.Values{"date": {date}}, nil, nil)
		if err != nil {
			if errors.Is(err, booking.ErrTransport) {
				return err
			}
			return backoff.Permanent(err)
		}
		if status >= 500 {
			return fmt.Errorf("%w: list slots status=%d", booking.ErrTransport, status)
		}
		if status < 200 || status >= 300 {
			return backoff.Permanent(fmt.Errorf("%w: list slots status=%d", booking.ErrTransport, status))
		}
		var ss []booking.SlotOption
		if err := json.Unmarshal(body, &ss); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", booking.ErrDecode, err))
		}
		out = ss
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), uint64(c.maxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.log.Warn("slot listing failed, retrying",
			zap.String("date", date),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitBooking posts req once. The service answers with a bare boolean.
// idempotencyKey is sent as a header when set; it is never retried here.
func (c *Client) SubmitBooking(ctx context.Context, req booking.Request, idempotencyKey string) (bool, error) {
	jb, err := json.Marshal(req)
	if err != nil {
		return false, err
	}
	hdr := http.Header{}
	hdr.Set("content-type", "application/json")
	if idempotencyKey != "" {
		hdr.Set("idempotency-key", idempotencyKey)
	}

	status, body, err := c.do(ctx, opSubmit, http.MethodPost, bookPath, nil, hdr, jb)
	if err != nil {
		return false, err
	}
	if status < 200 || status >= 300 {
		return false, fmt.Errorf("%w: book slot status=%d", booking.ErrTransport, status)
	}
	return parseBool(body)
}

func parseBool(body []byte) (bool, error) {
	s := strings.Trim(strings.TrimSpace(string(body)), `"`)
	ok, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: expected boolean body, got %q", booking.ErrDecode, s)
	}
	return ok, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, hdr http.Header, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	u := c.base.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("accept", "application/json")

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		metrics.RecordSlotServiceCall(op, "error", time.Since(start).Seconds())
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %v", booking.ErrTransport, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	metrics.RecordSlotServiceCall(op, strconv.Itoa(res.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: read body: %v", booking.ErrTransport, err)
	}
	c.log.Debug("slot service call",
		zap.String("op", op),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res.StatusCode, b, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}
