package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/auth"
	"github.com/kalehub/claude-relay/internal/proxyerr"
)

// backoffSchedule is the fixed exponential backoff for 429/529/network
// retries: 2s, 4s, 8s, for a maximum of 3 retry attempts beyond the first.
var backoffSchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Send performs the upstream call with the full retry policy: a single
// force-refresh-and-retry on 401, and up to len(backoffSchedule) further
// attempts on 429/529/network error, honoring a Retry-After header over the
// fixed schedule when upstream sends one. The returned Response's Body is
// the caller's to close; any error is a *proxyerr.Error.
func (c *Client) Send(ctx context.Context, tm *auth.TokenManager, body []byte) (*Response, error) {
	ctx, cancel := WithTimeout(ctx)
	defer cancel()

	accessToken, err := tm.GetAccessToken()
	if err != nil {
		return nil, proxyerr.New(proxyerr.NotAuthenticated, err.Error())
	}

	refreshed := false
	for attempt := 0; ; attempt++ {
		resp, err := c.Do(ctx, accessToken, body)
		if err != nil {
			if attempt < len(backoffSchedule) {
				if werr := waitOrCancel(ctx, backoffSchedule[attempt]); werr != nil {
					return nil, proxyerr.New(proxyerr.Cancelled, werr.Error())
				}
				continue
			}
			return nil, proxyerr.New(proxyerr.UpstreamTransient, err.Error())
		}

		switch {
		case resp.StatusCode == 401 && !refreshed:
			resp.Body.Close()
			refreshed = true
			newToken, rerr := tm.ForceRefresh(ctx)
			if rerr != nil {
				return nil, proxyerr.New(proxyerr.RefreshFailed, rerr.Error())
			}
			accessToken = newToken
			attempt--
			continue

		case resp.StatusCode == 401:
			resp.Body.Close()
			return nil, proxyerr.New(proxyerr.NotAuthenticated, "upstream rejected refreshed credentials")

		case resp.StatusCode == 429 || resp.StatusCode == 529:
			wait, present := retryAfter(resp.Header)
			resp.Body.Close()
			if attempt >= len(backoffSchedule) {
				return nil, proxyerr.New(proxyerr.UpstreamFatal, "upstream exhausted retry budget")
			}
			if !present {
				wait = backoffSchedule[attempt]
			}
			logrus.WithFields(logrus.Fields{"status": resp.StatusCode, "wait": wait}).Warn("upstream throttled, retrying")
			if werr := waitOrCancel(ctx, wait); werr != nil {
				return nil, proxyerr.New(proxyerr.Cancelled, werr.Error())
			}
			continue

		case resp.StatusCode >= 400:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, proxyerr.New(proxyerr.UpstreamFatal, fmt.Sprintf("upstream status %d: %s", resp.StatusCode, msg))

		default:
			return resp, nil
		}
	}
}

func retryAfter(h http.Header) (wait time.Duration, present bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func waitOrCancel(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
