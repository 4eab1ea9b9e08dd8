package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CompletionFunc observes each request of a series once it finished.
// err is nil only for 2xx responses.
type CompletionFunc func(req Request, resp *Response, err error)

// Series runs requests one after another. Each request is awaited before
// the next starts, so later requests may rely on earlier ones (a child is
// deleted before its parent). A failed request does not stop the series;
// all failures are joined into the returned error.
type Series struct {
	Client *Client
	// OnComplete is called after every request, in order. Optional.
	OnComplete CompletionFunc
}

// RunSeries executes reqs in order. It stops early only when ctx is done.
func (s *Series) RunSeries(ctx context.Context, reqs []Request) error {
	var errs []error
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("series aborted before request %d: %w", i, err))
			break
		}

		resp, err := s.Client.Do(ctx, req)
		if err == nil && (resp.Status < 200 || resp.Status > 299) {
			method := req.Method
			if method == "" {
				method = http.MethodGet
			}
			err = &StatusError{Method: strings.ToUpper(method), URL: req.URL, Status: resp.Status}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("request %d: %w", i, err))
			s.Client.logger.Warn("series request failed", "index", i, "url", req.URL, "error", err)
		}
		if s.OnComplete != nil {
			s.OnComplete(req, resp, err)
		}
	}
	return errors.Join(errs...)
}
