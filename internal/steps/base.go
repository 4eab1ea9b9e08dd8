package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/conformer/internal/cleanup"
	"github.com/roach88/conformer/internal/harness"
	"github.com/roach88/conformer/internal/request"
)

// Scenario resource keys used by the base steps.
const (
	KeyRequest  = "request"
	KeyResponse = "response"
)

var (
	// ErrNoRequest is returned by request steps used before a request was
	// started.
	ErrNoRequest = errors.New("no request in progress")
	// ErrNoResponse is returned by response steps used before a request
	// was made.
	ErrNoResponse = errors.New("no response yet")
	// ErrAssertion is wrapped by every failed response check.
	ErrAssertion = errors.New("assertion failed")
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Base is the generic HTTP step vocabulary.
type Base struct {
	Client  *request.Client
	Tracker *cleanup.Tracker
	Logger  *slog.Logger
}

// NewBase returns a Library holding the base vocabulary:
//
//	Given log <anything>
//	Given a <METHOD> request to "<url>"
//	And the request header "<name>" is "<value>"
//	And the request body is '<body>'
//	When the request is made
//	Then the response status is <code>
//	Then the response body contains "<text>"
//	Then the response header "<name>" is "<value>"
//	And the response body is saved as "<name>"
//	And "<id>" is cleaned up by <METHOD> "<url>"
//
// URLs, header values and bodies may reference saved values as {{name}}.
func NewBase(client *request.Client, tracker *cleanup.Tracker, logger *slog.Logger) *Library {
	lib := NewLibrary(logger)
	b := &Base{Client: client, Tracker: tracker, Logger: lib.logger}

	lib.MustDefine(`log (.*)`, b.log)
	lib.MustDefine(`an? (GET|POST|PUT|PATCH|DELETE|HEAD) request to "([^"]*)"`, b.startRequest)
	lib.MustDefine(`the request header "([^"]+)" is "([^"]*)"`, b.requestHeader)
	lib.MustDefine(`the request body is '(.*)'`, b.requestBody)
	lib.MustDefine(`the request is made`, b.makeRequest)
	lib.MustDefine(`the response status is (\d{3})`, b.responseStatus)
	lib.MustDefine(`the response body contains "([^"]*)"`, b.responseBodyContains)
	lib.MustDefine(`the response header "([^"]+)" is "([^"]*)"`, b.responseHeader)
	lib.MustDefine(`the response body is saved as "([^"]+)"`, b.saveBody)
	lib.MustDefine(`"([^"]+)" is cleaned up by (GET|POST|PUT|PATCH|DELETE) "([^"]*)"`, b.cleanupBy)
	return lib
}

func (b *Base) log(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	b.Logger.Info("scenario log", "scenario", ec.ScenarioTitle, "message", args[0])
	return "", nil
}

func (b *Base) startRequest(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	ec.Scenario.Set(KeyRequest, &request.Request{
		Method: strings.ToUpper(args[0]),
		URL:    Interpolate(ec, args[1]),
		Header: map[string]string{},
	})
	return "", nil
}

func (b *Base) requestHeader(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	req, err := currentRequest(ec)
	if err != nil {
		return "", err
	}
	req.Header[args[0]] = Interpolate(ec, args[1])
	return "", nil
}

func (b *Base) requestBody(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	req, err := currentRequest(ec)
	if err != nil {
		return "", err
	}
	req.Body = []byte(Interpolate(ec, args[0]))
	return "", nil
}

func (b *Base) makeRequest(ctx context.Context, ec *harness.ExecutionContext, _ []string) (harness.Info, error) {
	req, err := currentRequest(ec)
	if err != nil {
		return "", err
	}
	resp, err := b.Client.Do(ctx, *req)
	if err != nil {
		return "", err
	}
	ec.Scenario.Set(KeyResponse, resp)
	return harness.Info(fmt.Sprintf("%s %s -> %d", req.Method, req.URL, resp.Status)), nil
}

func (b *Base) responseStatus(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	resp, err := currentResponse(ec)
	if err != nil {
		return "", err
	}
	want, err := strconv.Atoi(args[0])
	if err != nil {
		return "", err
	}
	if resp.Status != want {
		return "", fmt.Errorf("%w: status %d, want %d", ErrAssertion, resp.Status, want)
	}
	return "", nil
}

func (b *Base) responseBodyContains(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	resp, err := currentResponse(ec)
	if err != nil {
		return "", err
	}
	want := Interpolate(ec, args[0])
	if !strings.Contains(string(resp.Body), want) {
		return "", fmt.Errorf("%w: body does not contain %q", ErrAssertion, want)
	}
	return "", nil
}

func (b *Base) responseHeader(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	resp, err := currentResponse(ec)
	if err != nil {
		return "", err
	}
	want := Interpolate(ec, args[1])
	if got := resp.Header.Get(args[0]); got != want {
		return "", fmt.Errorf("%w: header %s is %q, want %q", ErrAssertion, args[0], got, want)
	}
	return "", nil
}

func (b *Base) saveBody(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	resp, err := currentResponse(ec)
	if err != nil {
		return "", err
	}
	ec.Feature.Set(args[0], strings.TrimSpace(string(resp.Body)))
	return "", nil
}

// cleanupBy registers a record with the tracker and queues the request
// that removes it. The request runs after the scenario's last step.
func (b *Base) cleanupBy(_ context.Context, ec *harness.ExecutionContext, args []string) (harness.Info, error) {
	id := Interpolate(ec, args[0])
	req := request.Request{
		Method:     strings.ToUpper(args[1]),
		URL:        Interpolate(ec, args[2]),
		TrackingID: id,
	}
	if b.Tracker != nil {
		err := b.Tracker.Register(id, map[string]any{
			"method":      req.Method,
			"url":         req.URL,
			"scenario":    ec.ScenarioTitle,
			"fingerprint": ec.Fingerprint,
		})
		if err != nil {
			return "", err
		}
	}
	ec.Scenario.QueueCleanup(req)
	return "", nil
}

// Interpolate replaces {{name}} with a string saved on the scenario or,
// failing that, on the feature. Unknown names are left as they are.
func Interpolate(ec *harness.ExecutionContext, s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := ec.Scenario.Get(name); ok {
			if str, ok := v.(string); ok {
				return str
			}
		}
		if v, ok := ec.Feature.Get(name); ok {
			if str, ok := v.(string); ok {
				return str
			}
		}
		return m
	})
}

func currentRequest(ec *harness.ExecutionContext) (*request.Request, error) {
	v, ok := ec.Scenario.Get(KeyRequest)
	if !ok {
		return nil, ErrNoRequest
	}
	req, ok := v.(*request.Request)
	if !ok {
		return nil, ErrNoRequest
	}
	return req, nil
}

func currentResponse(ec *harness.ExecutionContext) (*request.Response, error) {
	v, ok := ec.Scenario.Get(KeyResponse)
	if !ok {
		return nil, ErrNoResponse
	}
	resp, ok := v.(*request.Response)
	if !ok {
		return nil, ErrNoResponse
	}
	return resp, nil
}
