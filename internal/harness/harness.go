package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/feed"
	"github.com/roach88/scribe/internal/httpapi"
	"github.com/roach88/scribe/internal/store"
	"github.com/roach88/scribe/internal/testutil"
)

// Site is the site every scenario server renders links for.
var Site = feed.Site{Name: "Scribe", BaseURL: "https://scribe.test"}

const scenarioSecret = "harness-secret-0123456789"

// Harness executes one scenario against a fresh server.
type Harness struct {
	store   *store.Store
	svc     *blog.Service
	handler http.Handler
	clock   *testutil.FakeClock
	logger  *slog.Logger

	users  map[string]*blog.User
	tokens map[string]string
	vars   map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not be executed; failed
// expectations are reported in Result.Errors.
//
// Execution flow:
// 1. Create fresh in-memory database and server
// 2. Create users and issue their tokens
// 3. Execute steps with expect validation
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFakeClock(time.Time{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := blog.NewService(st, blog.WithClock(clock), blog.WithLogger(logger))
	issuer := auth.NewIssuer(scenarioSecret, 24*time.Hour).WithClock(clock.Now)
	srv := httpapi.New(svc, issuer, httpapi.Options{
		Site:   Site,
		Logger: logger,
		Now:    clock.Now,
	})

	h := &Harness{
		store:   st,
		svc:     svc,
		handler: srv.Handler(),
		clock:   clock,
		logger:  logger,
		users:   make(map[string]*blog.User),
		tokens:  make(map[string]string),
		vars:    make(map[string]string),
	}

	if err := h.setup(ctx, scenario.Users, issuer); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) setup(ctx context.Context, users []UserSpec, issuer *auth.Issuer) error {
	for i, spec := range users {
		u, err := h.svc.CreateUser(ctx, blog.NewUser{
			Username:    spec.Username,
			DisplayName: spec.DisplayName,
			Bio:         spec.Bio,
		})
		if err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if u.Username != spec.Username {
			return fmt.Errorf("user %d: username %q was stored as %q", i, spec.Username, u.Username)
		}
		token, err := issuer.Issue(auth.Identity{UserID: u.ID, Username: u.Username})
		if err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		h.users[u.Username] = u
		h.tokens[u.Username] = token
	}
	return nil
}

// executeStep performs one request and checks its expect clause.
// Mismatches are recorded in result; only harness failures are returned.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	if step.Advance > 0 {
		h.clock.Advance(step.Advance)
	}

	path := h.expand(step.Path)
	var body io.Reader
	if step.Body != nil {
		data, err := json.Marshal(h.expandValue(step.Body))
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(step.Method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if step.As != "" {
		req.Header.Set("Authorization", "Bearer "+h.tokens[step.As])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	event := TraceEvent{
		User:   step.As,
		Method: step.Method,
		Path:   step.Path,
		Status: rec.Code,
		Body:   rec.Body.String(),
	}
	result.AddTrace(event)

	h.logger.Info("step completed", "step", i, "method", step.Method, "path", path, "status", rec.Code)

	var doc interface{}
	isJSON := json.Unmarshal(rec.Body.Bytes(), &doc) == nil

	for name, field := range step.Save {
		v, ok := lookup(doc, field)
		if !isJSON || !ok {
			result.AddError(fmt.Sprintf("step %d: cannot save %q: field %q missing from response", i+1, name, field))
			continue
		}
		h.vars[name] = fmt.Sprint(v)
	}

	if step.Expect != nil {
		for _, msg := range h.checkExpect(step.Expect, rec, doc, isJSON) {
			result.AddError(fmt.Sprintf("step %d (%s %s): %s", i+1, step.Method, step.Path, msg))
		}
	}
	return nil
}

func (h *Harness) checkExpect(exp *Expect, rec *httptest.ResponseRecorder, doc interface{}, isJSON bool) []string {
	var errs []string
	if rec.Code != exp.Status {
		errs = append(errs, fmt.Sprintf("status = %d, expected %d (body: %s)", rec.Code, exp.Status, rec.Body.String()))
	}

	if len(exp.JSON) > 0 && !isJSON {
		return append(errs, "response is not JSON")
	}
	for path, want := range exp.JSON {
		got, ok := lookup(doc, path)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: missing", path))
			continue
		}
		if !valuesEqual(h.expandValue(want), got) {
			errs = append(errs, fmt.Sprintf("%s = %v, expected %v", path, got, want))
		}
	}

	if exp.Length != nil {
		arr, ok := doc.([]interface{})
		switch {
		case !ok:
			errs = append(errs, "response is not a JSON array")
		case len(arr) != *exp.Length:
			errs = append(errs, fmt.Sprintf("length = %d, expected %d", len(arr), *exp.Length))
		}
	}

	body := rec.Body.String()
	for _, s := range exp.Contains {
		if !strings.Contains(body, h.expand(s)) {
			errs = append(errs, fmt.Sprintf("body does not contain %q", s))
		}
	}
	return errs
}

var varPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// expand substitutes saved variables. Unknown variables are left as is.
func (h *Harness) expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		if v, ok := h.vars[name]; ok {
			return v
		}
		return m
	})
}

func (h *Harness) expandValue(v interface{}) interface{} {
	switch v := v.(type) {
	case string:
		return h.expand(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = h.expandValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = h.expandValue(e)
		}
		return out
	default:
		return v
	}
}
