package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/scribe/internal/blog"
)

// AssertionContext gives assertions access to the scenario's server and
// database.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPostState:
			err = assertPostState(actx, a)
		case AssertPostAbsent:
			err = assertPostAbsent(actx, a)
		case AssertFeedItems:
			err = assertFeedItems(actx, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) {
				ae.Trace = result.Trace
			}
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// postDocument is the JSON form of a stored post plus its derived fields.
func postDocument(p *blog.Post) (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc["state"] = blog.StateOf(p).String()
	doc["reading_minutes"] = float64(p.ReadingTime())
	return doc, nil
}

func assertPostState(actx *AssertionContext, a Assertion) error {
	u := actx.Harness.users[a.User]
	p, err := actx.Harness.store.PostBySlug(actx.Ctx, u.ID, a.Slug)
	if errors.Is(err, blog.ErrNotFound) {
		return &AssertionError{
			Type:     AssertPostState,
			Expected: fmt.Sprintf("post %s/%s", a.User, a.Slug),
			Actual:   "not found",
		}
	}
	if err != nil {
		return err
	}

	doc, err := postDocument(p)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want := actx.Harness.expandValue(a.Expect[k])
		got, ok := lookup(doc, k)
		if !ok || !valuesEqual(want, got) {
			return &AssertionError{
				Type:     AssertPostState,
				Expected: fmt.Sprintf("%s/%s %s = %v", a.User, a.Slug, k, want),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

func assertPostAbsent(actx *AssertionContext, a Assertion) error {
	u := actx.Harness.users[a.User]
	p, err := actx.Harness.store.PostBySlug(actx.Ctx, u.ID, a.Slug)
	if errors.Is(err, blog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &AssertionError{
		Type:     AssertPostAbsent,
		Expected: fmt.Sprintf("no post %s/%s", a.User, a.Slug),
		Actual:   fmt.Sprintf("post %s (%s)", p.ID, blog.StateOf(p)),
	}
}

func assertFeedItems(actx *AssertionContext, a Assertion) error {
	req := httptest.NewRequest(http.MethodGet, "/@"+a.User+"/feed.xml", nil)
	rec := httptest.NewRecorder()
	actx.Harness.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		return &AssertionError{
			Type:     AssertFeedItems,
			Expected: "feed status 200",
			Actual:   fmt.Sprintf("status %d: %s", rec.Code, rec.Body.String()),
		}
	}
	if n := strings.Count(rec.Body.String(), "<item>"); n != a.Count {
		return &AssertionError{
			Type:     AssertFeedItems,
			Expected: fmt.Sprintf("%d items in feed of %s", a.Count, a.User),
			Actual:   fmt.Sprintf("%d items", n),
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count steps match the filter.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, e := range trace {
		if e.Path != a.Path {
			continue
		}
		if a.Method != "" && e.Method != a.Method {
			continue
		}
		if a.Status != 0 && e.Status != a.Status {
			continue
		}
		count++
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s %s (status %d) exactly %d times", a.Method, a.Path, a.Status, a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// lookup resolves a dotted path ("post.slug", "posts.0.title") in a
// decoded JSON document. An empty path returns doc itself.
func lookup(doc interface{}, path string) (interface{}, bool) {
	if path == "" {
		return doc, true
	}
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// valuesEqual compares a YAML-decoded expectation with a JSON-decoded
// value. Both sides are normalized through JSON so that integers and
// float64 compare equal.
func valuesEqual(want, got interface{}) bool {
	return reflect.DeepEqual(normalize(want), normalize(got))
}

func normalize(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
