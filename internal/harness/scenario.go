package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is an end-to-end API test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Users are created before the first step, in order.
	Users []UserSpec `yaml:"users"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// UserSpec is an account created during setup. Username must already be
// normalized (lowercase letters and digits).
type UserSpec struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name,omitempty"`
	Bio         string `yaml:"bio,omitempty"`
}

// Step is one HTTP request.
type Step struct {
	// As names the scenario user whose bearer token is sent.
	// Empty means an anonymous request.
	As string `yaml:"as,omitempty"`

	Method string                 `yaml:"method"`
	Path   string                 `yaml:"path"`
	Body   map[string]interface{} `yaml:"body,omitempty"`

	// Advance moves the clock forward before the request.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Save maps variable names to dotted paths in the JSON response.
	Save map[string]string `yaml:"save,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect validates a step's response.
type Expect struct {
	Status int `yaml:"status"`

	// JSON maps dotted paths to expected values (subset match).
	JSON map[string]interface{} `yaml:"json,omitempty"`

	// Length is the expected length of a top-level JSON array.
	Length *int `yaml:"length,omitempty"`

	// Contains lists substrings of the raw body.
	Contains []string `yaml:"contains,omitempty"`
}

// Assertion validates final state or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	// User and Slug identify a post (post_state, post_absent, feed_items).
	User string `yaml:"user,omitempty"`
	Slug string `yaml:"slug,omitempty"`

	// Expect holds expected post JSON fields (post_state).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of feed items or trace events.
	Count int `yaml:"count,omitempty"`

	// Method, Path and Status filter trace events (trace_count).
	// Path is compared against the unsubstituted template.
	Method string `yaml:"method,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Status int    `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertPostState  = "post_state"
	AssertPostAbsent = "post_absent"
	AssertFeedItems  = "feed_items"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var validMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	users := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if users[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		users[u.Username] = true
	}

	for i, step := range s.Steps {
		if !validMethods[step.Method] {
			return fmt.Errorf("steps[%d]: unsupported method %q", i, step.Method)
		}
		if len(step.Path) == 0 || step.Path[0] != '/' {
			return fmt.Errorf("steps[%d]: path must start with /", i)
		}
		if step.As != "" && !users[step.As] {
			return fmt.Errorf("steps[%d]: unknown user %q", i, step.As)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must be non-negative", i)
		}
		if step.Expect != nil && step.Expect.Status == 0 {
			return fmt.Errorf("steps[%d].expect: status is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], users); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, users map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPostState, AssertPostAbsent:
		if !users[a.User] {
			return fmt.Errorf("assertions[%d]: known user is required for %s", index, a.Type)
		}
		if a.Slug == "" {
			return fmt.Errorf("assertions[%d]: slug is required for %s", index, a.Type)
		}
		if a.Type == AssertPostState && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for post_state", index)
		}
	case AssertFeedItems:
		if !users[a.User] {
			return fmt.Errorf("assertions[%d]: known user is required for feed_items", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for feed_items", index)
		}
	case AssertTraceCount:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
