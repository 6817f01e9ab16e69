// File: internal/scenario/scenario.go
//
// A scenario is the declarative description of one verification flow: an
// isolated browser context, the network rules it runs under, a navigation
// with a readiness condition, and an ordered script of steps with attached
// assertions and artifact captures. The harness engine interprets scenarios;
// nothing in this package touches a browser.
package scenario

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StepKind enumerates the supported scripted actions.
type StepKind string

const (
	StepGoto         StepKind = "goto"
	StepClick        StepKind = "click"
	StepSelect       StepKind = "select"
	StepType         StepKind = "type"
	StepScroll       StepKind = "scroll"
	StepEvaluate     StepKind = "evaluate"
	StepWaitSelector StepKind = "wait_selector"
	StepWaitTimeout  StepKind = "wait_timeout"
)

// RouteAction is the policy applied to a request whose URL matches a rule.
type RouteAction string

const (
	RouteAbort    RouteAction = "abort"
	RouteContinue RouteAction = "continue"
	RouteFulfill  RouteAction = "fulfill"
)

// CaptureKind selects between a viewport and a full-document screenshot.
type CaptureKind string

const (
	CaptureViewport CaptureKind = "viewport"
	CaptureFullPage CaptureKind = "fullpage"
)

// Duration wraps time.Duration so scenario files can say "1s" or "500ms".
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON renders the duration in the string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Device describes the emulated browsing environment of a context.
// A zero Width/Height leaves the browser's default viewport untouched.
type Device struct {
	Width  int64   `json:"width,omitempty"`
	Height int64   `json:"height,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
	Mobile bool    `json:"mobile,omitempty"`
	Touch  bool    `json:"touch,omitempty"`
}

// RouteRule pairs a glob pattern over request URLs with an action. Rules are
// evaluated in insertion order; the first match wins; unmatched requests
// continue unmodified.
type RouteRule struct {
	Pattern string      `json:"pattern"`
	Action  RouteAction `json:"action"`

	// Fulfill payload; ignored for abort/continue.
	Status      int64  `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Accessor kinds.
const (
	AccessorValue      = "value"
	AccessorAttribute  = "attribute"
	AccessorText       = "text"
	AccessorExists     = "exists"
	AccessorCount      = "count"
	AccessorExpression = "expression"
)

// Predicate operators.
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpContains  = "contains"
	OpMatches   = "matches"
	OpExists    = "exists"
	OpAbsent    = "absent"
)

// Accessor names a readable piece of page state for an assertion.
type Accessor struct {
	// Kind is one of "value", "attribute", "text", "exists", "count".
	Kind      string `json:"kind"`
	Selector  string `json:"selector,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	// Expression is a JavaScript expression for accessor kind "expression".
	Expression string `json:"expression,omitempty"`
}

// Predicate is the expected condition applied to the accessor's value.
type Predicate struct {
	// Op is one of "equals", "not_equals", "contains", "matches", "exists", "absent".
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
}

// Assertion is a pure read of page state checked against a predicate.
type Assertion struct {
	Description string    `json:"description"`
	Accessor    Accessor  `json:"accessor"`
	Expect      Predicate `json:"expect"`
}

// Target names the accessor's subject for logs and error messages.
func (a *Accessor) Target() string {
	switch a.Kind {
	case AccessorExpression:
		return a.Expression
	case AccessorAttribute:
		return a.Selector + "@" + a.Attribute
	default:
		return a.Selector
	}
}

// Describe returns the human label used in report entries.
func (a *Assertion) Describe() string { return a.Description }

// Capture names an artifact to write after the step settles.
type Capture struct {
	Name string      `json:"name"`
	Kind CaptureKind `json:"kind"`
}

// Step is a single scripted action. Steps execute strictly in order; a step
// failure is fatal to its scenario.
type Step struct {
	Kind     StepKind `json:"kind"`
	Selector string   `json:"selector,omitempty"`
	// Value carries the step payload: text for "type", option value for
	// "select", expression for "evaluate", URL for "goto".
	Value string `json:"value,omitempty"`
	// Position is the scroll target for "scroll": "top" or "end".
	Position string   `json:"position,omitempty"`
	Timeout  Duration `json:"timeout,omitempty"`

	// Optional follow-ups, evaluated after the action completes.
	Assert  *Assertion `json:"assert,omitempty"`
	Capture *Capture   `json:"capture,omitempty"`
}

// Scenario is one ordered verification flow run to a pass/fail outcome.
type Scenario struct {
	Name   string      `json:"name"`
	Device Device      `json:"device,omitempty"`
	Routes []RouteRule `json:"routes,omitempty"`

	// URL is the navigation target; relative URLs resolve against the
	// harness base URL at run time.
	URL string `json:"url"`
	// ReadySelector gates the navigation: the page counts as loaded once an
	// element matching it appears.
	ReadySelector string `json:"ready_selector"`

	Steps []Step `json:"steps,omitempty"`
}

// Load reads and validates a single scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadAll reads a list of scenario files and rejects duplicate names, since
// artifact paths and report entries key on the scenario name.
func LoadAll(paths []string) ([]Scenario, error) {
	seen := make(map[string]string, len(paths))
	out := make([]Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q (in %s and %s)", s.Name, prev, p)
		}
		seen[s.Name] = p
		out = append(out, *s)
	}
	return out, nil
}

// ResolveURL resolves the scenario's target against the harness base URL.
func (s *Scenario) ResolveURL(baseURL string) (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("invalid scenario URL %q: %w", s.URL, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("cannot resolve relative URL %q without an absolute base URL (got %q)", s.URL, baseURL)
	}
	return base.ResolveReference(u).String(), nil
}

// Validate checks the scenario for structural problems before anything runs.
// Catching a broken script here is much cheaper than half-way through a run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	// The name doubles as an artifact directory component.
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("scenario name %q must not contain path separators", s.Name)
	}
	if s.URL == "" {
		return fmt.Errorf("scenario URL is required")
	}
	if s.ReadySelector == "" {
		return fmt.Errorf("ready_selector is required")
	}
	for i, r := range s.Routes {
		switch r.Action {
		case RouteAbort, RouteContinue, RouteFulfill:
		default:
			return fmt.Errorf("route %d: unknown action %q", i, r.Action)
		}
		if r.Pattern == "" {
			return fmt.Errorf("route %d: pattern is required", i)
		}
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	switch st.Kind {
	case StepGoto:
		if st.Value == "" {
			return fmt.Errorf("goto requires a value (target URL)")
		}
	case StepClick, StepWaitSelector:
		if st.Selector == "" {
			return fmt.Errorf("%s requires a selector", st.Kind)
		}
	case StepSelect, StepType:
		if st.Selector == "" {
			return fmt.Errorf("%s requires a selector", st.Kind)
		}
		if st.Value == "" {
			return fmt.Errorf("%s requires a value", st.Kind)
		}
	case StepScroll:
		if st.Position != "top" && st.Position != "end" {
			return fmt.Errorf("scroll position must be \"top\" or \"end\", got %q", st.Position)
		}
	case StepEvaluate:
		if st.Value == "" {
			return fmt.Errorf("evaluate requires a value (expression)")
		}
	case StepWaitTimeout:
		if st.Timeout <= 0 {
			return fmt.Errorf("wait_timeout requires a positive timeout")
		}
	default:
		return fmt.Errorf("unknown step kind %q", st.Kind)
	}
	if st.Assert != nil {
		if err := st.Assert.validate(); err != nil {
			return err
		}
	}
	if st.Capture != nil {
		if st.Capture.Name == "" {
			return fmt.Errorf("capture requires a name")
		}
		if st.Capture.Kind != CaptureViewport && st.Capture.Kind != CaptureFullPage {
			return fmt.Errorf("unknown capture kind %q", st.Capture.Kind)
		}
	}
	return nil
}

func (a *Assertion) validate() error {
	if a.Description == "" {
		return fmt.Errorf("assertion description is required")
	}
	switch a.Accessor.Kind {
	case AccessorValue, AccessorAttribute, AccessorText, AccessorExists, AccessorCount:
		if a.Accessor.Selector == "" {
			return fmt.Errorf("assertion %q: accessor selector is required", a.Description)
		}
	case AccessorExpression:
		if a.Accessor.Expression == "" {
			return fmt.Errorf("assertion %q: accessor expression is required", a.Description)
		}
	default:
		return fmt.Errorf("assertion %q: unknown accessor kind %q", a.Description, a.Accessor.Kind)
	}
	if a.Accessor.Kind == AccessorAttribute && a.Accessor.Attribute == "" {
		return fmt.Errorf("assertion %q: attribute accessor needs an attribute name", a.Description)
	}
	switch a.Expect.Op {
	case OpEquals, OpNotEquals, OpContains, OpMatches:
		// Value may legitimately be empty for equals/not_equals.
	case OpExists, OpAbsent:
	default:
		return fmt.Errorf("assertion %q: unknown predicate op %q", a.Description, a.Expect.Op)
	}
	return nil
}
