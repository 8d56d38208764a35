package profiles

import (
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// labelPair is a single sorted-by-key label entry.
type labelPair struct {
	Key, Value string
}

// Labels is a sorted, immutable label set. Labels, ResponseClasses and
// Retries are all held behind a pointer in Route specifically so that two Route
// values compare equal (==) only when they share the same underlying
// allocation — the "pointer-identity equality" contract from spec.md §3/§9.
// Structurally identical-but-distinct Labels are deliberately NOT equal.
type Labels struct {
	pairs []labelPair
}

// NewLabels builds a Labels sorted by key from an unordered map, regardless
// of the iteration order Go gives map ranges (spec.md §8 round-trip
// property).
func NewLabels(from map[string]string) *Labels {
	pairs := make([]labelPair, 0, len(from))
	for k, v := range from {
		pairs = append(pairs, labelPair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return &Labels{pairs: pairs}
}

// EmptyLabels is the shared empty label set used by the default route.
var EmptyLabels = &Labels{}

// Map returns the labels as an ordinary map, for callers that need one
// (e.g. exporting to metrics label sets).
func (l *Labels) Map() map[string]string {
	if l == nil {
		return nil
	}
	out := make(map[string]string, len(l.pairs))
	for _, p := range l.pairs {
		out[p.Key] = p.Value
	}
	return out
}

// Len reports how many labels are set.
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.pairs)
}

// ResponseClasses is an ordered, immutable list of ResponseClass entries,
// held behind a pointer for the same identity-equality reason as Labels.
type ResponseClasses struct {
	classes []ResponseClass
}

// NewResponseClasses wraps an ordered slice of ResponseClass.
func NewResponseClasses(classes []ResponseClass) *ResponseClasses {
	return &ResponseClasses{classes: append([]ResponseClass(nil), classes...)}
}

// EmptyResponseClasses is the shared empty list used by the default route.
var EmptyResponseClasses = &ResponseClasses{}

// Classify returns the first ResponseClass whose Match matches the given
// status code, in list order, or false if none match.
func (rc *ResponseClasses) Classify(status int) (ResponseClass, bool) {
	if rc == nil {
		return ResponseClass{}, false
	}
	for _, c := range rc.classes {
		if c.Match.MatchResponse(status) {
			return c, true
		}
	}
	return ResponseClass{}, false
}

// Budget is a token-bucket rate limiter governing retry issuance, shared by
// reference among clones of the same Route (spec.md §3 Retries.Budget). It
// wraps golang.org/x/time/rate rather than hand-rolling the bucket
// arithmetic; now is kept injectable so tests can drive refill
// deterministically without real sleeps.
type Budget struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewBudget creates a Budget with the given bucket size and refill rate
// (tokens per second).
func NewBudget(max float64, fillPerSecond float64) *Budget {
	return &Budget{
		limiter: rate.NewLimiter(rate.Limit(fillPerSecond), int(max)),
		now:     time.Now,
	}
}

// TryWithdraw attempts to spend one token for a retry. It returns false if
// the bucket is empty, meaning the caller should not retry.
func (b *Budget) TryWithdraw() bool {
	return b.limiter.AllowN(b.now(), 1)
}

// Deposit returns a token to the bucket, e.g. after an underlying request
// succeeds without needing the retry it reserved.
func (b *Budget) Deposit() {
	b.limiter.AllowN(b.now(), -1)
}

// Retries is the optional per-route retry policy.
type Retries struct {
	Budget *Budget
}

// Route is a named, labelled HTTP request-handling configuration with
// optional retry and timeout policy (spec.md §3). The zero-value-shaped
// DefaultRoute has empty labels, empty classes, no retries and no timeout.
//
// Route deliberately compares by pointer identity of its Labels,
// ResponseClasses and Retries fields, not by structural equality — this is
// what lets the Profile Router use Route as a cheap cache key (spec.md §9
// "Pointer-identity equality").
type Route struct {
	Labels          *Labels
	ResponseClasses *ResponseClasses
	Retries         *Retries
	HasTimeout      bool
	Timeout         time.Duration
}

// DefaultRoute returns the shared default route: empty labels, empty
// classes, no retries, no timeout. Stored once at router construction and
// cloned per dispatch so that pointer equality is preserved across
// requests (spec.md §4.3 "Default route").
func DefaultRoute() Route {
	return Route{
		Labels:          EmptyLabels,
		ResponseClasses: EmptyResponseClasses,
	}
}

// NewRoute builds a Route from an unordered label iterable and an ordered
// class list, sorting labels by key as required by spec.md §8's
// round-trip property.
func NewRoute(labels map[string]string, classes []ResponseClass) Route {
	return Route{
		Labels:          NewLabels(labels),
		ResponseClasses: NewResponseClasses(classes),
	}
}

// WithRetries returns a copy of r with Retries set, sharing the given
// Budget by reference.
func (r Route) WithRetries(budget *Budget) Route {
	r.Retries = &Retries{Budget: budget}
	return r
}

// WithTimeout returns a copy of r with a timeout policy attached.
func (r Route) WithTimeout(d time.Duration) Route {
	r.HasTimeout = true
	r.Timeout = d
	return r
}

// Routes is an ordered list of (RequestMatch, Route) pairs; list order
// defines match precedence (spec.md §3).
type Routes []RouteRule

// RouteRule pairs a RequestMatch with the Route to use when it matches.
type RouteRule struct {
	Match RequestMatch
	Route Route
}

// Recognize walks rules in order and returns the first Route whose Match
// matches req, or def if none match (spec.md §4.3 "Recognition", §8
// invariant "the chosen route equals the first (m, r) in T with
// m.is_match(R), else the default").
func (rs Routes) Recognize(req *http.Request, def Route) Route {
	for _, rule := range rs {
		if rule.Match.MatchRequest(req) {
			return rule.Route
		}
	}
	return def
}
