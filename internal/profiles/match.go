package profiles

import (
	"net/http"
	"regexp"
)

// RequestMatch is a recursive, side-effect-free predicate over an HTTP
// request (spec.md §3, §4.3 "Match semantics detail"). The boolean
// identities for empty composites are part of the contract: All([]) is
// true, Any([]) is false, Not negates.
type RequestMatch interface {
	MatchRequest(req *http.Request) bool
}

// AllRequestMatch is true only if every child matches; All([]) is true.
type AllRequestMatch []RequestMatch

// MatchRequest implements RequestMatch.
func (a AllRequestMatch) MatchRequest(req *http.Request) bool {
	for _, m := range a {
		if !m.MatchRequest(req) {
			return false
		}
	}
	return true
}

// AnyRequestMatch is true if any child matches; Any([]) is false.
type AnyRequestMatch []RequestMatch

// MatchRequest implements RequestMatch.
func (a AnyRequestMatch) MatchRequest(req *http.Request) bool {
	for _, m := range a {
		if m.MatchRequest(req) {
			return true
		}
	}
	return false
}

// NotRequestMatch negates its child.
type NotRequestMatch struct{ Match RequestMatch }

// MatchRequest implements RequestMatch.
func (n NotRequestMatch) MatchRequest(req *http.Request) bool {
	return !n.Match.MatchRequest(req)
}

// PathRequestMatch matches the request's URI path (not including query)
// against a compiled regular expression.
type PathRequestMatch struct{ Path *regexp.Regexp }

// NewPathRequestMatch compiles pattern and returns a PathRequestMatch.
func NewPathRequestMatch(pattern string) (PathRequestMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return PathRequestMatch{}, err
	}
	return PathRequestMatch{Path: re}, nil
}

// MatchRequest implements RequestMatch.
func (p PathRequestMatch) MatchRequest(req *http.Request) bool {
	return p.Path.MatchString(req.URL.Path)
}

// MethodRequestMatch matches the request method by exact equality.
type MethodRequestMatch struct{ Method string }

// MatchRequest implements RequestMatch.
func (m MethodRequestMatch) MatchRequest(req *http.Request) bool {
	return req.Method == m.Method
}

// ResponseMatch is the symmetric predicate over an HTTP response status
// code, used to build ResponseClass entries.
type ResponseMatch interface {
	MatchResponse(statusCode int) bool
}

// AllResponseMatch is true only if every child matches; All([]) is true.
type AllResponseMatch []ResponseMatch

// MatchResponse implements ResponseMatch.
func (a AllResponseMatch) MatchResponse(status int) bool {
	for _, m := range a {
		if !m.MatchResponse(status) {
			return false
		}
	}
	return true
}

// AnyResponseMatch is true if any child matches; Any([]) is false.
type AnyResponseMatch []ResponseMatch

// MatchResponse implements ResponseMatch.
func (a AnyResponseMatch) MatchResponse(status int) bool {
	for _, m := range a {
		if m.MatchResponse(status) {
			return true
		}
	}
	return false
}

// NotResponseMatch negates its child.
type NotResponseMatch struct{ Match ResponseMatch }

// MatchResponse implements ResponseMatch.
func (n NotResponseMatch) MatchResponse(status int) bool {
	return !n.Match.MatchResponse(status)
}

// StatusRangeMatch is an inclusive [Min, Max] status-code range. Producers
// are responsible for ensuring Min <= Max.
type StatusRangeMatch struct {
	Min, Max int
}

// MatchResponse implements ResponseMatch.
func (s StatusRangeMatch) MatchResponse(status int) bool {
	return status >= s.Min && status <= s.Max
}

// ResponseClass classifies responses for retry/metric purposes: IsFailure
// marks whether a match counts as a failure for retry-budget accounting.
type ResponseClass struct {
	IsFailure bool
	Match     ResponseMatch
}
