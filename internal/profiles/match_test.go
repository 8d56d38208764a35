package profiles

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllRequestMatch_EmptyIsTrue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, AllRequestMatch{}.MatchRequest(req))
}

func TestAnyRequestMatch_EmptyIsFalse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, AnyRequestMatch{}.MatchRequest(req))
}

func TestNotRequestMatch_Negates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	n := NotRequestMatch{Match: AllRequestMatch{}}
	assert.False(t, n.MatchRequest(req))
}

func TestPathRequestMatch_MatchesURIPathOnly(t *testing.T) {
	m, err := NewPathRequestMatch(`^/accounts/\d+$`)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/accounts/42?verbose=true", nil)
	assert.True(t, m.MatchRequest(req))

	req2 := httptest.NewRequest(http.MethodGet, "/accounts/not-a-number", nil)
	assert.False(t, m.MatchRequest(req2))
}

func TestMethodRequestMatch_ExactEquality(t *testing.T) {
	m := MethodRequestMatch{Method: http.MethodPost}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.True(t, m.MatchRequest(req))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, m.MatchRequest(req2))
}

func TestAllRequestMatch_ShortCircuitsOnFirstFalse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	all := AllRequestMatch{
		MethodRequestMatch{Method: http.MethodPost}, // fails
		MethodRequestMatch{Method: http.MethodGet},  // would pass
	}
	assert.False(t, all.MatchRequest(req))
}

func TestAllResponseMatch_EmptyIsTrue(t *testing.T) {
	assert.True(t, AllResponseMatch{}.MatchResponse(200))
}

func TestAnyResponseMatch_EmptyIsFalse(t *testing.T) {
	assert.False(t, AnyResponseMatch{}.MatchResponse(200))
}

func TestStatusRangeMatch_InclusiveBounds(t *testing.T) {
	s := StatusRangeMatch{Min: 500, Max: 599}
	assert.True(t, s.MatchResponse(500))
	assert.True(t, s.MatchResponse(599))
	assert.False(t, s.MatchResponse(499))
	assert.False(t, s.MatchResponse(600))
}

func TestNotResponseMatch_Negates(t *testing.T) {
	n := NotResponseMatch{Match: StatusRangeMatch{Min: 500, Max: 599}}
	assert.False(t, n.MatchResponse(503))
	assert.True(t, n.MatchResponse(200))
}
