package checker_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

func TestParseCookies(t *testing.T) {
	cookies, err := checker.ParseCookies([]string{"Location=nz", "session=abc; Path=/"})
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "Location", cookies[0].Name)
	assert.Equal(t, "nz", cookies[0].Value)
	assert.Equal(t, "session", cookies[1].Name)
}

func TestParseCookies_Invalid(t *testing.T) {
	for _, raw := range []string{"", "novalue", "=abc"} {
		_, err := checker.ParseCookies([]string{raw})
		assert.ErrorIs(t, err, checker.ErrInvalidCookie, "cookie %q", raw)
	}
}

func TestResult_StatusLabel(t *testing.T) {
	assert.Equal(t, "200", checker.Result{StatusCode: 200}.StatusLabel())
	assert.Equal(t, "err", checker.Result{Error: "timeout"}.StatusLabel())
}

func TestSet_Failed(t *testing.T) {
	s := checker.Set{{StatusCode: 200}, {Error: "timeout"}, {Error: "refused"}}
	assert.Equal(t, 2, s.Failed())
}

func TestResult_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(checker.Set{
		{URL: "http://a/", StatusCode: 200, RedirectURL: "http://b/"},
		{URL: "http://c/", Error: "timeout"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"url": "http://a/", "statusCode": 200, "redirectUrl": "http://b/"},
		{"url": "http://c/", "error": "timeout"}
	]`, string(data))
}
