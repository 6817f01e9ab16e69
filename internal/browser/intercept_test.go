// File: internal/browser/intercept_test.go
package browser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verihawk/verihawk/internal/browser"
	"github.com/verihawk/verihawk/internal/scenario"
)

// TestDecide_FontGlob verifies the brace-expansion glob used to cut web fonts
// out of a run matches full request URLs on any host.
func TestDecide_FontGlob(t *testing.T) {
	i, err := browser.NewInterceptor(zap.NewNop(), []scenario.RouteRule{
		{Pattern: "**/*.{woff,woff2}", Action: scenario.RouteAbort},
	})
	require.NoError(t, err)

	for _, url := range []string{
		"http://localhost:8000/fonts/inter.woff2",
		"https://cdn.example.test/assets/deep/path/icons.woff",
	} {
		action, rule := i.Decide(url)
		assert.Equal(t, scenario.RouteAbort, action, "url=%s", url)
		require.NotNil(t, rule, "url=%s", url)
	}

	action, rule := i.Decide("http://localhost:8000/app.css")
	assert.Equal(t, scenario.RouteContinue, action)
	assert.Nil(t, rule)
}

// TestDecide_FirstMatchWins checks rules are evaluated in insertion order.
func TestDecide_FirstMatchWins(t *testing.T) {
	i, err := browser.NewInterceptor(zap.NewNop(), []scenario.RouteRule{
		{Pattern: "**/api/health", Action: scenario.RouteFulfill, Status: 200, Body: "ok"},
		{Pattern: "**/api/**", Action: scenario.RouteAbort},
	})
	require.NoError(t, err)

	action, rule := i.Decide("http://localhost:8000/api/health")
	assert.Equal(t, scenario.RouteFulfill, action)
	require.NotNil(t, rule)
	assert.Equal(t, "ok", rule.Body)

	action, _ = i.Decide("http://localhost:8000/api/items")
	assert.Equal(t, scenario.RouteAbort, action)
}

// TestAddRules_AfterSeal rejects late rule mutation instead of racing in-flight
// requests.
func TestAddRules_AfterSeal(t *testing.T) {
	i, err := browser.NewInterceptor(zap.NewNop(), nil)
	require.NoError(t, err)

	i.Seal()
	err = i.AddRules(scenario.RouteRule{Pattern: "**", Action: scenario.RouteAbort})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sealed")
}

// TestNewInterceptor_BadPattern surfaces a compile error for a malformed glob.
func TestNewInterceptor_BadPattern(t *testing.T) {
	_, err := browser.NewInterceptor(zap.NewNop(), []scenario.RouteRule{
		{Pattern: "[unclosed", Action: scenario.RouteAbort},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid route pattern")
}
