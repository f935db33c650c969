package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewAuth(reg)

	m.Login("ok")
	m.Login("ok")
	m.Login("invalid_credentials")
	m.Refresh("invalid_refresh_token")
	m.Rejection("session_superseded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("invalid_refresh_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("session_superseded")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"auth_login_total", "auth_refresh_total", "auth_rejections_total"}, names)
}

func TestAuth_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Auth
	assert.NotPanics(t, func() {
		m.Login("ok")
		m.Refresh("ok")
		m.Rejection("missing_token")
	})
}
