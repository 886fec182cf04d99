package intercept

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

func newStatusServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(r.URL.Query().Get("code"))
		if err != nil {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNetworkInterceptor_IgnoresSuccessfulRequests(t *testing.T) {
	sink := &memorySink{}
	ic := NewNetworkInterceptor()
	require.NoError(t, ic.Attach(sink))

	srv := newStatusServer(t)
	client := &http.Client{Transport: ic.Wrap(nil)}

	resp, err := client.Get(srv.URL + "?code=200")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, sink.all())
}

func TestNetworkInterceptor_CapturesHTTPFailures(t *testing.T) {
	sink := &memorySink{}
	ic := NewNetworkInterceptor()
	require.NoError(t, ic.Attach(sink))

	srv := newStatusServer(t)
	client := &http.Client{Transport: ic.Wrap(nil)}

	resp, err := client.Get(srv.URL + "?code=500")
	require.NoError(t, err)

	// The caller still gets the original response.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "body", string(body))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, fault.SourceNetworkFailure, events[0].Source)
	assert.Contains(t, events[0].Message, "500")
	assert.Equal(t, http.StatusInternalServerError, events[0].Context["status"])
	assert.Equal(t, http.MethodGet, events[0].Context["method"])
}

func TestNetworkInterceptor_Captures404(t *testing.T) {
	sink := &memorySink{}
	ic := NewNetworkInterceptor()
	require.NoError(t, ic.Attach(sink))

	srv := newStatusServer(t)
	client := &http.Client{Transport: ic.Wrap(nil)}

	resp, err := client.Get(srv.URL + "?code=404")
	require.NoError(t, err)
	_ = resp.Body.Close()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "404")
}

func TestNetworkInterceptor_CapturesTransportFailures(t *testing.T) {
	sink := &memorySink{}
	ic := NewNetworkInterceptor()
	require.NoError(t, ic.Attach(sink))

	// A closed server produces a connection-level failure.
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	client := &http.Client{Transport: ic.Wrap(nil)}
	_, err := client.Get(deadURL)
	require.Error(t, err, "the caller still sees the transport error")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, fault.SourceNetworkFailure, events[0].Source)
	assert.Equal(t, true, events[0].Context["transportError"])
}

func TestNetworkInterceptor_DetachedTransportIsPassThrough(t *testing.T) {
	sink := &memorySink{}
	ic := NewNetworkInterceptor()
	require.NoError(t, ic.Attach(sink))
	ic.Detach()

	srv := newStatusServer(t)
	client := &http.Client{Transport: ic.Wrap(nil)}

	resp, err := client.Get(srv.URL + "?code=500")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, sink.all())
}
