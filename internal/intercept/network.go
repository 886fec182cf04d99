package intercept

import (
	"fmt"
	"net/http"

	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// NetworkInterceptor observes the single outbound-request chokepoint by
// wrapping the host's http.RoundTripper. Status >= 400 and transport failures
// are captured; the original response or error is always returned to the
// caller unmodified.
type NetworkInterceptor struct {
	holder sinkHolder
}

// NewNetworkInterceptor returns an unattached network interceptor.
func NewNetworkInterceptor() *NetworkInterceptor {
	return &NetworkInterceptor{}
}

func (n *NetworkInterceptor) Name() string { return "network" }

func (n *NetworkInterceptor) Attach(s capture.Sink) error {
	n.holder.attach(s)
	return nil
}

func (n *NetworkInterceptor) Detach() {
	n.holder.detach()
}

// Wrap returns a RoundTripper that observes failures on base. A nil base
// wraps http.DefaultTransport.
func (n *NetworkInterceptor) Wrap(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &observedTransport{base: base, ic: n}
}

type observedTransport struct {
	base http.RoundTripper
	ic   *NetworkInterceptor
}

func (t *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)

	url := req.URL.String()
	method := req.Method
	switch {
	case err != nil:
		t.ic.holder.capture(capture.RawEvent{
			Source:  fault.SourceNetworkFailure,
			Message: fmt.Sprintf("%s %s failed: %v", method, url, err),
			Context: map[string]any{
				"url":            url,
				"method":         method,
				"transportError": true,
			},
		})
	case resp.StatusCode >= http.StatusBadRequest:
		t.ic.holder.capture(capture.RawEvent{
			Source:  fault.SourceNetworkFailure,
			Message: fmt.Sprintf("%s %s returned %d %s", method, url, resp.StatusCode, http.StatusText(resp.StatusCode)),
			Context: map[string]any{
				"url":    url,
				"method": method,
				"status": resp.StatusCode,
			},
		})
	}

	return resp, err
}
