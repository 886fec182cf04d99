package harness

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"

	"git.home.luguber.info/inful/faultwatch/internal/action"
)

// faultServer is the local HTTP fixture scenarios inject network failures
// against. It serves whatever status the request asks for, and keeps a second
// already-closed endpoint whose URL yields transport-level failures.
type faultServer struct {
	live *httptest.Server
	dead string // URL of a closed listener; connecting to it fails in transport
}

func newFaultServer() *faultServer {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(r.URL.Query().Get("code"))
		if err != nil || code < 100 || code > 599 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		fmt.Fprintf(w, "injected status %d", code)
	}))

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	return &faultServer{live: live, dead: deadURL}
}

// statusURL returns a URL on the live fixture that responds with the code.
func (f *faultServer) statusURL(code int) string {
	return fmt.Sprintf("%s/inject?code=%d", f.live.URL, code)
}

// deadURL returns a URL whose connection attempt fails.
func (f *faultServer) deadURL() string {
	return f.dead
}

func (f *faultServer) close() {
	f.live.Close()
}

// buildRegistry registers the scenario's fixture actions. Failing fixtures
// return (or panic with) the declared message so faults are reproducible.
func buildRegistry(fixtures []FixtureAction) *action.Registry {
	reg := action.NewRegistry()
	for _, fx := range fixtures {
		fx := fx
		reg.Register(fx.Name, func(ctx context.Context, params map[string]any) (any, error) {
			msg := fx.Message
			if msg == "" {
				msg = fmt.Sprintf("fixture action %s failed", fx.Name)
			}
			switch {
			case fx.Panic:
				panic(msg)
			case fx.Fail:
				return nil, fmt.Errorf("%s", msg)
			default:
				return map[string]any{"ok": true}, nil
			}
		})
	}
	return reg
}
