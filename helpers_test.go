package hapulse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testExport has 4 objects: 12 entities each, plus backend_up for BACKEND
// and check_status for the two servers.
const testExport = `# pxname,svname,scur,smax,stot,bin,bout,ereq,econ,eresp,wretr,wredis,status,rate,check_status,
web,FRONTEND,3,10,120,4000000,8000000,2,,,,,OPEN,1,,
web,app1,1,4,60,2000000,4000000,,0,1,0,0,UP,0,L7OK,
web,app2,0,2,60,,,,3,0,1,0,DOWN,0,L4CON,
web,BACKEND,1,6,120,2000000,4000000,,3,1,1,0,UP,0,,
`

const testEntities = 51

// haproxyStub serves a stats export whose body and status can be swapped.
type haproxyStub struct {
	*httptest.Server

	mu     sync.Mutex
	body   string
	status int
	auth   [2]string
}

func newHAProxyStub(t *testing.T, body string) *haproxyStub {
	t.Helper()
	stub := &haproxyStub{body: body, status: http.StatusOK}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		body, status := stub.body, stub.status
		if user, pass, ok := r.BasicAuth(); ok {
			stub.auth = [2]string{user, pass}
		}
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *haproxyStub) set(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

func (s *haproxyStub) credentials() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[0], s.auth[1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSource creates a source polled every interval, below the public minimum.
func testSource(t *testing.T, name, url string, interval time.Duration, opts ...SourceOption) Source {
	t.Helper()
	src, err := NewSource(name, url, opts...)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	src.scanInterval = interval
	return src
}

// running is a started HAPulse listening on a free port.
type running struct {
	hp     *HAPulse
	base   string
	cancel context.CancelFunc
	done   chan error
}

// startHAPulse starts hp on a free port and waits until it is serving.
func startHAPulse(t *testing.T, hp *HAPulse) *running {
	t.Helper()
	hp.port = 0

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{hp: hp, cancel: cancel, done: make(chan error, 1)}
	go func() {
		r.done <- hp.Start(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for hp.Addr() == nil {
		select {
		case err := <-r.done:
			cancel()
			t.Fatalf("Start() returned early: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.base = fmt.Sprintf("http://127.0.0.1:%d", hp.Addr().(*net.TCPAddr).Port)

	t.Cleanup(func() { r.stop(t) })
	return r
}

// stop cancels Start and waits for it to return. Safe to call twice.
func (r *running) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	if r.done == nil {
		return
	}
	select {
	case err := <-r.done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}
	r.done = nil
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
