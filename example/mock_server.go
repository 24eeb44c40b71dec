package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

const mockHeader = "# pxname,svname,qcur,qmax,scur,smax,slim,stot,bin,bout,dreq,dresp,ereq,econ,eresp,wretr,wredis,status,weight,act,bck,chkfail,chkdown,lastchg,downtime,qlimit,pid,iid,sid,throttle,lbtot,tracked,type,rate,rate_lim,rate_max,check_status,"

// mockServer is one backend server of the mock load balancer.
type mockServer struct {
	name         string
	up           bool
	sessions     int64
	total        int64
	bytesIn      int64
	bytesOut     int64
	nextChangeAt time.Time
}

// mockHAProxy simulates the stats CSV export of a load balancer with one
// frontend and one backend. Servers flip between UP and DOWN every 20-60
// seconds and counters grow on every request.
type mockHAProxy struct {
	mu      sync.Mutex
	proxy   string
	servers []*mockServer
	now     func() time.Time
}

func newMockHAProxy(proxy string, servers ...string) *mockHAProxy {
	m := &mockHAProxy{proxy: proxy, now: time.Now}
	for _, name := range servers {
		m.servers = append(m.servers, &mockServer{
			name:         name,
			up:           true,
			nextChangeAt: m.now().Add(nextChange()),
		})
	}
	return m
}

// nextChange picks a delay of 20-60 seconds.
func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

func (m *mockHAProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// simulate small latency variance
	time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(m.export()))
}

// export advances the simulation and renders the CSV.
func (m *mockHAProxy) export() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var (
		b                   strings.Builder
		feSessions, feTotal int64
		feIn, feOut         int64
		upCount             int
	)

	b.WriteString(mockHeader)
	b.WriteByte('\n')

	rows := make([]string, 0, len(m.servers))
	for _, s := range m.servers {
		if now.After(s.nextChangeAt) {
			s.up = !s.up
			s.nextChangeAt = now.Add(nextChange())
			slog.Info("status change", "proxy", m.proxy, "server", s.name, "up", s.up)
		}

		status, check := "DOWN", "L4CON"
		s.sessions = 0
		if s.up {
			status, check = "UP", "L7OK"
			upCount++
			s.sessions = int64(rand.Intn(20))
			s.total += s.sessions
			s.bytesIn += s.sessions * 1500
			s.bytesOut += s.sessions * 48000
		}

		feSessions += s.sessions
		feTotal += s.total
		feIn += s.bytesIn
		feOut += s.bytesOut

		rows = append(rows, m.row(s.name, s.sessions, s.total, s.bytesIn, s.bytesOut, status, check, 2))
	}

	backendStatus := "UP"
	if upCount == 0 {
		backendStatus = "DOWN"
	}

	b.WriteString(m.row("FRONTEND", feSessions, feTotal, feIn, feOut, "OPEN", "", 0))
	for _, row := range rows {
		b.WriteString(row)
	}
	b.WriteString(m.row("BACKEND", feSessions, feTotal, feIn, feOut, backendStatus, "", 1))
	return b.String()
}

// row renders one CSV line in mockHeader's column order.
func (m *mockHAProxy) row(server string, scur, stot, bin, bout int64, status, check string, typ int) string {
	return fmt.Sprintf("%s,%s,0,0,%d,%d,,%d,%d,%d,0,0,0,0,0,0,0,%s,1,1,0,0,0,0,0,,1,1,1,,%d,,%d,%d,,%d,%s,\n",
		m.proxy, server, scur, scur, stot, bin, bout, status, stot, typ, scur, scur, check)
}

// StartMockHAProxy serves a mock stats export at addr under /stats.
// Call this in a goroutine before creating hapulse sources.
func StartMockHAProxy(addr string, lb *mockHAProxy) {
	mux := http.NewServeMux()
	mux.Handle("/stats", lb)

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
