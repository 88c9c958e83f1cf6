package metrics

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestServerServesMetricsAndHealth(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := NewServer(ln.Addr().String(), zerolog.Nop())
	srv.SetListener(ln)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = srv.Stop() }()

	TodayMinutes.Set(42)

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "studytime_today_minutes 42") {
		t.Errorf("expected today gauge in metrics output")
	}

	resp, err = http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(SessionsClosed.WithLabelValues("roll"))
	SessionsClosed.WithLabelValues("roll").Inc()
	if got := testutil.ToFloat64(SessionsClosed.WithLabelValues("roll")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}
