package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
	"trading-core/internal/monitor"
	"trading-core/internal/position"
	"trading-core/internal/strategy"
)

const testSecret = "test-secret"

func hostToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bus := eventbus.New()
	portfolio := &domain.Portfolio{}
	positions := position.NewManager(portfolio, bus)
	strategies := strategy.NewManager(bus, func(string, string) bool { return false })
	return NewServer(bus, strategies, positions, monitor.NewSystemMetrics(), testSecret, SystemMeta{})
}

func TestControlEndpointRejectsMissingToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/control/stop", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestStopHaltsEngine(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/control/stop", nil)
	req.Header.Set("Authorization", "Bearer "+hostToken(t))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !s.Positions.Snapshot().Halted {
		t.Fatal("expected portfolio halted after /stop")
	}
}

func TestEmergencyCloseAllRequestsCloseForOpenPositions(t *testing.T) {
	s := newTestServer(t)
	s.Positions.Open(domain.Position{ID: "p1", Symbol: "TKN1", EntryPrice: 1.0})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/control/emergency_close_all", nil)
	req.Header.Set("Authorization", "Bearer "+hostToken(t))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	snap := s.Positions.Snapshot()
	if snap.Positions["p1"].Status != domain.PositionClosing {
		t.Fatalf("expected position closing, got %v", snap.Positions["p1"].Status)
	}
}
