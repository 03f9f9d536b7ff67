package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sleeping-barber/internal/config"
	"github.com/iliyamo/sleeping-barber/internal/utils"
)

const secret = "test-secret"

func protected() *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret), RequireRole(utils.RoleOwner))
	g.POST("/barber/start", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"subject": c.Get(SubjectKey)})
	})
	return e
}

func call(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/barber/start", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	owner, err := utils.NewAccessToken(secret, "owner", utils.RoleOwner, 5)
	if err != nil {
		t.Fatal(err)
	}
	customer, err := utils.NewAccessToken(secret, "walk-in", "CUSTOMER", 5)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := utils.NewAccessToken("other-secret", "owner", utils.RoleOwner, 5)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := utils.NewAccessToken(secret, "owner", utils.RoleOwner, -1)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"forged", "Bearer " + forged.Token, http.StatusUnauthorized},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized},
		{"wrong role", "Bearer " + customer.Token, http.StatusForbidden},
		{"owner", "Bearer " + owner.Token, http.StatusOK},
		{"lowercase scheme", "bearer " + owner.Token, http.StatusOK},
	}
	e := protected()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := call(e, tt.auth); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestArrivalLimiterPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	l := NewArrivalLimiter(config.RateLimitConfig{Enabled: true, Burst: 1}, nil)
	e.POST("/v1/arrivals", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, l.Middleware())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/arrivals", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d, want 201", i, rec.Code)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict([]interface{}{int64(0), int64(0), int64(1500)})
	if err != nil {
		t.Fatal(err)
	}
	if v.allowed || v.wait != 1500*time.Millisecond {
		t.Errorf("verdict = %+v", v)
	}
	if _, err := parseVerdict([]interface{}{int64(1), "x", int64(0)}); err == nil {
		t.Error("accepted a non-integer reply")
	}
	if _, err := parseVerdict(nil); err == nil {
		t.Error("accepted an empty reply")
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/arrivals", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/arrivals")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip_route", "barbershop:rl:ip:10.0.0.7:route:POST /v1/arrivals"},
		{"IP", "barbershop:rl:ip:10.0.0.7"},
		{"route", "barbershop:rl:route:POST /v1/arrivals"},
		{"", "barbershop:rl:ip:10.0.0.7:route:POST /v1/arrivals"},
	}
	for _, tt := range tests {
		cfg := config.RateLimitConfig{Prefix: "barbershop:rl", KeyStrategy: tt.strategy}
		if got := rateKey(cfg, c); got != tt.want {
			t.Errorf("rateKey(%q) = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}
