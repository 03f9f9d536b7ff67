package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/sleeping-barber/internal/barbershop"
	"github.com/iliyamo/sleeping-barber/internal/config"
	"github.com/iliyamo/sleeping-barber/internal/model"
	"github.com/iliyamo/sleeping-barber/internal/repository"
)

type brokenSeq struct{}

func (brokenSeq) Next(context.Context) (model.ClientID, error) {
	return 0, repository.ErrSequenceUnavailable
}

func newShopHandler(t *testing.T, capacity int, seq repository.Sequence) (*ShopHandler, context.CancelFunc) {
	t.Helper()
	shop, err := barbershop.New(capacity, func(model.ClientID) time.Duration { return 0 })
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return NewShopHandler(shop, seq, ctx), cancel
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestArriveAdmitsThenBalks(t *testing.T) {
	h, cancel := newShopHandler(t, 2, repository.NewMemorySequence())
	defer cancel()
	e := echo.New()
	e.POST("/v1/arrivals", h.Arrive)

	wantCodes := []int{http.StatusCreated, http.StatusCreated, http.StatusOK}
	wantOutcomes := []model.Outcome{model.Admitted, model.Admitted, model.Balked}
	for i := range wantCodes {
		rec := do(e, http.MethodPost, "/v1/arrivals", "")
		if rec.Code != wantCodes[i] {
			t.Fatalf("arrival %d status = %d, want %d", i+1, rec.Code, wantCodes[i])
		}
		var resp arrivalResp
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.ClientID != model.ClientID(i+1) || resp.Outcome != wantOutcomes[i] {
			t.Errorf("arrival %d = %+v", i+1, resp)
		}
	}
}

func TestArriveWithExplicitClientID(t *testing.T) {
	h, cancel := newShopHandler(t, 1, brokenSeq{})
	defer cancel()
	e := echo.New()
	e.POST("/v1/arrivals", h.Arrive)

	if rec := do(e, http.MethodPost, "/v1/arrivals", `{"client_id":42}`); rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/arrivals", `{"client_id":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("zero id status = %d, want 400", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/arrivals", `{bad`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/arrivals", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no sequence status = %d, want 503", rec.Code)
	}
	if got := h.Shop.Room().Waiting(); len(got) != 1 || got[0] != 42 {
		t.Errorf("waiting = %v, want [42]", got)
	}
}

func TestStartBarberOnceAndSnapshot(t *testing.T) {
	h, cancel := newShopHandler(t, 3, repository.NewMemorySequence())
	defer cancel()
	e := echo.New()
	e.POST("/v1/arrivals", h.Arrive)
	e.POST("/v1/barber/start", h.StartBarber)
	e.GET("/v1/shop", h.Snapshot)
	e.GET("/healthz", h.Health)

	do(e, http.MethodPost, "/v1/arrivals", "")
	if rec := do(e, http.MethodPost, "/v1/barber/start", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/barber/start", ""); rec.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	var snap model.ShopSnapshot
	for {
		rec := do(e, http.MethodGet, "/v1/shop", "")
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Served == 1 && snap.BarberState == model.Sleeping {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never settled: %+v", snap)
		}
		time.Sleep(time.Millisecond)
	}
	if !snap.Running || snap.Capacity != 3 || snap.FreeSeats != 3 || len(snap.Waiting) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	rec := do(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"barber_running":true`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("clippers-123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := NewAuthHandler(config.Config{JWTSecret: "s", OwnerPasswordHash: string(hash), AccessTTLMin: 5})
	e := echo.New()
	e.POST("/v1/auth/login", h.Login)

	if rec := do(e, http.MethodPost, "/v1/auth/login", `{"password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/auth/login", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty password status = %d, want 400", rec.Code)
	}
	rec := do(e, http.MethodPost, "/v1/auth/login", `{"password":"clippers-123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", rec.Code)
	}
	var body struct {
		Access tokenPart `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Access.Token == "" {
		t.Fatalf("no token in %s (%v)", rec.Body.String(), err)
	}

	disabled := NewAuthHandler(config.Config{JWTSecret: "s"})
	e2 := echo.New()
	e2.POST("/v1/auth/login", disabled.Login)
	if rec := do(e2, http.MethodPost, "/v1/auth/login", `{"password":"clippers-123"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled login status = %d, want 503", rec.Code)
	}
}
