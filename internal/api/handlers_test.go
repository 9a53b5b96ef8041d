package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/clock"
	"github.com/susu3304/tallybot/internal/config"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
	"github.com/susu3304/tallybot/internal/memstore"
	"github.com/susu3304/tallybot/internal/serializer"
)

const testSecret = "test-secret"

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	api    *API
	engine *ledger.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	engine := ledger.New(store, serializer.New(store, nil, time.Second), clock.NewFixed(t0), nil)
	coord := approval.New(engine, approval.LogDispatcher{}, nil)
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: []string{"*"}}
	return &testServer{api: New(cfg, engine, coord, nil), engine: engine}
}

func (s *testServer) do(t *testing.T, actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != "" {
		token, err := IssueToken([]byte(testSecret), actor, actor, time.Hour)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "", "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, "", "GET", "/api/entities/x", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/entities/x", nil)
	token, _ := IssueToken([]byte("other-secret"), "u1", "", time.Hour)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status with foreign token = %d, want 401", w.Code)
	}
}

func TestPollFlow(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "owner", "POST", "/api/entities", `{"kind":"poll","title":"Lunch","choices":[{"id":"a","label":"Ramen"},{"id":"b","label":"Sushi"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	created := decode[entityResponse](t, w)
	id := created.Entity.ID

	for _, choice := range []string{"a", "b"} {
		w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", fmt.Sprintf(`{"type":"cast_vote","choice_id":%q}`, choice))
		if w.Code != http.StatusOK {
			t.Fatalf("vote %s status = %d body = %s", choice, w.Code, w.Body)
		}
	}
	got := decode[actionResponse](t, w)
	if got.Projection.Rows[1].Count != 1 || got.Projection.Rows[0].Count != 0 {
		t.Fatalf("rows = %+v", got.Projection.Rows)
	}

	w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", `{"type":"cast_vote","choice_id":"zzz"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown choice status = %d", w.Code)
	}
	if e := decode[errorResponse](t, w); e.Code != "unknown_choice" {
		t.Errorf("code = %q", e.Code)
	}

	w = s.do(t, "u1", "GET", "/api/entities/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if v := decode[entityResponse](t, w); v.Entity.Version != 3 {
		t.Errorf("version = %d, want 3", v.Entity.Version)
	}
}

func TestCouponRedeemReturnsPrice(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{"kind":"coupon","code":"save","discount_percent":33,"base_price":999,"expires_at":%q}`, t0.Add(time.Hour).Format(time.RFC3339))
	w := s.do(t, "owner", "POST", "/api/entities", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	id := decode[entityResponse](t, w).Entity.ID

	w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", `{"type":"redeem_coupon"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("redeem status = %d body = %s", w.Code, w.Body)
	}
	got := decode[actionResponse](t, w)
	if got.FinalPrice == nil || *got.FinalPrice != 670 {
		t.Fatalf("final price = %v, want 670", got.FinalPrice)
	}

	w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", `{"type":"redeem_coupon"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("second redeem status = %d, want 409", w.Code)
	}
}

func TestClaimApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "owner", "POST", "/api/entities", `{"kind":"claim_pool","capacity":1,"guardians":["g1","g2"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	id := decode[entityResponse](t, w).Entity.ID

	w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", `{"type":"request_claim"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("request status = %d body = %s", w.Code, w.Body)
	}
	reqID := decode[actionResponse](t, w).Request.ID

	if w := s.do(t, "u1", "POST", "/api/approvals/"+reqID, `{"decision":"approve"}`); w.Code != http.StatusForbidden {
		t.Fatalf("requester approving status = %d, want 403", w.Code)
	}

	w = s.do(t, "g1", "POST", "/api/approvals/"+reqID, `{"decision":"approve"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d body = %s", w.Code, w.Body)
	}
	if r := decode[resolveResponse](t, w); r.Outcome != approval.OutcomeApproved {
		t.Fatalf("outcome = %s", r.Outcome)
	}

	w = s.do(t, "g2", "POST", "/api/approvals/"+reqID, `{"decision":"deny"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("late deny status = %d", w.Code)
	}
	late := decode[resolveResponse](t, w)
	if late.Outcome != approval.OutcomeStale || late.DecidedBy != "g1" {
		t.Fatalf("late = %+v", late)
	}

	w = s.do(t, "u2", "POST", "/api/entities/"+id+"/actions", `{"type":"request_claim"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("request on full pool status = %d, want 409", w.Code)
	}
}

func TestRequestClaimGuardianOverride(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "owner", "POST", "/api/entities", `{"kind":"claim_pool","capacity":2,"guardians":["g1","g2"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	id := decode[entityResponse](t, w).Entity.ID
	path := "/api/entities/" + id + "/actions"

	tests := []struct {
		name  string
		actor string
		body  string
		want  int
		code  string
	}{
		{"self as guardian", "u1", `{"type":"request_claim","guardians":["u1","g2"]}`, http.StatusUnprocessableEntity, "invalid_guardians"},
		{"accomplice as guardian", "u1", `{"type":"request_claim","guardians":["g1","friend"]}`, http.StatusForbidden, "not_permitted"},
		{"pool guardian claiming", "g1", `{"type":"request_claim"}`, http.StatusUnprocessableEntity, "invalid_guardians"},
		{"creator override", "owner", `{"type":"request_claim","guardians":["g1","g3"]}`, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.actor, "POST", path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d body = %s, want %d", w.Code, w.Body, tt.want)
			}
			if tt.code != "" {
				if got := decode[errorResponse](t, w); got.Code != tt.code {
					t.Fatalf("code = %q, want %q", got.Code, tt.code)
				}
			}
		})
	}
}

func TestAmountLimits(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "owner", "POST", "/api/entities", `{"kind":"wager_pool","title":"Rain","sides":[{"id":"yes","label":"Yes"},{"id":"no","label":"No"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body)
	}
	id := decode[entityResponse](t, w).Entity.ID

	w = s.do(t, "u1", "POST", "/api/entities/"+id+"/actions", `{"type":"place_wager","side_id":"yes","amount":1000000000000000000}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("huge wager status = %d body = %s", w.Code, w.Body)
	}
	if got := decode[errorResponse](t, w); got.Code != "invalid_amount" {
		t.Fatalf("code = %q", got.Code)
	}

	body := fmt.Sprintf(`{"kind":"coupon","code":"big","discount_percent":25,"base_price":9223372036854775807,"expires_at":%q}`, t0.Add(time.Hour).Format(time.RFC3339))
	if w := s.do(t, "owner", "POST", "/api/entities", body); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("huge coupon status = %d body = %s", w.Code, w.Body)
	}
}

func TestBadBodies(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, "u1", "POST", "/api/entities", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed create status = %d", w.Code)
	}
	if w := s.do(t, "u1", "POST", "/api/entities", `{"kind":"raffle"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown kind status = %d", w.Code)
	}
	if w := s.do(t, "u1", "POST", "/api/entities/missing/actions", `{"type":"close"}`); w.Code != http.StatusNotFound {
		t.Errorf("missing entity status = %d", w.Code)
	}
	if w := s.do(t, "u1", "POST", "/api/approvals/r1", `{"decision":"maybe"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad decision status = %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get x: %w", entity.ErrNotFound), http.StatusNotFound},
		{entity.Invalid("nope"), http.StatusUnprocessableEntity},
		{entity.ErrExhausted, http.StatusConflict},
		{&entity.AlreadyResolvedError{RequestID: "r"}, http.StatusConflict},
		{entity.ErrVersionConflict, http.StatusConflict},
		{entity.ErrNotGuardian, http.StatusForbidden},
		{serializer.ErrShuttingDown, http.StatusServiceUnavailable},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
