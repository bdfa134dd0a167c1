package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	admindomain "github.com/gammapace/backend/internal/admin/domain"
	adminrepository "github.com/gammapace/backend/internal/admin/repository"
	adminservice "github.com/gammapace/backend/internal/admin/service"
	"github.com/gammapace/backend/internal/analytics/domain"
	analyticsrepository "github.com/gammapace/backend/internal/analytics/repository"
	analyticsservice "github.com/gammapace/backend/internal/analytics/service"
	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/config"
	"github.com/gammapace/backend/internal/currency"
	"github.com/gammapace/backend/internal/geo"
	paymentstripe "github.com/gammapace/backend/internal/payment/adapters/stripe"
	paymentdomain "github.com/gammapace/backend/internal/payment/domain"
	paymentrepository "github.com/gammapace/backend/internal/payment/repository"
	paymentservice "github.com/gammapace/backend/internal/payment/service"
	"github.com/gammapace/backend/internal/payment/stripeapi"
	"github.com/gammapace/backend/internal/plan"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
	sessionrepository "github.com/gammapace/backend/internal/session/repository"
	sessionservice "github.com/gammapace/backend/internal/session/service"
	userdomain "github.com/gammapace/backend/internal/user/domain"
	userrepository "github.com/gammapace/backend/internal/user/repository"
	userservice "github.com/gammapace/backend/internal/user/service"
	"github.com/gammapace/backend/pkg/db"
)

const testWebhookSecret = "whsec_server_test"

func stripeStubHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/customers":
		w.Write([]byte(`{"data":[]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/customers":
		r.ParseForm()
		fmt.Fprintf(w, `{"id":"cus_t","name":%q,"email":%q}`, r.PostForm.Get("name"), r.PostForm.Get("email"))
	case r.URL.Path == "/v1/payment_intents":
		r.ParseForm()
		fmt.Fprintf(w, `{"id":"pi_t","client_secret":"pi_t_secret","status":"succeeded","amount":%s,"currency":%q}`,
			r.PostForm.Get("amount"), r.PostForm.Get("currency"))
	default:
		w.Write([]byte(`{"id":"ok"}`))
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&userdomain.User{},
		&sessiondomain.ActiveSession{},
		&paymentdomain.EventRecord{},
		&domain.Tag{},
		&admindomain.Admin{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC))

	stripeServer := httptest.NewServer(http.HandlerFunc(stripeStubHandler))
	t.Cleanup(stripeServer.Close)

	cfg := config.Config{
		AppName:             "gammapace",
		AppVersion:          "test",
		Environment:         "test",
		AllowedOrigins:      []string{"https://www.gammapace.com"},
		StripeSecretKey:     "sk_test",
		StripeWebhookSecret: testWebhookSecret,
		PaymentReturnURL:    "https://www.gammapace.com/",
	}

	holder := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())
	catalog := plan.NewCatalog(holder)

	users := userservice.New(userservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  userrepository.Provide(),
	})
	sessions := sessionservice.New(sessionservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  sessionrepository.Provide(),
	})
	analytics := analyticsservice.New(analyticsservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  analyticsrepository.Provide(),
	})

	admins := adminservice.New(adminservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  adminrepository.Provide(),
	})

	adapter := paymentstripe.NewAdapter(testWebhookSecret)
	payments := paymentservice.New(paymentservice.Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Client:    stripeapi.NewClient("sk_test", stripeServer.URL),
		Verifier:  adapter,
		Parser:    adapter,
		Events:    paymentrepository.Provide(),
		Users:     users,
		Catalog:   catalog,
		ReturnURL: cfg.PaymentReturnURL,
	})

	rates := currency.NewService(
		holder.Get().BaseCurrency,
		[]currency.RateProvider{currency.NewTableProvider(holder)},
		currency.NewRateCache(clk, currency.CacheTTL),
		zap.NewNop(),
		nil,
	)
	locations := geo.NewService([]geo.Provider{geo.NewTimezoneProvider()}, zap.NewNop())

	engine := gin.New()
	engine.Use(corsMiddleware(cfg.AllowedOrigins))
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:       engine,
		cfg:          cfg,
		db:           dbConn,
		genID:        node,
		clock:        clk,
		userSvc:      users,
		sessionSvc:   sessions,
		paymentSvc:   payments,
		analyticsSvc: analytics,
		adminSvc:     admins,
		currencySvc:  rates,
		geoSvc:       locations,
		catalog:      catalog,
	}
	s.registerRoutes()
	return s
}

func doJSON(s *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	resp := httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func signupAndToken(t *testing.T, s *Server, email string) string {
	t.Helper()
	resp := doJSON(s, http.MethodPost, "/api/auth/signup", fmt.Sprintf(`{
		"email": %q,
		"password": "correct-horse-battery",
		"first_name": "Test",
		"country": "Canada",
		"device": {"device_id": "device-a", "device_name": "Laptop", "browser": "Firefox", "os": "Linux"}
	}`, email), nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	session := body["session"].(map[string]any)
	return session["token"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(s, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "gammapace", body["service"])
}

func TestListPlansLocalized(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(s, http.MethodGet, "/api/plans?country=India", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, "INR", body["currency"])

	plans := body["plans"].([]any)
	require.Len(t, plans, 3)
	first := plans[0].(map[string]any)
	assert.Equal(t, "weekly", first["plan_type"])
	// 999 CAD cents at the 62.0 fallback rate.
	assert.EqualValues(t, 61938, first["local_amount"])
	assert.Equal(t, "INR", first["local_currency"])

	// Unknown countries fall back to USD pricing.
	resp = doJSON(s, http.MethodGet, "/api/plans?country=Atlantis", "", nil)
	body = decodeBody(t, resp)
	assert.Equal(t, "USD", body["currency"])
}

func TestSignupAndSigninFlow(t *testing.T) {
	s := newTestServer(t)

	token := signupAndToken(t, s, "flow@example.com")
	require.NotEmpty(t, token)

	authed := http.Header{}
	authed.Set("Authorization", "Bearer "+token)

	resp := doJSON(s, http.MethodGet, "/api/session/validate", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["subscribed"])

	resp = doJSON(s, http.MethodPost, "/api/session/heartbeat", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(s, http.MethodPost, "/api/auth/signout", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(s, http.MethodGet, "/api/session/validate", "", authed)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSigninConflictAndForce(t *testing.T) {
	s := newTestServer(t)
	signupAndToken(t, s, "conflict@example.com")

	signin := `{
		"email": "conflict@example.com",
		"password": "correct-horse-battery",
		"device": {"device_id": "device-b", "device_name": "Phone", "browser": "Safari", "os": "iOS"}
	}`
	resp := doJSON(s, http.MethodPost, "/api/auth/signin", signin, nil)
	require.Equal(t, http.StatusConflict, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, "session_conflict", body["error"])
	existing := body["active_session"].(map[string]any)
	assert.Equal(t, "device-a", existing["device_id"])

	forced := `{
		"email": "conflict@example.com",
		"password": "correct-horse-battery",
		"force": true,
		"device": {"device_id": "device-b", "device_name": "Phone", "browser": "Safari", "os": "iOS"}
	}`
	resp = doJSON(s, http.MethodPost, "/api/auth/signin", forced, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestSigninWrongPassword(t *testing.T) {
	s := newTestServer(t)
	signupAndToken(t, s, "auth@example.com")

	resp := doJSON(s, http.MethodPost, "/api/auth/signin", `{
		"email": "auth@example.com",
		"password": "wrong",
		"device": {"device_id": "device-a"}
	}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreatePaymentIntentMissingFields(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(s, http.MethodPost, "/api/stripe/create-payment-intent", `{"amount": 999}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "Missing required fields")
}

func TestCreatePaymentIntentSucceeded(t *testing.T) {
	s := newTestServer(t)
	signupAndToken(t, s, "payer@example.com")

	resp := doJSON(s, http.MethodPost, "/api/stripe/create-payment-intent", `{
		"amount": 999,
		"currency": "usd",
		"payment_method_id": "pm_1",
		"customer_name": "Payer",
		"customer_email": "payer@example.com",
		"plan_type": "weekly",
		"user_country": "US"
	}`, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	intent := body["payment_intent"].(map[string]any)
	assert.Equal(t, "succeeded", intent["status"])
}

func signedWebhookHeader(payload []byte) http.Header {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp + "." + string(payload)))

	header := http.Header{}
	header.Set("Stripe-Signature", fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return header
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)
	signupAndToken(t, s, "hook@example.com")

	payload := []byte(`{
		"id": "evt_http_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_h",
			"customer_email": "hook@example.com",
			"amount_paid": 2499,
			"currency": "cad",
			"metadata": {"plan_type": "monthly"}
		}}
	}`)

	resp := doJSON(s, http.MethodPost, "/api/stripe/webhook", string(payload), signedWebhookHeader(payload))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "invoice.payment_succeeded", body["event_type"])

	user, err := s.userSvc.GetByEmail(context.Background(), "hook@example.com")
	require.NoError(t, err)
	assert.Equal(t, userdomain.SubscriptionActive, user.SubscriptionStatus)
}

func TestWebhookBadSignature(t *testing.T) {
	s := newTestServer(t)

	payload := `{"id":"evt_x","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1"}}}`
	header := http.Header{}
	header.Set("Stripe-Signature", "t=1,v1=bad")

	resp := doJSON(s, http.MethodPost, "/api/stripe/webhook", payload, header)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTags(t *testing.T) {
	s := newTestServer(t)
	token := signupAndToken(t, s, "tags@example.com")

	resp := doJSON(s, http.MethodPost, "/api/tags", `{
		"event_type": "page_view",
		"page": "/practice/listening"
	}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	authed := http.Header{}
	authed.Set("Authorization", "Bearer "+token)
	resp = doJSON(s, http.MethodPost, "/api/tags", `{"event_type": "practice_start"}`, authed)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(s, http.MethodGet, "/api/tags", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	tags := body["tags"].([]any)
	// Only the authenticated event is attributed to the user.
	require.Len(t, tags, 1)
	assert.Equal(t, "practice_start", tags[0].(map[string]any)["event_type"])
}

func TestAdmins(t *testing.T) {
	s := newTestServer(t)
	token := signupAndToken(t, s, "owner@gammapace.com")

	// The whole group requires a session.
	resp := doJSON(s, http.MethodGet, "/api/admins", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	authed := http.Header{}
	authed.Set("Authorization", "Bearer "+token)

	resp = doJSON(s, http.MethodPost, "/api/admins", `{
		"name": "Priya Nair",
		"email": "priya@gammapace.com",
		"coupon_code": "PRIY0930",
		"role": "reviewer",
		"department": "Content"
	}`, authed)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeBody(t, resp)["admin"].(map[string]any)
	assert.Equal(t, "owner@gammapace.com", created["created_by"])

	resp = doJSON(s, http.MethodPost, "/api/admins", `{
		"name": "Someone Else",
		"email": "else@gammapace.com",
		"coupon_code": "PRIY0930",
		"role": "support"
	}`, authed)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(s, http.MethodGet, "/api/admins", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)
	admins := decodeBody(t, resp)["admins"].([]any)
	require.Len(t, admins, 1)

	resp = doJSON(s, http.MethodGet, "/api/admins/by-coupon/PRIY0930", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)
	admin := decodeBody(t, resp)["admin"].(map[string]any)
	assert.Equal(t, "Priya Nair", admin["name"])

	resp = doJSON(s, http.MethodGet, "/api/admins/by-coupon/NOPE0000", "", authed)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = doJSON(s, http.MethodGet, "/api/admins/stats", "", authed)
	require.Equal(t, http.StatusOK, resp.Code)
	stats := decodeBody(t, resp)["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total_admins"])
	assert.Equal(t, float64(1), stats["active_admins"])
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp := httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://www.gammapace.com")
	resp = httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "https://www.gammapace.com", resp.Header().Get("Access-Control-Allow-Origin"))

	// No Origin header (server-to-server) passes with a wildcard.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp = httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
