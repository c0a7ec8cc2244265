package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authMiddleware "payhere_donations/internal/middleware"
	"payhere_donations/internal/models"
	"payhere_donations/internal/payhere"
	"payhere_donations/internal/services"
	"payhere_donations/internal/tasks"
	"payhere_donations/internal/testutil"
)

const (
	testMerchantID = "1217129"
	testSecret     = "TESTSECRET"
)

type fakeFirebase struct{}

func (fakeFirebase) VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error) {
	if cookie != "admin-session" {
		return nil, errors.New("invalid")
	}
	return &auth.Token{UID: "admin", Claims: map[string]interface{}{"email": "admin@example.lk"}}, nil
}

func (fakeFirebase) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken != "id-token" {
		return nil, errors.New("invalid")
	}
	return &auth.Token{UID: "admin"}, nil
}

func (fakeFirebase) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	return "admin-session", nil
}

type testServer struct {
	e  *echo.Echo
	db *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	cache := services.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.Close() })

	payhereClient := services.NewPayHereService(payhere.NewConfig(testMerchantID, testSecret, true, "http://localhost:3000", "http://localhost:5000"))
	donations := services.NewDonationService(db, cache, payhereClient, tasks.ReceiptQueue{}, time.Minute)

	e := echo.New()
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	Routes{
		Donations: NewDonationHandler(donations, payhereClient),
		Admin:     NewAdminHandler(donations),
		Auth:      NewAuthHandler(fakeFirebase{}, false),
		Sessions:  fakeFirebase{},
	}.Register(e)

	return &testServer{e: e, db: db}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req)
}

func (s *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(req)
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) createDonation(t *testing.T, body string) CreateDonationResponse {
	t.Helper()
	rec := s.postJSON("/api/donations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateDonationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func fieldValue(fields []payhere.FormField, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func notification(orderID, amount, currency string, status payhere.StatusCode) url.Values {
	n := payhere.PaymentNotification{
		MerchantID: testMerchantID,
		OrderID:    orderID,
		PaymentID:  "320025071278",
		Amount:     amount,
		Currency:   currency,
		StatusCode: status,
	}
	n.Signature = payhere.SignNotification(n, testSecret)
	return n.FormValues()
}

func TestCreateDonation(t *testing.T) {
	s := newTestServer(t)

	resp := s.createDonation(t, `{"amount":"25","currency":"usd","first_name":"Jane","email":"jane@x.com"}`)

	assert.NotEmpty(t, resp.UUID)
	assert.Equal(t, payhere.SandboxCheckoutURL, resp.CheckoutURL)
	assert.Equal(t, "/p/"+resp.UUID+"/checkout", resp.RedirectURL)
	require.Len(t, resp.Fields, 16)
	assert.Equal(t, "hash", resp.Fields[15].Name)
	assert.Len(t, resp.Fields[15].Value, 32)
	assert.Equal(t, "25.00", fieldValue(resp.Fields, "amount"))
	assert.Equal(t, "USD", fieldValue(resp.Fields, "currency"))
	assert.Equal(t, "Donor", fieldValue(resp.Fields, "last_name"))
	assert.Equal(t, resp.OrderID, fieldValue(resp.Fields, "order_id"))
}

func TestCreateDonation_Form(t *testing.T) {
	s := newTestServer(t)

	rec := s.postForm("/api/donations", url.Values{"amount": {"1000.50"}, "currency": {"LKR"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"1000.50"`)
}

func TestCreateDonation_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "zero amount", body: `{"amount":"0","currency":"USD"}`},
		{name: "sub-cent amount", body: `{"amount":"19.999","currency":"USD"}`},
		{name: "exponent", body: `{"amount":"1e3","currency":"USD"}`},
		{name: "unsupported currency", body: `{"amount":"10","currency":"JPY"}`},
		{name: "malformed json", body: `{"amount":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.postJSON("/api/donations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"INVALID_DONATION"`)
		})
	}

	var count int64
	s.db.Model(&models.Donation{}).Count(&count)
	assert.Zero(t, count)
}

func TestCheckoutPage(t *testing.T) {
	s := newTestServer(t)
	resp := s.createDonation(t, `{"amount":"25","currency":"USD"}`)

	rec := s.get(resp.RedirectURL)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="https://sandbox.payhere.lk/pay/checkout"`)
	assert.Contains(t, body, `name="hash" value="`+fieldValue(resp.Fields, "hash")+`"`)

	rec = s.get("/p/unknown/checkout")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Donation not found")
}

func TestNotifyFlow(t *testing.T) {
	s := newTestServer(t)
	resp := s.createDonation(t, `{"amount":"25","currency":"USD","email":"jane@x.com"}`)

	rec := s.get("/api/donations/" + resp.UUID + "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	t.Run("forged signature is rejected", func(t *testing.T) {
		form := notification(resp.OrderID, "25.00", "USD", payhere.StatusSuccess)
		form.Set("md5sig", "F3F5D0B05F256843F4775A5258EA23DE")

		rec := s.postForm("/api/payhere/notify", form)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNTRUSTED_NOTIFICATION")

		rec = s.get("/api/donations/" + resp.UUID + "/status")
		assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		rec := s.postForm("/api/payhere/notify", notification(resp.OrderID, "2.50", "USD", payhere.StatusSuccess))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOTIFICATION_MISMATCH")
	})

	t.Run("unknown order", func(t *testing.T) {
		rec := s.postForm("/api/payhere/notify", notification("DON_0_missing", "25.00", "USD", payhere.StatusSuccess))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("valid notification marks paid", func(t *testing.T) {
		rec := s.postForm("/api/payhere/notify", notification(resp.OrderID, "25.00", "USD", payhere.StatusSuccess))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())

		rec = s.get("/api/donations/" + resp.UUID + "/status")
		assert.Contains(t, rec.Body.String(), `"status":"paid"`)

		var receipts int64
		s.db.Model(&models.ScheduledTask{}).Where("task_name = ?", "send_donation_receipt").Count(&receipts)
		assert.Equal(t, int64(1), receipts)
	})

	t.Run("duplicate is acknowledged once", func(t *testing.T) {
		rec := s.postForm("/api/payhere/notify", notification(resp.OrderID, "25.00", "USD", payhere.StatusSuccess))
		assert.Equal(t, http.StatusOK, rec.Code)

		var receipts int64
		s.db.Model(&models.ScheduledTask{}).Where("task_name = ?", "send_donation_receipt").Count(&receipts)
		assert.Equal(t, int64(1), receipts)
	})

	t.Run("checkout page shows closed donation", func(t *testing.T) {
		rec := s.get(resp.RedirectURL)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Thank you for your donation")
		assert.NotContains(t, rec.Body.String(), "<form")
	})
}

func TestReturnAndCancelPagesDoNotChangeState(t *testing.T) {
	s := newTestServer(t)
	resp := s.createDonation(t, `{"amount":"25","currency":"USD"}`)

	rec := s.get("/donations/return?order_id=" + resp.OrderID + "&payment_id=1&status_code=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We are confirming your payment")

	rec = s.get("/donations/cancel?order_id=" + resp.OrderID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment cancelled")
	assert.Contains(t, rec.Body.String(), `href="/p/`+resp.UUID+`/checkout"`)

	rec = s.get("/donations/return")
	assert.Equal(t, http.StatusOK, rec.Code)

	var d models.Donation
	require.NoError(t, s.db.Where("uuid = ?", resp.UUID).First(&d).Error)
	assert.Equal(t, models.DonationStatusPending, d.Status)
}

func TestPayHereConfigAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/api/config/payhere")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg services.ClientConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, testMerchantID, cfg.MerchantID)
	assert.True(t, cfg.Sandbox)
	assert.NotContains(t, rec.Body.String(), testSecret)

	rec = s.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatus_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/api/donations/missing/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "DONATION_NOT_FOUND")
}

func TestAdminListing(t *testing.T) {
	s := newTestServer(t)
	s.createDonation(t, `{"amount":"25","currency":"USD"}`)
	s.createDonation(t, `{"amount":"500","currency":"LKR"}`)

	rec := s.get("/admin/donations")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/donations?currency=LKR", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "admin-session"})
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data      services.DonationPage `json:"data"`
		UserEmail string                `json:"user_email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin@example.lk", body.UserEmail)
	assert.Equal(t, int64(1), body.Data.TotalCount)
	require.Len(t, body.Data.Donations, 1)
	assert.Equal(t, "500.00", body.Data.Donations[0].Amount)
}

func TestAuthLoginLogout(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer id-token")
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "session=admin-session")

	rec = s.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestToAppError(t *testing.T) {
	closed := toAppError(&services.DonationClosedError{Status: models.DonationStatusPaid})
	assert.Equal(t, "DONATION_CLOSED", closed.Code)
	assert.Equal(t, http.StatusConflict, closed.HTTPCode)
	assert.True(t, strings.HasSuffix(closed.Message, ": paid"))

	// extra context around the error must not change the reported status
	wrapped := toAppError(fmt.Errorf("resume %s: %w: retry later", "abc", &services.DonationClosedError{Status: models.DonationStatusExpired}))
	assert.Equal(t, "DONATION_CLOSED", wrapped.Code)
	assert.True(t, strings.HasSuffix(wrapped.Message, ": expired"))

	assert.Equal(t, "INTERNAL_ERROR", toAppError(errors.New("boom")).Code)
	assert.Equal(t, "INTERNAL_ERROR", toAppError(payhere.ErrMissingCredentials).Code)
	assert.Equal(t, "DONATION_NOT_FOUND", toAppError(fmt.Errorf("order x: %w", services.ErrDonationNotFound)).Code)
}
