package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"lenslink/config"
	"lenslink/database/repository/memory"
	"lenslink/handlers"
	"lenslink/models"
	"lenslink/routes"
	"lenslink/services/booking"
	"lenslink/services/booking/mocks"
	"lenslink/services/payment"
	"lenslink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "handler-test-secret"
	utils.Logger = zap.NewNop()
	os.Exit(m.Run())
}

type stubWebhook struct {
	sessionID string
	ok        bool
	err       error
}

func (s stubWebhook) CompletedSession([]byte, string) (string, bool, error) {
	return s.sessionID, s.ok, s.err
}

type server struct {
	router  *gin.Engine
	store   *memory.Store
	gateway *mocks.MockPaymentGateway
}

func newServer(t *testing.T, webhook handlers.WebhookVerifier) *server {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := memory.NewStore()
	store.Users().PutUser(models.User{ID: "user-1", Name: "Asha Rao", Email: "asha@example.com"})
	store.Users().PutUser(models.User{ID: "user-2", Name: "Kiran", Email: "kiran@example.com"})
	store.Vendors().PutVendor(models.Vendor{ID: "vendor-1", Name: "Ravi", Email: "studio@example.com"})
	store.Packages().PutPackage(models.Package{
		ID: "pkg-1", VendorID: "vendor-1", Name: "Full day", ServiceType: "Wedding", Price: 5000,
	})

	gateway := mocks.NewMockPaymentGateway(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc, err := booking.NewBookingService(booking.Deps{
		Users:    store.Users(),
		Vendors:  store.Vendors(),
		Packages: store.Packages(),
		Requests: store.Requests(),
		Bookings: store.Bookings(),
		Tx:       store,
		Gateway:  gateway,
		Notifier: notifier,
		Locker:   memory.NewLocker(),
		Currency: "inr",
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}

	router := gin.New()
	routes.RegisterRoutes(router, &handlers.HandlerBundle{
		Booking: handlers.NewBookingHandler(svc),
		Payment: handlers.NewPaymentHandler(svc, webhook),
	}, "*")
	return &server{router: router, store: store, gateway: gateway}
}

func token(t *testing.T, subject string, role models.RecipientRole) string {
	t.Helper()
	tok, err := utils.GenerateToken(subject, string(role), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func (s *server) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var createBody = map[string]any{
	"vendorId":     "vendor-1",
	"name":         "Asha Rao",
	"email":        "asha@example.com",
	"venue":        "Lalbagh, Bengaluru",
	"serviceType":  "Wedding",
	"packageId":    "pkg-1",
	"startingDate": "01/03/2025",
	"numberOfDays": 2,
	"totalPrice":   10000,
}

func (s *server) createAndAccept(t *testing.T) models.BookingRequest {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/booking-requests", token(t, "user-1", models.RoleUser), createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decode[models.BookingRequest](t, w)

	w = s.do(t, http.MethodPatch, "/api/vendor/booking-requests/"+created.RequestID,
		token(t, "vendor-1", models.RoleVendor), map[string]string{"action": "accept"})
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[models.BookingRequest](t, w)
}

func TestCreateAndAcceptRequest(t *testing.T) {
	s := newServer(t, nil)
	accepted := s.createAndAccept(t)

	if accepted.State != models.RequestStateAccepted {
		t.Fatalf("state = %s, want Accepted", accepted.State)
	}
	if accepted.AdvancePayment == nil || accepted.AdvancePayment.Amount != 3000 {
		t.Fatalf("advance = %+v, want 3000", accepted.AdvancePayment)
	}

	w := s.do(t, http.MethodGet, "/api/vendor/booking-requests", token(t, "vendor-1", models.RoleVendor), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[struct {
		Requests []models.BookingRequest `json:"requests"`
	}](t, w)
	if len(list.Requests) != 1 {
		t.Fatalf("vendor sees %d requests, want 1", len(list.Requests))
	}
}

func TestAuthAndRoleChecks(t *testing.T) {
	s := newServer(t, nil)

	if w := s.do(t, http.MethodGet, "/api/booking-requests", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/booking-requests", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/vendor/booking-requests", token(t, "user-1", models.RoleUser), nil); w.Code != http.StatusForbidden {
		t.Errorf("user on vendor route: status = %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/booking-requests", token(t, "vendor-1", models.RoleVendor), createBody); w.Code != http.StatusForbidden {
		t.Errorf("vendor creating request: status = %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/bookings", token(t, "x", "admin"), nil); w.Code != http.StatusForbidden {
		t.Errorf("unknown role: status = %d, want 403", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, nil)
	accepted := s.createAndAccept(t)

	// Another user cannot see the request.
	w := s.do(t, http.MethodGet, "/api/booking-requests/"+accepted.RequestID, token(t, "user-2", models.RoleUser), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign read: status = %d, want 404", w.Code)
	}

	// Accepting twice conflicts.
	w = s.do(t, http.MethodPatch, "/api/vendor/booking-requests/"+accepted.RequestID,
		token(t, "vendor-1", models.RoleVendor), map[string]string{"action": "accept"})
	if w.Code != http.StatusConflict {
		t.Errorf("second accept: status = %d, want 409", w.Code)
	}

	w = s.do(t, http.MethodPatch, "/api/vendor/booking-requests/"+accepted.RequestID,
		token(t, "vendor-1", models.RoleVendor), map[string]string{"action": "maybe"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown action: status = %d, want 422", w.Code)
	}
	resp := decode[utils.ErrorResponse](t, w)
	if resp.Code != booking.CodeInvalidInput {
		t.Errorf("code = %q, want %q", resp.Code, booking.CodeInvalidInput)
	}

	w = s.do(t, http.MethodPost, "/api/booking-requests", token(t, "user-1", models.RoleUser), map[string]any{"vendorId": "vendor-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", w.Code)
	}
}

func TestCheckoutAndConfirm(t *testing.T) {
	s := newServer(t, nil)
	accepted := s.createAndAccept(t)
	userTok := token(t, "user-1", models.RoleUser)

	s.gateway.EXPECT().
		CreateCheckoutSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
			if req.Stage != models.StageAdvance || req.Amount != 3000 {
				t.Errorf("checkout request = %+v", req)
			}
			return &models.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
		})
	w := s.do(t, http.MethodPost, "/api/booking-requests/"+accepted.RequestID+"/checkout", userTok, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, body %s", w.Code, w.Body.String())
	}

	s.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_1").Return(&models.PaymentResult{
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		BookingID:       accepted.RequestID,
		Stage:           models.StageAdvance,
		AmountPaid:      3000,
		Currency:        "inr",
		Paid:            true,
	}, nil)
	w = s.do(t, http.MethodPost, "/api/payments/confirm", userTok, map[string]string{"sessionId": "cs_1"})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", w.Code, w.Body.String())
	}
	b := decode[models.Booking](t, w)
	if b.BookingStatus != models.BookingStatusConfirmed {
		t.Fatalf("booking status = %s, want Confirmed", b.BookingStatus)
	}

	w = s.do(t, http.MethodGet, "/api/bookings/"+b.BookingID, token(t, "vendor-1", models.RoleVendor), nil)
	if w.Code != http.StatusOK {
		t.Errorf("vendor read booking: status = %d", w.Code)
	}
}

func TestConfirmGatewayFailure(t *testing.T) {
	s := newServer(t, nil)
	s.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_down").
		Return(nil, &booking.GatewayError{Type: "api_connection_error", Message: "timeout", Retryable: true, Err: context.DeadlineExceeded})

	w := s.do(t, http.MethodPost, "/api/payments/confirm", token(t, "user-1", models.RoleUser), map[string]string{"sessionId": "cs_down"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestWebhook(t *testing.T) {
	t.Run("invalid signature", func(t *testing.T) {
		s := newServer(t, stubWebhook{err: payment.ErrInvalidSignature})
		if w := s.do(t, http.MethodPost, "/api/payments/webhook", "", map[string]string{}); w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("ignored event", func(t *testing.T) {
		s := newServer(t, stubWebhook{ok: false})
		if w := s.do(t, http.MethodPost, "/api/payments/webhook", "", map[string]string{}); w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("unpaid session is acknowledged", func(t *testing.T) {
		s := newServer(t, stubWebhook{sessionID: "cs_2", ok: true})
		s.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_2").
			Return(&models.PaymentResult{SessionID: "cs_2", Paid: false}, nil)
		w := s.do(t, http.MethodPost, "/api/payments/webhook", "", map[string]string{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decode[map[string]any](t, w)
		if body["applied"] != false {
			t.Errorf("applied = %v, want false", body["applied"])
		}
	})
	t.Run("paid session for taken dates is acknowledged and logged as an error", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		prev := utils.Logger
		utils.Logger = zap.New(core)
		t.Cleanup(func() { utils.Logger = prev })

		s := newServer(t, stubWebhook{sessionID: "cs_3", ok: true})
		accepted := s.createAndAccept(t)
		if err := s.store.Vendors().AddBookedDates(context.Background(), "vendor-1", []string{"01/03/2025"}); err != nil {
			t.Fatalf("AddBookedDates: %v", err)
		}
		s.gateway.EXPECT().RetrievePayment(gomock.Any(), "cs_3").Return(&models.PaymentResult{
			SessionID:       "cs_3",
			PaymentIntentID: "pi_3",
			BookingID:       accepted.RequestID,
			Stage:           models.StageAdvance,
			AmountPaid:      accepted.AdvancePayment.Amount,
			Currency:        "inr",
			Paid:            true,
		}, nil)

		w := s.do(t, http.MethodPost, "/api/payments/webhook", "", map[string]string{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decode[map[string]any](t, w)
		if body["applied"] != false || body["code"] != booking.CodeDatesUnavailable {
			t.Errorf("unexpected body %v", body)
		}
		entries := logs.FilterMessage("webhook payment not applied").All()
		if len(entries) != 1 || entries[0].Level != zap.ErrorLevel {
			t.Fatalf("expected one error-level entry, got %v", entries)
		}
		if entries[0].ContextMap()["sessionId"] != "cs_3" {
			t.Errorf("entry fields %v", entries[0].ContextMap())
		}
	})
}
