package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/checkout"
	"tienda_perfumes/internal/config"
	"tienda_perfumes/internal/handlers"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/notification"
	"tienda_perfumes/internal/payment"
	"tienda_perfumes/internal/repository"
	"tienda_perfumes/internal/routes"
	"tienda_perfumes/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

const secret = "test-secret"

type app struct {
	r       *gin.Engine
	catalog *repository.MemoryCatalog
	notes   *repository.MemoryNotifications
}

func newApp(t *testing.T) *app {
	t.Helper()
	a := &app{
		catalog: repository.NewMemoryCatalog(
			models.Perfume{ID: "1", SellerID: "seller-a", Name: "Chanel N°5", Brand: "Chanel", Price: decimal.RequireFromString("10.00"), Stock: 5, IsActive: true},
			models.Perfume{ID: "2", SellerID: "seller-b", Name: "Sauvage", Brand: "Dior", Price: decimal.RequireFromString("80.00"), Stock: 20, IsActive: true},
		),
		notes: repository.NewMemoryNotifications(),
	}
	svc := checkout.NewService(checkout.Deps{
		Catalog:           a.catalog,
		Orders:            repository.NewMemoryOrders(),
		Payments:          repository.NewMemoryPayments(),
		Gateway:           payment.NewMockGateway(payment.NewMemoryIntentStore(), "http://localhost:8080", "mxn"),
		Calculator:        checkout.NewCalculator(decimal.RequireFromString("0.16"), decimal.RequireFromString("5.00")),
		LowStockThreshold: 3,
	})

	a.r = gin.New()
	routes.RegisterRoutes(a.r, routes.Deps{
		JWTSecret:     secret,
		Auth:          handlers.NewAuthHandler(repository.NewMemoryUsers(), utils.NewPasswordHasher(config.Argon2{}), secret, time.Hour),
		Checkout:      handlers.NewCheckoutHandler(svc),
		Orders:        handlers.NewOrderHandler(svc),
		Payments:      handlers.NewPaymentHandler(svc),
		Perfumes:      handlers.NewPerfumeHandler(a.catalog, nil, nil),
		Notifications: handlers.NewNotificationHandler(a.notes, notification.NewHub()),
	})
	return a
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.GenerateJWT(models.User{ID: userID, Username: userID, Role: role}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *app) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func checkoutBody(perfumeID string, qty int) gin.H {
	return gin.H{
		"items":         []gin.H{{"perfumeId": perfumeID, "quantity": qty}},
		"customerEmail": "buyer@example.com",
		"paymentMethod": "card",
	}
}

func TestCheckoutThenPayFlow(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	w, body := a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("1", 2))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "20.00", body["subtotal"])
	assert.Equal(t, "3.20", body["tax"])
	assert.Equal(t, "5.00", body["shipping"])
	assert.Equal(t, "28.20", body["total"])
	assert.Equal(t, "PENDING", body["status"])
	assert.Contains(t, body["paymentUrl"], "/payments/status/")
	assert.NotEmpty(t, body["clientSecret"])

	paymentID := body["paymentId"].(string)
	number := body["orderNumber"].(string)

	p, err := a.catalog.GetPerfume(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	w, body = a.do(t, http.MethodGet, "/orders/"+number, buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, number, body["orderNumber"])

	w, body = a.do(t, http.MethodGet, "/payments/simulate-payment?payment_id="+paymentID+"&success=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])

	w, body = a.do(t, http.MethodPost, "/payments/confirm-payment", buyer, gin.H{"payment_id": paymentID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := body["order"].(map[string]any)
	assert.Equal(t, "CONFIRMED", order["status"])

	w, body = a.do(t, http.MethodGet, "/payments/status/"+paymentID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.IntentSucceeded, body["status"])
}

func TestCheckout_BusinessErrorsAre400(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	w, body := a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("1", 6))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InsufficientStock", body["error"])
	assert.Contains(t, body["message"], "Chanel N°5")

	w, body = a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("inconnu", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ItemNotFound", body["error"])

	w, body = a.do(t, http.MethodPost, "/checkout", buyer, gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidCart", body["error"])
}

func TestCheckout_RequiresToken(t *testing.T) {
	a := newApp(t)
	w, _ := a.do(t, http.MethodPost, "/checkout", "", checkoutBody("1", 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelRestoresStock(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	_, body := a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("1", 2))
	orderID := body["orderId"].(string)

	w, _ := a.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", token(t, "intrus", models.RoleUser), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CANCELLED", body["order"].(map[string]any)["status"])

	p, err := a.catalog.GetPerfume(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	w, body = a.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidState", body["error"])
}

func TestSimulateUnknownPayment(t *testing.T) {
	a := newApp(t)

	w, body := a.do(t, http.MethodGet, "/payments/simulate-payment?payment_id=pi_mock_absent&success=true", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NotFound", body["error"])

	w, _ = a.do(t, http.MethodGet, "/payments/simulate-payment?success=true", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	a := newApp(t)
	creds := gin.H{"username": "lucia", "email": "lucia@example.com", "password": "motdepasse1", "role": "seller"}

	w, body := a.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, models.RoleSeller, body["user"].(map[string]any)["role"])

	w, _ = a.do(t, http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = a.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "lucia", "password": "motdepasse1"})
	require.Equal(t, http.StatusOK, w.Code)
	claims, err := utils.ParseJWT(body["token"].(string), secret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeller, claims.Role)

	w, _ = a.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "lucia", "password": "mauvais"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_AdminRoleRefused(t *testing.T) {
	a := newApp(t)
	w, _ := a.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username": "root", "email": "root@example.com", "password": "motdepasse1", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPerfumes_CreateRestockAndSearch(t *testing.T) {
	a := newApp(t)
	seller := token(t, "seller-c", models.RoleSeller)
	newPerfume := gin.H{"name": "Bleu de Chanel", "brand": "Chanel", "price": "95.50", "stock": 4}

	w, _ := a.do(t, http.MethodPost, "/perfumes", token(t, "buyer-1", models.RoleUser), newPerfume)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := a.do(t, http.MethodPost, "/perfumes", seller, newPerfume)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["id"].(string)
	assert.Equal(t, "seller-c", body["sellerId"])

	w, _ = a.do(t, http.MethodPatch, "/perfumes/"+id+"/stock", token(t, "seller-a", models.RoleSeller), gin.H{"quantity": 3})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = a.do(t, http.MethodPatch, "/perfumes/"+id+"/stock", seller, gin.H{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, body["stock"])

	w, body = a.do(t, http.MethodGet, "/perfumes/search?q=chanel", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])

	w, _ = a.do(t, http.MethodGet, "/perfumes/absent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodPost, "/perfumes/"+id+"/images", seller, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNotifications(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	for i, typ := range []models.NotificationType{models.NotificationNewOrder, models.NotificationStockAlert} {
		at := time.Date(2025, 3, 14, 10, i, 0, 0, time.UTC)
		require.NoError(t, a.notes.CreateNotification(ctx, &models.Notification{
			ID: repository.NewNotificationID(at), UserID: "seller-a", Type: typ, Title: "t", CreatedAt: at,
		}))
	}
	seller := token(t, "seller-a", models.RoleSeller)

	w, body := a.do(t, http.MethodGet, "/notifications/unread-count", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["unread"])

	w, body = a.do(t, http.MethodGet, "/notifications", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := body["notifications"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)["id"].(string)

	w, _ = a.do(t, http.MethodPatch, "/notifications/"+first+"/read", seller, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, body = a.do(t, http.MethodGet, "/notifications/unread-count", seller, nil)
	assert.EqualValues(t, 1, body["unread"])

	w, _ = a.do(t, http.MethodPatch, "/notifications/absente/read", seller, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodPatch, "/notifications/read-all", seller, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, body = a.do(t, http.MethodGet, "/notifications/unread-count", seller, nil)
	assert.EqualValues(t, 0, body["unread"])
}

func TestUpdateStatus_SellerOfOrder(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	_, body := a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("1", 1))
	orderID := body["orderId"].(string)
	paymentID := body["paymentId"].(string)
	a.do(t, http.MethodGet, "/payments/simulate-payment?payment_id="+paymentID+"&success=true", "", nil)
	a.do(t, http.MethodPost, "/payments/confirm-payment", buyer, gin.H{"payment_id": paymentID})

	w, _ := a.do(t, http.MethodPatch, "/orders/"+orderID+"/status", buyer, gin.H{"status": "PREPARING"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = a.do(t, http.MethodPatch, "/orders/"+orderID+"/status", token(t, "seller-a", models.RoleSeller), gin.H{"status": "PREPARING"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PREPARING", body["status"])

	w, body = a.do(t, http.MethodPatch, "/orders/"+orderID+"/status", token(t, "admin", models.RoleAdmin), gin.H{"status": "DELIVERED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidState", body["error"])
}

func TestQuoteDoesNotTouchStock(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	w, body := a.do(t, http.MethodPost, "/checkout/quote", buyer, checkoutBody("2", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "80.00", body["subtotal"])
	assert.Equal(t, "12.80", body["tax"])
	assert.Equal(t, "97.80", body["total"])

	p, err := a.catalog.GetPerfume(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Stock)
}

func TestPaymentSnapshotsHideClientSecret(t *testing.T) {
	a := newApp(t)
	buyer := token(t, "buyer-1", models.RoleUser)

	_, body := a.do(t, http.MethodPost, "/checkout", buyer, checkoutBody("1", 2))
	paymentID := body["paymentId"].(string)
	secret := body["clientSecret"].(string)
	require.NotEmpty(t, secret)

	w, body := a.do(t, http.MethodGet, "/payments/status/"+paymentID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "clientSecret")
	assert.NotContains(t, w.Body.String(), secret)
	assert.Equal(t, "28.20", body["amount"])
	assert.Equal(t, paymentID, body["paymentId"])

	w, body = a.do(t, http.MethodGet, "/payments/simulate-payment?payment_id="+paymentID+"&success=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), secret)
	assert.Equal(t, "28.20", body["payment"].(map[string]any)["amount"])

	w, _ = a.do(t, http.MethodPost, "/payments/confirm-payment", buyer, gin.H{"payment_id": paymentID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), secret)
}
