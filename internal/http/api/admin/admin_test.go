package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/config"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/security"
	"github.com/learnstack/coursewallet/internal/settings"
	"github.com/learnstack/coursewallet/internal/wallet"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var adminJWT = config.JWTConfig{Secret: "admin-test-secret", ExpiryHours: 1}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// A plain :memory: DSN gives every pooled connection its own database;
	// use a per-test file so all connections see the same tables.
	conn, errOpen := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Category{},
		&models.UserBalance{},
		&models.LedgerEntry{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Setting{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errCreate := conn.Create(&models.Category{
		ID: 1, ParentID: 0, Name: "Science", Path: "/1", Depth: 1, Visible: true,
	}).Error; errCreate != nil {
		t.Fatalf("seed category: %v", errCreate)
	}

	balance := wallet.NewBalance(conn, category.NewTree(conn))
	engine := gin.New()
	RegisterAdminRoutes(engine, conn, adminJWT, balance)
	return engine, conn
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, errSign := security.GenerateAdminToken(adminJWT.Secret, 7, "root", adminJWT.Expiry())
	if errSign != nil {
		t.Fatalf("sign admin token: %v", errSign)
	}
	return token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
	return out
}

func TestAdminAuthMiddleware(t *testing.T) {
	engine, _ := newTestServer(t)

	if w := doJSON(t, engine, http.MethodGet, "/v0/admin/coupons", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
	if w := doJSON(t, engine, http.MethodGet, "/v0/admin/coupons", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", w.Code)
	}
	if w := doJSON(t, engine, http.MethodGet, "/v0/admin/coupons", adminToken(t), nil); w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}
}

func TestCouponCRUDAndSearch(t *testing.T) {
	engine, _ := newTestServer(t)
	token := adminToken(t)

	w := doJSON(t, engine, http.MethodPost, "/v0/admin/coupons", token, map[string]any{
		"code": "SUMMER10", "type": "fixed", "value": "10",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	created, _ := decodeBody(t, w)["coupon"].(map[string]any)
	couponID, _ := created["id"].(float64)

	if w := doJSON(t, engine, http.MethodPost, "/v0/admin/coupons", token, map[string]any{
		"code": "SUMMER10", "type": "fixed", "value": "10",
	}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
	if w := doJSON(t, engine, http.MethodPost, "/v0/admin/coupons", token, map[string]any{
		"code": "BIGPCT", "type": "percent", "value": "150",
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized percent status = %d, want 400", w.Code)
	}

	// Code search matches regardless of case on every dialect.
	w = doJSON(t, engine, http.MethodGet, "/v0/admin/coupons?code=summer", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	if resp := decodeBody(t, w); resp["total"] != float64(1) {
		t.Fatalf("search total = %v, want 1", resp["total"])
	}

	path := "/v0/admin/coupons/" + strconv.FormatUint(uint64(couponID), 10)
	if w := doJSON(t, engine, http.MethodPut, path, token, map[string]any{
		"code": "SUMMER10", "type": "fixed", "value": "15",
	}); w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}

	if w := doJSON(t, engine, http.MethodDelete, path, token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := doJSON(t, engine, http.MethodDelete, path, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("re-delete status = %d, want 404", w.Code)
	}
}

func TestWalletCreditAndDebit(t *testing.T) {
	engine, conn := newTestServer(t)
	token := adminToken(t)

	w := doJSON(t, engine, http.MethodPost, "/v0/admin/wallet/credit", token, map[string]any{
		"user_id": 5, "amount": "100", "refundable": true, "description": "manual top-up",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("credit status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decodeBody(t, w); resp["valid_balance"] != "100" {
		t.Fatalf("balance after credit = %v, want 100", resp["valid_balance"])
	}

	w = doJSON(t, engine, http.MethodPost, "/v0/admin/wallet/debit", token, map[string]any{
		"user_id": 5, "amount": "30",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("debit status = %d body=%s", w.Code, w.Body.String())
	}
	if resp := decodeBody(t, w); resp["valid_balance"] != "70" {
		t.Fatalf("balance after debit = %v, want 70", resp["valid_balance"])
	}

	w = doJSON(t, engine, http.MethodPost, "/v0/admin/wallet/debit", token, map[string]any{
		"user_id": 5, "amount": "500",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overdraft status = %d, want 400", w.Code)
	}
	if resp := decodeBody(t, w); resp["shortfall"] != "430" {
		t.Fatalf("shortfall = %v, want 430", resp["shortfall"])
	}

	// Mutations are attributed to the acting admin in the ledger.
	var entry models.LedgerEntry
	if errFind := conn.Where("user_id = ?", 5).Order("id ASC").First(&entry).Error; errFind != nil {
		t.Fatalf("load ledger: %v", errFind)
	}
	if entry.ActorID != 7 || entry.Source != wallet.SourceAdmin {
		t.Fatalf("entry actor=%d source=%s, want admin 7", entry.ActorID, entry.Source)
	}

	w = doJSON(t, engine, http.MethodGet, "/v0/admin/wallet/5/ledger", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger status = %d", w.Code)
	}
	if resp := decodeBody(t, w); resp["total"] != float64(2) {
		t.Fatalf("ledger total = %v, want 2 (failed debit not recorded)", resp["total"])
	}

	w = doJSON(t, engine, http.MethodGet, "/v0/admin/wallet/5", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("wallet get status = %d", w.Code)
	}
	if resp := decodeBody(t, w); resp["valid_balance"] != "70" {
		t.Fatalf("wallet get balance = %v, want 70", resp["valid_balance"])
	}
}

func TestSettingsUpdateRefreshesSnapshot(t *testing.T) {
	engine, _ := newTestServer(t)
	token := adminToken(t)
	t.Cleanup(func() { settings.StoreDBConfig(time.Now(), nil) })

	w := doJSON(t, engine, http.MethodPut, "/v0/admin/settings", token, map[string]any{
		settings.LowBalanceThresholdKey: "10",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", w.Code, w.Body.String())
	}
	if got := settings.LowBalanceThreshold(); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("threshold after update = %s, want 10", got)
	}

	w = doJSON(t, engine, http.MethodGet, "/v0/admin/settings", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	stored, _ := decodeBody(t, w)["settings"].(map[string]any)
	if stored[settings.LowBalanceThresholdKey] != "10" {
		t.Fatalf("stored value = %v, want 10", stored[settings.LowBalanceThresholdKey])
	}
}
