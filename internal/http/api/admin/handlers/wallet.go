package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/wallet"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletAdminHandler exposes manual credit/debit and wallet inspection for
// administrators. Every mutation is attributed to the acting admin in the
// ledger.
type WalletAdminHandler struct {
	db      *gorm.DB
	balance *wallet.Balance
}

// NewWalletAdminHandler constructs a WalletAdminHandler.
func NewWalletAdminHandler(db *gorm.DB, balance *wallet.Balance) *WalletAdminHandler {
	return &WalletAdminHandler{db: db, balance: balance}
}

// mutationRequest is the body for manual credit and debit.
type mutationRequest struct {
	UserID      uint64 `json:"user_id"`
	Amount      string `json:"amount"`
	CategoryID  uint64 `json:"category_id"`
	Refundable  bool   `json:"refundable"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (r *mutationRequest) parse() (decimal.Decimal, string) {
	if r.UserID == 0 {
		return decimal.Zero, "user_id is required"
	}
	amount, errParse := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if errParse != nil || !amount.IsPositive() {
		return decimal.Zero, "amount must be a positive decimal"
	}
	if strings.TrimSpace(r.Source) == "" {
		r.Source = wallet.SourceAdmin
	}
	return amount, ""
}

// Credit adds funds to a user's wallet.
func (h *WalletAdminHandler) Credit(c *gin.Context) {
	adminID := getAdminID(c)
	if adminID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body mutationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, reason := body.parse()
	if reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	errCredit := h.balance.Credit(c.Request.Context(), wallet.CreditParams{
		UserID:      body.UserID,
		Amount:      amount,
		Source:      body.Source,
		CategoryID:  body.CategoryID,
		Description: body.Description,
		Refundable:  body.Refundable,
		ActorID:     adminID,
	})
	if errCredit != nil {
		if errors.Is(errCredit, category.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credit failed"})
		return
	}

	valid, _ := h.balance.ValidBalance(c.Request.Context(), body.UserID, body.CategoryID)
	c.JSON(http.StatusOK, gin.H{"valid_balance": valid.String()})
}

// Debit removes funds from a user's wallet, cascading across the scope chain.
func (h *WalletAdminHandler) Debit(c *gin.Context) {
	adminID := getAdminID(c)
	if adminID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body mutationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, reason := body.parse()
	if reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	shortfall, errDebit := h.balance.Debit(c.Request.Context(), wallet.DebitParams{
		UserID:      body.UserID,
		Amount:      amount,
		Source:      body.Source,
		CategoryID:  body.CategoryID,
		Description: body.Description,
		ActorID:     adminID,
	})
	if errDebit != nil {
		switch {
		case errors.Is(errDebit, wallet.ErrInsufficientBalance):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "insufficient balance",
				"shortfall": shortfall.String(),
			})
		case errors.Is(errDebit, category.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "debit failed"})
		}
		return
	}

	valid, _ := h.balance.ValidBalance(c.Request.Context(), body.UserID, body.CategoryID)
	c.JSON(http.StatusOK, gin.H{"valid_balance": valid.String()})
}

// Get returns a user's wallet snapshot, optionally scoped by category_id.
func (h *WalletAdminHandler) Get(c *gin.Context) {
	userID, ok := paramUint(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	categoryID := queryUint(c, "category_id", 0)

	details, errLoad := h.balance.Details(c.Request.Context(), userID, categoryID)
	if errLoad != nil {
		if errors.Is(errLoad, category.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load wallet failed"})
		return
	}

	categories := make(map[uint64]gin.H, len(details.CatBalance))
	for id, t := range details.CatBalance {
		categories[id] = gin.H{
			"refundable":     t.Refundable.String(),
			"non_refundable": t.NonRefundable.String(),
			"free":           t.Free.String(),
			"balance":        t.Balance().String(),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"main": gin.H{
			"refundable":     details.Main.Refundable.String(),
			"non_refundable": details.Main.NonRefundable.String(),
			"free":           details.Main.Free.String(),
			"balance":        details.Main.Balance().String(),
		},
		"categories":    categories,
		"total_balance": details.TotalBalance().String(),
		"valid_balance": details.ValidBalance().String(),
		"category_id":   categoryID,
	})
}

// Ledger lists a user's ledger entries, newest first.
func (h *WalletAdminHandler) Ledger(c *gin.Context) {
	userID, ok := paramUint(c, "user_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	page, pageSize := pagination(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID)
	if t := c.Query("type"); t == models.LedgerTypeCredit || t == models.LedgerTypeDebit {
		query = query.Where("type = ?", t)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query ledger failed"})
		return
	}
	var entries []models.LedgerEntry
	if errFind := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query ledger failed"})
		return
	}

	resp := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, gin.H{
			"id":             e.ID,
			"type":           e.Type,
			"amount":         e.Amount.String(),
			"balance_before": e.BalanceBefore.String(),
			"balance_after":  e.BalanceAfter.String(),
			"category_id":    e.CategoryID,
			"refundable":     e.Refundable,
			"free":           e.Free,
			"source":         e.Source,
			"description":    e.Description,
			"actor_id":       e.ActorID,
			"reference":      e.Reference,
			"created_at":     e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": resp, "total": total, "page": page, "page_size": pageSize})
}
