package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/category"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/settings"
	"github.com/learnstack/coursewallet/internal/wallet"
	"gorm.io/gorm"
)

// WalletHandler serves the authenticated user's wallet endpoints.
type WalletHandler struct {
	db      *gorm.DB
	balance *wallet.Balance
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(db *gorm.DB, balance *wallet.Balance) *WalletHandler {
	return &WalletHandler{db: db, balance: balance}
}

// categoryTripleDTO renders one balance triple. Decimals travel as strings to
// keep precision out of float hands.
type categoryTripleDTO struct {
	Refundable    string `json:"refundable"`
	NonRefundable string `json:"non_refundable"`
	Free          string `json:"free"`
	Balance       string `json:"balance"`
}

func tripleDTO(t models.CategoryDetails) categoryTripleDTO {
	return categoryTripleDTO{
		Refundable:    t.Refundable.String(),
		NonRefundable: t.NonRefundable.String(),
		Free:          t.Free.String(),
		Balance:       t.Balance().String(),
	}
}

// Get returns the wallet snapshot. An optional category_id query parameter
// scopes the valid balance to that category's chain.
func (h *WalletHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
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

	categories := make(map[uint64]categoryTripleDTO, len(details.CatBalance))
	for id, t := range details.CatBalance {
		categories[id] = tripleDTO(t)
	}

	valid := details.ValidBalance()
	c.JSON(http.StatusOK, gin.H{
		"main":          tripleDTO(details.Main),
		"categories":    categories,
		"total_balance": details.TotalBalance().String(),
		"valid_balance": valid.String(),
		"category_id":   categoryID,
		"low_balance":   valid.LessThan(settings.LowBalanceThreshold()),
	})
}

// transactionDTO renders one ledger entry.
type transactionDTO struct {
	ID            uint64    `json:"id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	CategoryID    uint64    `json:"category_id"`
	Refundable    bool      `json:"refundable"`
	Free          bool      `json:"free"`
	Source        string    `json:"source"`
	Description   string    `json:"description"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"created_at"`
}

// Transactions lists the user's ledger entries, newest first.
func (h *WalletHandler) Transactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query transactions failed"})
		return
	}

	var entries []models.LedgerEntry
	if errFind := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query transactions failed"})
		return
	}

	resp := make([]transactionDTO, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, transactionDTO{
			ID:            e.ID,
			Type:          e.Type,
			Amount:        e.Amount.String(),
			BalanceBefore: e.BalanceBefore.String(),
			BalanceAfter:  e.BalanceAfter.String(),
			CategoryID:    e.CategoryID,
			Refundable:    e.Refundable,
			Free:          e.Free,
			Source:        e.Source,
			Description:   e.Description,
			Reference:     e.Reference,
			CreatedAt:     e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": resp,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}
