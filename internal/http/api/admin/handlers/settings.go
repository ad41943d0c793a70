package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsAdminHandler reads and updates DB-backed settings. Every update
// refreshes the in-memory snapshot so new values apply immediately.
type SettingsAdminHandler struct {
	db *gorm.DB
}

// NewSettingsAdminHandler constructs a SettingsAdminHandler.
func NewSettingsAdminHandler(db *gorm.DB) *SettingsAdminHandler {
	return &SettingsAdminHandler{db: db}
}

// List returns all settings rows.
func (h *SettingsAdminHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query settings failed"})
		return
	}

	resp := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		resp[row.Key] = row.Value
	}
	c.JSON(http.StatusOK, gin.H{"settings": resp})
}

// Update upserts the provided keys and refreshes the snapshot.
func (h *SettingsAdminHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	now := time.Now().UTC()
	rows := make([]models.Setting, 0, len(body))
	for key, value := range body {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		rows = append(rows, models.Setting{Key: key, Value: value, UpdatedAt: now})
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no keys provided"})
		return
	}

	if errSave := h.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: snapshot refresh failed after update")
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(rows)})
}
