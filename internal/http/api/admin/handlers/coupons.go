package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/db"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponAdminHandler manages coupon records. The usage counters are owned by
// the redemption state machine and are not editable here.
type CouponAdminHandler struct {
	db *gorm.DB
}

// NewCouponAdminHandler constructs a CouponAdminHandler.
func NewCouponAdminHandler(db *gorm.DB) *CouponAdminHandler {
	return &CouponAdminHandler{db: db}
}

// couponRequest is the create/update body.
type couponRequest struct {
	Code              string     `json:"code"`
	Type              string     `json:"type"`
	Value             string     `json:"value"`
	CategoryID        uint64     `json:"category_id"`
	EligibleCourseIDs []uint64   `json:"eligible_course_ids"`
	MaxUses           int64      `json:"max_uses"`
	MaxUsesPerUser    int64      `json:"max_uses_per_user"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidTo           *time.Time `json:"valid_to"`
}

var couponTypes = map[models.CouponType]bool{
	models.CouponTypeFixed:    true,
	models.CouponTypePercent:  true,
	models.CouponTypeCategory: true,
	models.CouponTypeEnrol:    true,
}

// toModel validates the body and builds the coupon row.
func (r *couponRequest) toModel() (*models.Coupon, string) {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return nil, "code is required"
	}
	couponType := models.CouponType(strings.TrimSpace(r.Type))
	if !couponTypes[couponType] {
		return nil, "unknown coupon type"
	}

	value := decimal.Zero
	if couponType != models.CouponTypeEnrol {
		parsed, errParse := decimal.NewFromString(strings.TrimSpace(r.Value))
		if errParse != nil || !parsed.IsPositive() {
			return nil, "value must be a positive decimal"
		}
		if couponType == models.CouponTypePercent && parsed.GreaterThan(decimal.NewFromInt(100)) {
			return nil, "percentage cannot exceed 100"
		}
		value = parsed
	}

	row := &models.Coupon{
		Code:           code,
		Type:           couponType,
		Value:          value,
		CategoryID:     r.CategoryID,
		MaxUses:        r.MaxUses,
		MaxUsesPerUser: r.MaxUsesPerUser,
	}
	if couponType == models.CouponTypeEnrol {
		if len(r.EligibleCourseIDs) == 0 {
			return nil, "enrol coupons need at least one eligible course"
		}
		raw, errMarshal := json.Marshal(r.EligibleCourseIDs)
		if errMarshal != nil {
			return nil, "invalid eligible course list"
		}
		row.EligibleCourseIDs = raw
	}
	if r.ValidFrom != nil {
		row.ValidFrom = r.ValidFrom.UTC()
	}
	if r.ValidTo != nil {
		row.ValidTo = r.ValidTo.UTC()
	}
	if !row.ValidFrom.IsZero() && !row.ValidTo.IsZero() && row.ValidTo.Before(row.ValidFrom) {
		return nil, "valid_to precedes valid_from"
	}
	return row, ""
}

// couponDTO renders a coupon row.
type couponDTO struct {
	ID             uint64     `json:"id"`
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	Value          string     `json:"value"`
	CategoryID     uint64     `json:"category_id"`
	EligibleCourse []uint64   `json:"eligible_course_ids,omitempty"`
	MaxUses        int64      `json:"max_uses"`
	MaxUsesPerUser int64      `json:"max_uses_per_user"`
	UseCount       int64      `json:"use_count"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidTo        *time.Time `json:"valid_to,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

func toCouponDTO(row *models.Coupon) couponDTO {
	dto := couponDTO{
		ID:             row.ID,
		Code:           row.Code,
		Type:           string(row.Type),
		Value:          row.Value.String(),
		CategoryID:     row.CategoryID,
		MaxUses:        row.MaxUses,
		MaxUsesPerUser: row.MaxUsesPerUser,
		UseCount:       row.UseCount,
		CreatedAt:      row.CreatedAt,
		LastUsedAt:     row.LastUsedAt,
	}
	if eligible, errParse := row.EligibleCourses(); errParse == nil {
		dto.EligibleCourse = eligible
	}
	if !row.ValidFrom.IsZero() {
		from := row.ValidFrom
		dto.ValidFrom = &from
	}
	if !row.ValidTo.IsZero() {
		to := row.ValidTo
		dto.ValidTo = &to
	}
	return dto
}

// List returns coupons, optionally filtered by type or a code substring.
func (h *CouponAdminHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)
	query := h.db.WithContext(c.Request.Context()).Model(&models.Coupon{})
	if t := strings.TrimSpace(c.Query("type")); t != "" {
		query = query.Where("type = ?", t)
	}
	if code := strings.TrimSpace(c.Query("code")); code != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+code+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "code"), pattern)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query coupons failed"})
		return
	}
	var rows []models.Coupon
	if errFind := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query coupons failed"})
		return
	}

	resp := make([]couponDTO, 0, len(rows))
	for i := range rows {
		resp = append(resp, toCouponDTO(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"coupons": resp, "total": total, "page": page, "page_size": pageSize})
}

// Create inserts a new coupon.
func (h *CouponAdminHandler) Create(c *gin.Context) {
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, reason := body.toModel()
	if reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).
		Model(&models.Coupon{}).
		Where("code = ?", row.Code).
		Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create coupon failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
		return
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create coupon failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": toCouponDTO(row)})
}

// Update replaces the editable fields of a coupon. Usage counters survive.
func (h *CouponAdminHandler) Update(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updated, reason := body.toModel()
	if reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	var row models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query coupon failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&row).Updates(map[string]any{
		"code":                updated.Code,
		"type":                updated.Type,
		"value":               updated.Value,
		"category_id":         updated.CategoryID,
		"eligible_course_ids": updated.EligibleCourseIDs,
		"max_uses":            updated.MaxUses,
		"max_uses_per_user":   updated.MaxUsesPerUser,
		"valid_from":          updated.ValidFrom,
		"valid_to":            updated.ValidTo,
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update coupon failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": toCouponDTO(&row)})
}

// Delete removes a coupon. Usage history is kept for audit.
func (h *CouponAdminHandler) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Coupon{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete coupon failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Usage lists redemption records for one coupon code.
func (h *CouponAdminHandler) Usage(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	page, pageSize := pagination(c)

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.CouponUsage{}).
		Where("code = ?", code)
	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}
	var rows []models.CouponUsage
	if errFind := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}

	resp := make([]gin.H, 0, len(rows))
	for _, u := range rows {
		resp = append(resp, gin.H{
			"id":        u.ID,
			"code":      u.Code,
			"type":      u.Type,
			"value":     u.Value.String(),
			"user_id":   u.UserID,
			"target_id": u.TargetID,
			"area":      u.Area,
			"used_at":   u.UsedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"usages": resp, "total": total, "page": page, "page_size": pageSize})
}
