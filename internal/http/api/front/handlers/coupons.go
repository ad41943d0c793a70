package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/coupon"
)

// CouponHandler serves coupon validation and redemption for users.
type CouponHandler struct {
	machine *coupon.Machine
}

// NewCouponHandler constructs a CouponHandler.
func NewCouponHandler(machine *coupon.Machine) *CouponHandler {
	return &CouponHandler{machine: machine}
}

// couponRequest is the shared body for validate and redeem.
type couponRequest struct {
	Code   string `json:"code"`
	Area   string `json:"area"`
	AreaID uint64 `json:"area_id"`
}

func (r *couponRequest) normalize() bool {
	r.Code = strings.TrimSpace(r.Code)
	r.Area = strings.TrimSpace(r.Area)
	return r.Code != "" && r.Area != ""
}

// Validate runs the validation chain without redeeming.
func (h *CouponHandler) Validate(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || !body.normalize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and area are required"})
		return
	}

	v, errValidate := h.machine.Validate(c.Request.Context(), body.Code, userID, coupon.Area(body.Area), body.AreaID)
	if errValidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validate coupon failed"})
		return
	}

	if !v.Valid() {
		c.JSON(http.StatusOK, gin.H{"valid": false, "reason": v.Reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"type":  v.Coupon.Type,
		"value": v.Coupon.Value.String(),
	})
}

// Redeem validates and applies a coupon in one call.
func (h *CouponHandler) Redeem(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || !body.normalize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and area are required"})
		return
	}

	v, errValidate := h.machine.Validate(c.Request.Context(), body.Code, userID, coupon.Area(body.Area), body.AreaID)
	if errValidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validate coupon failed"})
		return
	}
	if !v.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": v.Reason})
		return
	}

	effect, errApply := h.machine.Apply(c.Request.Context(), v)
	if errApply != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "redeem coupon failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":               v.Coupon.Type,
		"credited":           effect.Credited.String(),
		"enrolled":           effect.Enrolled,
		"discount_activated": effect.DiscountActivated,
		"used":               effect.Used,
	})
}
