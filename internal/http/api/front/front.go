package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/config"
	"github.com/learnstack/coursewallet/internal/coupon"
	"github.com/learnstack/coursewallet/internal/http/api/front/handlers"
	"github.com/learnstack/coursewallet/internal/http/middleware"
	"github.com/learnstack/coursewallet/internal/models"
	"github.com/learnstack/coursewallet/internal/security"
	"github.com/learnstack/coursewallet/internal/wallet"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers authenticated user-facing routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, balance *wallet.Balance, machine *coupon.Machine) {
	if r == nil || db == nil {
		return
	}

	front := r.Group("/v0/front")

	authed := front.Group("")
	authed.Use(userAuthMiddleware(db, jwtCfg))

	walletHandler := handlers.NewWalletHandler(db, balance)
	authed.GET("/wallet", walletHandler.Get)
	authed.GET("/wallet/transactions", walletHandler.Transactions)

	couponHandler := handlers.NewCouponHandler(machine)
	coupons := authed.Group("/coupons")
	coupons.Use(middleware.RateLimit(2, 5))
	coupons.POST("/validate", couponHandler.Validate)
	coupons.POST("/redeem", couponHandler.Redeem)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
