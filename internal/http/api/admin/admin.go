package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/learnstack/coursewallet/internal/config"
	"github.com/learnstack/coursewallet/internal/http/api/admin/handlers"
	"github.com/learnstack/coursewallet/internal/security"
	"github.com/learnstack/coursewallet/internal/wallet"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers administrative routes. Admin tokens are issued
// by the host platform; this service only verifies them.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, balance *wallet.Balance) {
	if r == nil || db == nil {
		return
	}

	adminGroup := r.Group("/v0/admin")
	adminGroup.Use(adminAuthMiddleware(jwtCfg))

	couponHandler := handlers.NewCouponAdminHandler(db)
	adminGroup.GET("/coupons", couponHandler.List)
	adminGroup.POST("/coupons", couponHandler.Create)
	adminGroup.PUT("/coupons/:id", couponHandler.Update)
	adminGroup.DELETE("/coupons/:id", couponHandler.Delete)
	adminGroup.GET("/coupons/:code/usage", couponHandler.Usage)

	walletHandler := handlers.NewWalletAdminHandler(db, balance)
	adminGroup.POST("/wallet/credit", walletHandler.Credit)
	adminGroup.POST("/wallet/debit", walletHandler.Debit)
	adminGroup.GET("/wallet/:user_id", walletHandler.Get)
	adminGroup.GET("/wallet/:user_id/ledger", walletHandler.Ledger)

	settingsHandler := handlers.NewSettingsAdminHandler(db)
	adminGroup.GET("/settings", settingsHandler.List)
	adminGroup.PUT("/settings", settingsHandler.Update)
}

// adminAuthMiddleware validates admin JWTs and stores the admin ID in context.
func adminAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("adminID", claims.AdminID)
		c.Next()
	}
}
