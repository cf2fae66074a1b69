package middleware

import (
	"net/http"

	"github.com/Josevinuez/trade-in-api/services"
	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"
)

// OrderTokenParser verifies order access tokens
type OrderTokenParser interface {
	Parse(token string) (*services.OrderTokenClaims, error)
}

// RequireOrderAccess admits the bearer of a valid order access token for the :orderNumber in the path
func RequireOrderAccess(tokens OrderTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, err := jwtmiddleware.AuthHeaderTokenExtractor(c.Request)
		if err != nil || rawToken == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header with the order access token is required")
			return
		}

		claims, err := tokens.Parse(rawToken)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Order access token is invalid or expired")
			return
		}

		if claims.OrderNumber != c.Param("orderNumber") {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Order access token does not grant access to this order")
			return
		}

		c.Set("order_claims", claims)
		c.Next()
	}
}

// GetOrderClaims extracts the verified order token claims from the Gin context
func GetOrderClaims(c *gin.Context) (*services.OrderTokenClaims, error) {
	value, exists := c.Get("order_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Order claims not found in context"}
	}

	claims, ok := value.(*services.OrderTokenClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Order claims are not in the expected format"}
	}

	return claims, nil
}
