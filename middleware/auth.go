package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Email string `json:"email"`
}

// Validate does nothing for this example, but we need
// it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// StaffAuthorizer checks an email against the staff allow-list
type StaffAuthorizer interface {
	Authorize(ctx context.Context, email string) (*models.StaffMember, error)
}

// issuerURL accepts a full issuer URL or a bare Auth0 style domain
func issuerURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + strings.TrimSuffix(raw, "/") + "/"
}

// NewTokenValidator builds the staff access token validator.
// With AUTH_JWT_SECRET set tokens are HS256 signed with the shared secret (Supabase);
// otherwise RS256 keys are fetched from the issuer's JWKS (Auth0).
func NewTokenValidator(cfg *config.Config) (*validator.Validator, error) {
	issuer := issuerURL(cfg.AuthIssuerURL)
	customClaims := validator.WithCustomClaims(
		func() validator.CustomClaims {
			return &CustomClaims{}
		},
	)

	if cfg.AuthJWTSecret != "" {
		secret := []byte(cfg.AuthJWTSecret)
		keyFunc := func(ctx context.Context) (interface{}, error) {
			return secret, nil
		}
		return validator.New(
			keyFunc,
			validator.HS256,
			issuer,
			[]string{cfg.AuthAudience},
			customClaims,
			validator.WithAllowedClockSkew(time.Minute),
		)
	}

	parsed, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}
	provider := jwks.NewCachingProvider(parsed, 5*time.Minute)

	return validator.New(
		provider.KeyFunc,
		validator.RS256,
		parsed.String(),
		[]string{cfg.AuthAudience},
		customClaims,
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(jwtValidator *validator.Validator) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		code, message := "INVALID_TOKEN", "Failed to validate JWT."
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			code, message = "MISSING_TOKEN", "Authorization header with a bearer token is required."
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		body := fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
		if _, writeErr := w.Write([]byte(body)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true

			// Store the validated claims in Gin context
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			rawToken, _ := jwtmiddleware.AuthHeaderTokenExtractor(r)

			c.Request = r
			c.Set("user_id", token.RegisteredClaims.Subject)
			c.Set("validated_claims", token)
			c.Set("access_token", rawToken)

			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		// The error handler already wrote the response
		if !validated {
			c.Abort()
		}
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetAccessToken returns the raw bearer token of a validated request
func GetAccessToken(c *gin.Context) (string, error) {
	token := c.GetString("access_token")
	if token == "" {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}
	return token, nil
}

// RequireStaff resolves the caller's email (token claim first, then the identity provider)
// and admits only active staff members whose role is allowed. The member is stored in the context.
func RequireStaff(identity services.IdentityResolver, staff StaffAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "MISSING_CLAIMS", "Could not retrieve token claims")
			return
		}
		subject, err := GetUserID(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "MISSING_USER_ID", "Could not retrieve the token subject")
			return
		}

		email := ""
		if customClaims, ok := claims.CustomClaims.(*CustomClaims); ok {
			email = customClaims.Email
		}

		if email == "" && identity != nil {
			accessToken, err := GetAccessToken(c)
			if err == nil {
				info, infoErr := identity.GetUserInfo(c.Request.Context(), accessToken)
				if infoErr != nil {
					log.Printf("Failed to resolve identity for %s: %v", subject, infoErr)
					abortWithError(c, http.StatusUnauthorized, "IDENTITY_UNRESOLVED", "Could not resolve the caller's identity")
					return
				}
				email = info.Email
			}
		}

		if email == "" {
			abortWithError(c, http.StatusForbidden, "NOT_STAFF", "No email is associated with this token")
			return
		}

		member, err := staff.Authorize(c.Request.Context(), email)
		switch {
		case errors.Is(err, services.ErrNotStaff):
			log.Printf("Denied staff access to %s (%s)", email, subject)
			abortWithError(c, http.StatusForbidden, "NOT_STAFF", "Caller is not an active staff member")
			return
		case errors.Is(err, services.ErrRoleNotAllowed):
			abortWithError(c, http.StatusForbidden, "ROLE_NOT_ALLOWED", "Staff role is not allowed to access this resource")
			return
		case err != nil:
			log.Printf("Failed to authorize staff %s (%s): %v", email, subject, err)
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to authorize caller")
			return
		}

		SetStaff(c, member)
		c.Next()
	}
}

// RequireRole admits only staff members holding one of roles. It must run after RequireStaff.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, err := GetStaff(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "MISSING_STAFF", "Staff identity not found")
			return
		}

		for _, role := range roles {
			if member.Role == role {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusForbidden, "INSUFFICIENT_ROLE", "Insufficient permissions to access this resource")
	}
}

// SetStaff stores the authorized staff member in the Gin context
func SetStaff(c *gin.Context, member *models.StaffMember) {
	c.Set("staff", member)
}

// GetStaff extracts the authorized staff member from the Gin context
func GetStaff(c *gin.Context) (*models.StaffMember, error) {
	value, exists := c.Get("staff")
	if !exists {
		return nil, &AuthError{Code: "MISSING_STAFF", Message: "Staff member not found in context"}
	}

	member, ok := value.(*models.StaffMember)
	if !ok {
		return nil, &AuthError{Code: "INVALID_STAFF", Message: "Staff member is not in the expected format"}
	}

	return member, nil
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
