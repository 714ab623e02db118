package testhelpers

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pageza/recipebook/internal/types"
)

const userKey = "user"

// authenticate resolves the bearer token into the request user. With
// required set, requests without a valid token are rejected.
func (b *Backend) authenticate(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(userKey); ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
				return
			}
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header must contain two space-delimited values"})
			return
		}

		claims, err := validateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}

		var user userRecord
		if err := b.DB.First(&user, claims.UserID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
			return
		}
		c.Set(userKey, &user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *userRecord {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*userRecord)
	return u
}

func generateToken(user *userRecord) (string, error) {
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(testJWTSecret))
}

func validateToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(testJWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func toUser(u *userRecord) types.User {
	return types.User{ID: u.ID, Username: u.Username, Email: u.Email, AvatarURL: u.AvatarURL}
}

func (b *Backend) register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error"})
		return
	}

	fieldErrs := gin.H{}
	if len(req.Username) < 3 {
		fieldErrs["username"] = []string{"Ensure this field has at least 3 characters."}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrs["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < 6 {
		fieldErrs["password"] = []string{"Ensure this field has at least 6 characters."}
	} else if req.Password != req.Password2 {
		fieldErrs["password"] = []string{"Password fields didn't match."}
	}
	var count int64
	b.DB.Model(&userRecord{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		fieldErrs["username"] = []string{"A user with that username already exists."}
	}
	b.DB.Model(&userRecord{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		fieldErrs["email"] = []string{"user with this email already exists."}
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}

	user, err := b.createUser(req.Username, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	token, err := generateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	u := toUser(user)
	c.JSON(http.StatusCreated, types.AuthResponse{Token: token, User: &u})
}

func (b *Backend) login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error"})
		return
	}

	var user userRecord
	if err := b.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	access, err := generateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	u := toUser(&user)
	c.JSON(http.StatusOK, types.AuthResponse{Access: access, Refresh: access, User: &u})
}

func (b *Backend) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, toUser(currentUser(c)))
}

func (b *Backend) createUser(username, email, password string) (*userRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	user := &userRecord{Username: username, Email: email, PasswordHash: string(hash)}
	if err := b.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
