package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	testJWTSecret = "test-jwt-secret"
	pageSize      = 10
)

// Backend is an in-process stand-in for the recipe API. It serves the
// same routes and payload shapes under /api and counts every request it
// receives.
type Backend struct {
	Server *httptest.Server
	DB     *gorm.DB

	mu      sync.Mutex
	hits    map[string]int
	latency time.Duration
}

// NewBackend starts a Backend for the duration of the test
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		DB:   SetupTestDatabase(t),
		hits: make(map[string]int),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"},
	}))
	router.Use(b.record)
	b.registerRoutes(router)

	b.Server = httptest.NewServer(router)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API base URL
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

// Hits returns how many requests reached method and path, for example
// Hits("GET", "/api/recipes/1/")
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// TotalHits returns the number of requests served
func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

// SetLatency delays every response by d
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	b.latency = d
	b.mu.Unlock()
}

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	b.hits[c.Request.Method+" "+c.Request.URL.Path]++
	latency := b.latency
	b.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	c.Next()
}

func (b *Backend) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(b.authenticate(false))

	auth := api.Group("/auth")
	{
		auth.POST("/register/", b.register)
		auth.POST("/login/", b.login)
		auth.GET("/user/", b.authenticate(true), b.currentUser)
	}

	recipes := api.Group("/recipes")
	{
		recipes.GET("/", b.listRecipes)
		recipes.GET("/search/", b.searchRecipes)
		recipes.GET("/:id/", b.getRecipe)
		recipes.POST("/", b.authenticate(true), b.createRecipe)
		recipes.PATCH("/:id/", b.authenticate(true), b.updateRecipe)
		recipes.DELETE("/:id/", b.authenticate(true), b.deleteRecipe)
		recipes.POST("/:id/rate/", b.authenticate(true), b.rateRecipe)
		recipes.POST("/:id/comments/", b.authenticate(true), b.addComment)
	}

	categories := api.Group("/categories")
	{
		categories.GET("/", b.listCategories)
		categories.GET("/:slug/recipes/", b.categoryRecipes)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	})
}
