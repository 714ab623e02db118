package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRecord struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"size:150;not null;uniqueIndex"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	AvatarURL    string
	CreatedAt    time.Time
}

type categoryRecord struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Slug     string `gorm:"not null;uniqueIndex"`
	ImageURL string
}

type recipeRecord struct {
	ID          int64  `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`
	CookingTime int
	Servings    int
	ImageURL    string
	Featured    bool
	CategoryID  int64
	Category    categoryRecord
	AuthorID    int64
	Author      userRecord
	Ingredients []ingredientRecord `gorm:"foreignKey:RecipeID"`
	Steps       []stepRecord       `gorm:"foreignKey:RecipeID"`
	Ratings     []ratingRecord     `gorm:"foreignKey:RecipeID"`
	Comments    []commentRecord    `gorm:"foreignKey:RecipeID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ingredientRecord struct {
	ID       int64 `gorm:"primaryKey"`
	RecipeID int64 `gorm:"index"`
	Position int
	Name     string
	Amount   string
}

type stepRecord struct {
	ID          int64 `gorm:"primaryKey"`
	RecipeID    int64 `gorm:"index"`
	Position    int
	Description string `gorm:"type:text"`
	ImageURL    string
}

type ratingRecord struct {
	ID       int64 `gorm:"primaryKey"`
	RecipeID int64 `gorm:"uniqueIndex:idx_rating_recipe_user"`
	UserID   int64 `gorm:"uniqueIndex:idx_rating_recipe_user"`
	Value    int
}

type commentRecord struct {
	ID        int64 `gorm:"primaryKey"`
	RecipeID  int64 `gorm:"index"`
	UserID    int64
	User      userRecord
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

// SetupTestDatabase opens a private in-memory SQLite database with the
// backend schema migrated.
func SetupTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	// a shared-cache name per test keeps the database alive across pooled
	// connections without leaking between tests
	dsn := fmt.Sprintf("file:recipebook-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&userRecord{},
		&categoryRecord{},
		&recipeRecord{},
		&ingredientRecord{},
		&stepRecord{},
		&ratingRecord{},
		&commentRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
