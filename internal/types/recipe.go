package types

import (
	"time"
)

// Recipe represents a recipe as served by the recipe API
type Recipe struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	CookingTime  int             `json:"cooking_time"`
	Servings     int             `json:"servings"`
	ImageURL     string          `json:"image_url"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Rating       float64         `json:"rating"`
	ReviewsCount int             `json:"reviews_count"`
	UserRating   *int            `json:"user_rating,omitempty"`
	Featured     bool            `json:"featured"`
	Ingredients  []Ingredient    `json:"ingredients"`
	Steps        []Step          `json:"steps"`
	Category     CategorySummary `json:"category"`
	Author       User            `json:"author"`
	Comments     []Comment       `json:"comments"`
	Nutrition    *Nutrition      `json:"nutrition,omitempty"`
}

// Ingredient is a single line of a recipe's ingredient list. ID is only
// meaningful while a recipe is being edited locally.
type Ingredient struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Step is one cooking step; its position in Recipe.Steps is the step number.
type Step struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Nutrition represents nutritional information for a recipe
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// CategorySummary is the category embedded in a recipe
type CategorySummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Category represents a recipe category
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ImageURL     string `json:"image_url"`
	RecipesCount int    `json:"recipes_count"`
}

// Comment represents a user comment on a recipe
type Comment struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	User       User      `json:"user"`
	LikesCount int       `json:"likes_count"`
}

// RatingResponse is returned by the rate endpoint
type RatingResponse struct {
	Status     string   `json:"status"`
	Rating     *float64 `json:"rating,omitempty"`
	UserRating *int     `json:"user_rating,omitempty"`
}
