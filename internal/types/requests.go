package types

import (
	"io"
	"net/url"
	"strconv"
)

// RecipeListParams filters the recipe list endpoint
type RecipeListParams struct {
	Featured bool
	Limit    int
	Sort     string
	Order    string
	Page     int
}

// Values encodes the non-zero parameters as a query string
func (p RecipeListParams) Values() url.Values {
	v := url.Values{}
	if p.Featured {
		v.Set("featured", "true")
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	return v
}

// PageParams are the paging and ordering parameters shared by the
// category and search endpoints
type PageParams struct {
	Page  int
	Sort  string
	Order string
}

// Values encodes the non-zero parameters as a query string
func (p PageParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	return v
}

// IngredientInput is an ingredient as submitted to the API
type IngredientInput struct {
	Name   string `json:"name" yaml:"name"`
	Amount string `json:"amount" yaml:"amount"`
}

// StepInput is a step as submitted to the API
type StepInput struct {
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// ImageFile is an image attached to a recipe submission
type ImageFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// RecipeInput is the payload for creating or updating a recipe. For updates
// only non-zero fields are sent.
type RecipeInput struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	CookingTime int               `yaml:"cooking_time"`
	Servings    int               `yaml:"servings"`
	Category    string            `yaml:"category"`
	Ingredients []IngredientInput `yaml:"ingredients"`
	Steps       []StepInput       `yaml:"steps"`
	Image       *ImageFile        `yaml:"-"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Password2 string `json:"password2" validate:"omitempty,eqfield=Password"`
}

// RatingRequest represents the rate endpoint body
type RatingRequest struct {
	Rating int `json:"rating"`
}

// CommentRequest represents the comment endpoint body
type CommentRequest struct {
	Content string `json:"content"`
}
