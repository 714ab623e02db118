package service

import (
	"context"

	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/types"
)

// APIClient performs classified requests against the backend
type APIClient interface {
	Do(ctx context.Context, r apiclient.Request, out any) error
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	ListRecipes(ctx context.Context, params types.RecipeListParams) (*types.PaginatedResponse[types.Recipe], error)
	GetRecipe(ctx context.Context, id int64) (*types.Recipe, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
	RecipesByCategory(ctx context.Context, slug string, params types.PageParams) (*types.PaginatedResponse[types.Recipe], error)
	SearchRecipes(ctx context.Context, query string, params types.PageParams) (*types.PaginatedResponse[types.Recipe], error)
	CreateRecipe(ctx context.Context, input types.RecipeInput) (*types.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, input types.RecipeInput) (*types.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
	RateRecipe(ctx context.Context, id int64, rating int) (*types.RatingResponse, error)
	AddComment(ctx context.Context, id int64, content string) (*types.Comment, error)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (*types.AuthResponse, error)
	Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error)
	CurrentUser(ctx context.Context) (*types.User, error)
}
