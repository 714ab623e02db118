package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pageza/recipebook/internal/apiclient"
	"github.com/pageza/recipebook/internal/types"
)

// RecipeService wraps the recipe, category and search endpoints
type RecipeService struct {
	api APIClient
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(api APIClient) *RecipeService {
	return &RecipeService{api: api}
}

var _ IRecipeService = (*RecipeService)(nil)

// ListRecipes lists recipes, optionally featured only
func (s *RecipeService) ListRecipes(ctx context.Context, params types.RecipeListParams) (*types.PaginatedResponse[types.Recipe], error) {
	var out types.PaginatedResponse[types.Recipe]
	if err := s.get(ctx, "/recipes/", params.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecipe retrieves a recipe by ID
func (s *RecipeService) GetRecipe(ctx context.Context, id int64) (*types.Recipe, error) {
	if id <= 0 {
		return nil, apiclient.NewRequestError("recipe id is required", nil)
	}
	var out types.Recipe
	if err := s.get(ctx, recipePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories returns every category in backend order
func (s *RecipeService) ListCategories(ctx context.Context) ([]types.Category, error) {
	var out []types.Category
	if err := s.get(ctx, "/categories/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecipesByCategory lists one page of a category
func (s *RecipeService) RecipesByCategory(ctx context.Context, slug string, params types.PageParams) (*types.PaginatedResponse[types.Recipe], error) {
	if strings.TrimSpace(slug) == "" {
		return nil, apiclient.NewRequestError("category is required", nil)
	}
	var out types.PaginatedResponse[types.Recipe]
	path := "/categories/" + url.PathEscape(slug) + "/recipes/"
	if err := s.get(ctx, path, params.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchRecipes runs a free-text search
func (s *RecipeService) SearchRecipes(ctx context.Context, query string, params types.PageParams) (*types.PaginatedResponse[types.Recipe], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apiclient.NewRequestError("search query is required", nil)
	}
	v := params.Values()
	v.Set("query", query)

	var out types.PaginatedResponse[types.Recipe]
	if err := s.get(ctx, "/recipes/search/", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecipe submits a new recipe as multipart form data
func (s *RecipeService) CreateRecipe(ctx context.Context, input types.RecipeInput) (*types.Recipe, error) {
	return s.submit(ctx, http.MethodPost, "/recipes/", input, false)
}

// UpdateRecipe sends the non-zero fields of input
func (s *RecipeService) UpdateRecipe(ctx context.Context, id int64, input types.RecipeInput) (*types.Recipe, error) {
	if id <= 0 {
		return nil, apiclient.NewRequestError("recipe id is required", nil)
	}
	return s.submit(ctx, http.MethodPatch, recipePath(id), input, true)
}

// DeleteRecipe deletes a recipe
func (s *RecipeService) DeleteRecipe(ctx context.Context, id int64) error {
	if id <= 0 {
		return apiclient.NewRequestError("recipe id is required", nil)
	}
	return wrapErr(s.api.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: recipePath(id)}, nil))
}

// RateRecipe sets the caller's rating. Callers refetch the recipe to see
// the new aggregate.
func (s *RecipeService) RateRecipe(ctx context.Context, id int64, rating int) (*types.RatingResponse, error) {
	if id <= 0 {
		return nil, apiclient.NewRequestError("recipe id is required", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, apiclient.NewRequestError("rating must be between 1 and 5", nil)
	}
	var out types.RatingResponse
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   recipePath(id) + "rate/",
		Body:   types.RatingRequest{Rating: rating},
	}, &out)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &out, nil
}

// AddComment posts a comment on a recipe
func (s *RecipeService) AddComment(ctx context.Context, id int64, content string) (*types.Comment, error) {
	if id <= 0 {
		return nil, apiclient.NewRequestError("recipe id is required", nil)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apiclient.NewRequestError("comment cannot be empty", nil)
	}
	var out types.Comment
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   recipePath(id) + "comments/",
		Body:   types.CommentRequest{Content: content},
	}, &out)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &out, nil
}

func (s *RecipeService) get(ctx context.Context, path string, params url.Values, out any) error {
	return wrapErr(s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: path, Params: params}, out))
}

func (s *RecipeService) submit(ctx context.Context, method, path string, input types.RecipeInput, partial bool) (*types.Recipe, error) {
	body, contentType, err := encodeRecipeForm(input, partial)
	if err != nil {
		return nil, apiclient.NewRequestError("could not encode recipe", err)
	}
	var out types.Recipe
	err = s.api.Do(ctx, apiclient.Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: contentType,
	}, &out)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &out, nil
}

func recipePath(id int64) string {
	return fmt.Sprintf("/recipes/%d/", id)
}

// wrapErr passes classified errors through and folds anything else into a
// request error.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return apiclient.NewRequestError(err.Error(), err)
}
