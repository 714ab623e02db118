package service

import (
	"context"
	"strings"

	"github.com/pageza/recipebook/internal/query"
	"github.com/pageza/recipebook/internal/types"
)

// Cache key resources
const (
	ResourceRecipe          = "recipe"
	ResourceRecipes         = "recipes"
	ResourceCategories      = "categories"
	ResourceCategoryRecipes = "category-recipes"
	ResourceSearch          = "search"
	ResourceCurrentUser     = "current-user"
)

// AnonymousViewer scopes keys of data fetched without a session
const AnonymousViewer = "anonymous"

// ViewerFunc names the identity requests are currently made for. Recipe
// payloads carry the viewer's own rating, so every recipe key includes it.
type ViewerFunc func() string

func RecipeKey(viewer string, id int64) query.Key {
	return query.NewKey(ResourceRecipe, viewer, id)
}

func RecipesKey(viewer string, p types.RecipeListParams) query.Key {
	return query.NewKey(ResourceRecipes, viewer, p.Featured, p.Limit, p.Sort, p.Order, p.Page)
}

func CategoriesKey() query.Key {
	return query.NewKey(ResourceCategories)
}

func CategoryRecipesKey(viewer, slug string, p types.PageParams) query.Key {
	return query.NewKey(ResourceCategoryRecipes, viewer, slug, p.Page, p.Sort, p.Order)
}

func SearchKey(viewer, q string, p types.PageParams) query.Key {
	return query.NewKey(ResourceSearch, viewer, strings.TrimSpace(q), p.Page, p.Sort, p.Order)
}

// Queries binds the recipe operations to a query cache. Reads go through
// the cache; a query missing a required parameter stays idle without a
// request.
type Queries struct {
	cache   *query.Cache
	recipes IRecipeService
	viewer  ViewerFunc
}

// QueriesOption configures Queries
type QueriesOption func(*Queries)

// WithViewer scopes recipe keys to the identity reported by v
func WithViewer(v ViewerFunc) QueriesOption {
	return func(q *Queries) {
		if v != nil {
			q.viewer = v
		}
	}
}

// NewQueries creates a Queries over cache. Without WithViewer every key is
// scoped to AnonymousViewer.
func NewQueries(cache *query.Cache, recipes IRecipeService, opts ...QueriesOption) *Queries {
	q := &Queries{
		cache:   cache,
		recipes: recipes,
		viewer:  func() string { return AnonymousViewer },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Cache returns the underlying cache
func (q *Queries) Cache() *query.Cache {
	return q.cache
}

func (q *Queries) Recipe(ctx context.Context, id int64) query.Result[*types.Recipe] {
	return query.Fetch(ctx, q.cache, RecipeKey(q.viewer(), id), q.getRecipe(id), query.Enabled(id > 0))
}

func (q *Queries) Recipes(ctx context.Context, p types.RecipeListParams) query.Result[*types.PaginatedResponse[types.Recipe]] {
	return query.Fetch(ctx, q.cache, RecipesKey(q.viewer(), p), func(ctx context.Context) (*types.PaginatedResponse[types.Recipe], error) {
		return q.recipes.ListRecipes(ctx, p)
	})
}

func (q *Queries) Categories(ctx context.Context) query.Result[[]types.Category] {
	return query.Fetch(ctx, q.cache, CategoriesKey(), func(ctx context.Context) ([]types.Category, error) {
		return q.recipes.ListCategories(ctx)
	})
}

func (q *Queries) CategoryRecipes(ctx context.Context, slug string, p types.PageParams) query.Result[*types.PaginatedResponse[types.Recipe]] {
	return query.Fetch(ctx, q.cache, CategoryRecipesKey(q.viewer(), slug, p), func(ctx context.Context) (*types.PaginatedResponse[types.Recipe], error) {
		return q.recipes.RecipesByCategory(ctx, slug, p)
	}, query.Enabled(strings.TrimSpace(slug) != ""))
}

func (q *Queries) Search(ctx context.Context, text string, p types.PageParams) query.Result[*types.PaginatedResponse[types.Recipe]] {
	return query.Fetch(ctx, q.cache, SearchKey(q.viewer(), text, p), func(ctx context.Context) (*types.PaginatedResponse[types.Recipe], error) {
		return q.recipes.SearchRecipes(ctx, text, p)
	}, query.Enabled(strings.TrimSpace(text) != ""))
}

// RefetchRecipe reloads one recipe from the backend after a rating or
// comment. Neither cache level can answer it.
func (q *Queries) RefetchRecipe(ctx context.Context, id int64) query.Result[*types.Recipe] {
	return query.Reload(ctx, q.cache, RecipeKey(q.viewer(), id), q.getRecipe(id), query.Enabled(id > 0))
}

// InvalidateRecipe drops one recipe from both cache levels
func (q *Queries) InvalidateRecipe(ctx context.Context, id int64) {
	q.cache.Invalidate(ctx, RecipeKey(q.viewer(), id))
}

func (q *Queries) getRecipe(id int64) func(ctx context.Context) (*types.Recipe, error) {
	return func(ctx context.Context) (*types.Recipe, error) {
		return q.recipes.GetRecipe(ctx, id)
	}
}
