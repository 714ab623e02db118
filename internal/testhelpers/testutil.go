package testhelpers

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipebook/internal/types"
)

// DefaultPassword is the password of users created by CreateTestUser
const DefaultPassword = "testpassword123"

// RecipeSeed describes a recipe inserted directly into the backend
type RecipeSeed struct {
	Title       string
	Description string
	CookingTime int
	Servings    int
	Featured    bool
	Category    types.Category
	Author      types.User
	Ingredients []types.IngredientInput
	Steps       []types.StepInput
}

// CreateTestUser creates a user with DefaultPassword and a unique email
func (b *Backend) CreateTestUser(t *testing.T) types.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	return b.CreateUser(t, "cook_"+suffix, fmt.Sprintf("cook+%s@example.com", suffix), DefaultPassword)
}

// CreateUser creates a user with the given credentials
func (b *Backend) CreateUser(t *testing.T, username, email, password string) types.User {
	t.Helper()
	user, err := b.createUser(username, email, password)
	require.NoError(t, err)
	return toUser(user)
}

// Token issues a valid access token for user
func (b *Backend) Token(t *testing.T, user types.User) string {
	t.Helper()
	token, err := generateToken(&userRecord{ID: user.ID, Username: user.Username, Email: user.Email})
	require.NoError(t, err)
	return token
}

// CreateTestCategory creates a category
func (b *Backend) CreateTestCategory(t *testing.T, name, slug string) types.Category {
	t.Helper()
	cat := categoryRecord{Name: name, Slug: slug}
	require.NoError(t, b.DB.Create(&cat).Error)
	return types.Category{ID: cat.ID, Name: cat.Name, Slug: cat.Slug}
}

// CreateTestRecipe inserts a recipe. Zero fields get usable defaults.
func (b *Backend) CreateTestRecipe(t *testing.T, seed RecipeSeed) types.Recipe {
	t.Helper()
	if seed.Title == "" {
		seed.Title = "Test Recipe"
	}
	if seed.Description == "" {
		seed.Description = "A test recipe"
	}
	if seed.CookingTime == 0 {
		seed.CookingTime = 30
	}
	if seed.Servings == 0 {
		seed.Servings = 2
	}
	if seed.Author.ID == 0 {
		seed.Author = b.CreateTestUser(t)
	}
	if seed.Category.ID == 0 {
		slug := "category-" + uuid.NewString()[:8]
		seed.Category = b.CreateTestCategory(t, "Category "+slug, slug)
	}
	if seed.Ingredients == nil {
		seed.Ingredients = []types.IngredientInput{{Name: "ingredient1", Amount: "1 cup"}}
	}
	if seed.Steps == nil {
		seed.Steps = []types.StepInput{{Description: "step1"}}
	}

	rec := recipeRecord{
		Title:       seed.Title,
		Description: seed.Description,
		CookingTime: seed.CookingTime,
		Servings:    seed.Servings,
		Featured:    seed.Featured,
		CategoryID:  seed.Category.ID,
		AuthorID:    seed.Author.ID,
	}
	for i, ing := range seed.Ingredients {
		rec.Ingredients = append(rec.Ingredients, ingredientRecord{Position: i, Name: ing.Name, Amount: ing.Amount})
	}
	for i, st := range seed.Steps {
		rec.Steps = append(rec.Steps, stepRecord{Position: i, Description: st.Description, ImageURL: st.ImageURL})
	}
	require.NoError(t, b.DB.Omit("Category", "Author").Create(&rec).Error)

	loaded, err := b.loadRecipe(fmt.Sprint(rec.ID))
	require.NoError(t, err)
	return toRecipe(loaded, nil)
}

// RecipeExists reports whether a recipe row is present
func (b *Backend) RecipeExists(t *testing.T, id int64) bool {
	t.Helper()
	var n int64
	require.NoError(t, b.DB.Model(&recipeRecord{}).Where("id = ?", id).Count(&n).Error)
	return n > 0
}

// JSONMarshal is a helper function to marshal JSON for testing
func JSONMarshal(t *testing.T, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return data
}
