package testhelpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/recipebook/internal/types"
)

var errBadForm = errors.New("invalid form")

func (b *Backend) loadRecipes(scope func(*gorm.DB) *gorm.DB) ([]recipeRecord, error) {
	var recs []recipeRecord
	q := b.DB.Preload("Category").Preload("Author").Preload("Ratings")
	if scope != nil {
		q = scope(q)
	}
	err := q.Find(&recs).Error
	return recs, err
}

func (b *Backend) loadRecipe(id string) (*recipeRecord, error) {
	var rec recipeRecord
	err := b.DB.
		Preload("Category").
		Preload("Author").
		Preload("Ratings").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.User").
		First(&rec, "id = ?", id).Error
	return &rec, err
}

func averageRating(rec *recipeRecord) float64 {
	if len(rec.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rec.Ratings {
		sum += r.Value
	}
	return math.Round(float64(sum)/float64(len(rec.Ratings))*10) / 10
}

func toRecipe(rec *recipeRecord, viewer *userRecord) types.Recipe {
	out := types.Recipe{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		CookingTime:  rec.CookingTime,
		Servings:     rec.Servings,
		ImageURL:     rec.ImageURL,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		Rating:       averageRating(rec),
		ReviewsCount: len(rec.Ratings),
		Featured:     rec.Featured,
		Category:     types.CategorySummary{ID: rec.Category.ID, Name: rec.Category.Name, Slug: rec.Category.Slug},
		Author:       toUser(&rec.Author),
		Ingredients:  []types.Ingredient{},
		Steps:        []types.Step{},
		Comments:     []types.Comment{},
	}
	if viewer != nil {
		for _, r := range rec.Ratings {
			if r.UserID == viewer.ID {
				v := r.Value
				out.UserRating = &v
			}
		}
	}
	for _, ing := range rec.Ingredients {
		out.Ingredients = append(out.Ingredients, types.Ingredient{Name: ing.Name, Amount: ing.Amount})
	}
	for _, st := range rec.Steps {
		out.Steps = append(out.Steps, types.Step{Description: st.Description, ImageURL: st.ImageURL})
	}
	for i := range rec.Comments {
		out.Comments = append(out.Comments, toComment(&rec.Comments[i]))
	}
	return out
}

func toComment(c *commentRecord) types.Comment {
	return types.Comment{ID: c.ID, Content: c.Content, CreatedAt: c.CreatedAt, User: toUser(&c.User)}
}

// sortRecipes orders recipes by one of rating, title, cooking_time or
// created_at. Unknown fields fall back to created_at; order defaults to desc.
func sortRecipes(recs []recipeRecord, field, order string) {
	asc := order == "asc"
	less := func(i, j int) int {
		a, b := &recs[i], &recs[j]
		switch field {
		case "rating":
			return cmpFloat(averageRating(a), averageRating(b))
		case "title":
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case "cooking_time":
			return a.CookingTime - b.CookingTime
		default:
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return int(a.ID - b.ID)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if asc {
			return less(i, j) < 0
		}
		return less(i, j) > 0
	})
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate(c *gin.Context, recs []recipeRecord, size int, viewer *userRecord) types.PaginatedResponse[types.Recipe] {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	total := len(recs)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	out := types.PaginatedResponse[types.Recipe]{
		Count:      total,
		TotalPages: totalPages,
		Results:    []types.Recipe{},
	}
	start := (page - 1) * size
	if start < total {
		end := min(start+size, total)
		for i := start; i < end; i++ {
			out.Results = append(out.Results, toRecipe(&recs[i], viewer))
		}
	}
	if page < totalPages {
		next := pageURL(c, page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		out.Previous = &prev
	}
	return out
}

func pageURL(c *gin.Context, page int) string {
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("http://%s%s?%s", c.Request.Host, c.Request.URL.Path, q.Encode())
}

func (b *Backend) listRecipes(c *gin.Context) {
	recs, err := b.loadRecipes(func(q *gorm.DB) *gorm.DB {
		if c.Query("featured") == "true" {
			q = q.Where("featured = ?", true)
		}
		return q
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	sortRecipes(recs, c.Query("sort"), c.Query("order"))

	size := pageSize
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		size = limit
	}
	c.JSON(http.StatusOK, paginate(c, recs, size, currentUser(c)))
}

func (b *Backend) searchRecipes(c *gin.Context) {
	text := strings.TrimSpace(c.Query("query"))
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}
	like := "%" + strings.ToLower(text) + "%"
	recs, err := b.loadRecipes(func(q *gorm.DB) *gorm.DB {
		return q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	field := c.DefaultQuery("sort", "relevance")
	if field == "relevance" {
		needle := strings.ToLower(text)
		sort.SliceStable(recs, func(i, j int) bool {
			ti := strings.Contains(strings.ToLower(recs[i].Title), needle)
			tj := strings.Contains(strings.ToLower(recs[j].Title), needle)
			if ti != tj {
				return ti
			}
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		})
	} else {
		sortRecipes(recs, field, c.Query("order"))
	}
	c.JSON(http.StatusOK, paginate(c, recs, pageSize, currentUser(c)))
}

func (b *Backend) getRecipe(c *gin.Context) {
	rec, err := b.loadRecipe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, toRecipe(rec, currentUser(c)))
}

func (b *Backend) listCategories(c *gin.Context) {
	var cats []categoryRecord
	if err := b.DB.Order("name").Find(&cats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	out := make([]types.Category, 0, len(cats))
	for _, cat := range cats {
		var n int64
		b.DB.Model(&recipeRecord{}).Where("category_id = ?", cat.ID).Count(&n)
		out = append(out, types.Category{ID: cat.ID, Name: cat.Name, Slug: cat.Slug, ImageURL: cat.ImageURL, RecipesCount: int(n)})
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) categoryRecipes(c *gin.Context) {
	var cat categoryRecord
	if err := b.DB.Where("slug = ?", c.Param("slug")).First(&cat).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	recs, err := b.loadRecipes(func(q *gorm.DB) *gorm.DB {
		return q.Where("category_id = ?", cat.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	sortRecipes(recs, c.Query("sort"), c.Query("order"))
	c.JSON(http.StatusOK, paginate(c, recs, pageSize, currentUser(c)))
}

func (b *Backend) createRecipe(c *gin.Context) {
	rec := recipeRecord{AuthorID: currentUser(c).ID}
	fieldErrs, err := b.bindRecipeForm(c, &rec, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}
	if err := b.DB.Omit("Category", "Author").Create(&rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	b.respondRecipe(c, http.StatusCreated, rec.ID)
}

func (b *Backend) updateRecipe(c *gin.Context) {
	rec, err := b.loadRecipe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if rec.AuthorID != currentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}

	hadIngredients := c.PostForm("ingredients") != ""
	hadSteps := c.PostForm("steps") != ""
	fieldErrs, err := b.bindRecipeForm(c, rec, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}

	err = b.DB.Transaction(func(tx *gorm.DB) error {
		if hadIngredients {
			if err := tx.Where("recipe_id = ?", rec.ID).Delete(&ingredientRecord{}).Error; err != nil {
				return err
			}
		}
		if hadSteps {
			if err := tx.Where("recipe_id = ?", rec.ID).Delete(&stepRecord{}).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Omit("Category", "Author", "Ratings", "Comments").Save(rec).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	b.respondRecipe(c, http.StatusOK, rec.ID)
}

func (b *Backend) deleteRecipe(c *gin.Context) {
	rec, err := b.loadRecipe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if rec.AuthorID != currentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}
	err = b.DB.Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&ingredientRecord{}, &stepRecord{}, &ratingRecord{}, &commentRecord{}} {
			if err := tx.Where("recipe_id = ?", rec.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&recipeRecord{}, rec.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (b *Backend) rateRecipe(c *gin.Context) {
	rec, err := b.loadRecipe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	var req types.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"rating": []string{"Rating must be between 1 and 5."}})
		return
	}

	user := currentUser(c)
	var existing ratingRecord
	err = b.DB.Where("recipe_id = ? AND user_id = ?", rec.ID, user.ID).First(&existing).Error
	switch {
	case err == nil:
		existing.Value = req.Rating
		err = b.DB.Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = b.DB.Create(&ratingRecord{RecipeID: rec.ID, UserID: user.ID, Value: req.Rating}).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rating set"})
}

func (b *Backend) addComment(c *gin.Context) {
	rec, err := b.loadRecipe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	var req types.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"content": []string{"This field may not be blank."}})
		return
	}
	user := currentUser(c)
	comment := commentRecord{RecipeID: rec.ID, UserID: user.ID, User: *user, Content: req.Content}
	if err := b.DB.Omit("User").Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toComment(&comment))
}

func (b *Backend) respondRecipe(c *gin.Context, status int, id int64) {
	rec, err := b.loadRecipe(strconv.FormatInt(id, 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(status, toRecipe(rec, currentUser(c)))
}

// bindRecipeForm copies the multipart form onto rec. With partial set,
// absent fields keep their current values.
func (b *Backend) bindRecipeForm(c *gin.Context, rec *recipeRecord, partial bool) (gin.H, error) {
	if _, err := c.MultipartForm(); err != nil {
		return nil, errBadForm
	}
	fieldErrs := gin.H{}
	required := func(name string) (string, bool) {
		v, ok := c.GetPostForm(name)
		if !ok && partial {
			return "", false
		}
		if strings.TrimSpace(v) == "" {
			fieldErrs[name] = []string{"This field is required."}
			return "", false
		}
		return v, true
	}
	positive := func(name string) (int, bool) {
		v, ok := required(name)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fieldErrs[name] = []string{"Ensure this value is greater than 0."}
			return 0, false
		}
		return n, true
	}

	if v, ok := required("title"); ok {
		rec.Title = v
	}
	if v, ok := required("description"); ok {
		rec.Description = v
	}
	if n, ok := positive("cooking_time"); ok {
		rec.CookingTime = n
	}
	if n, ok := positive("servings"); ok {
		rec.Servings = n
	}
	if v, ok := required("category"); ok {
		var cat categoryRecord
		if err := b.DB.Where("slug = ? OR CAST(id AS TEXT) = ? OR name = ?", v, v, v).First(&cat).Error; err != nil {
			fieldErrs["category"] = []string{fmt.Sprintf("Invalid category %q.", v)}
		} else {
			rec.CategoryID = cat.ID
			rec.Category = cat
		}
	}

	if raw, ok := c.GetPostForm("ingredients"); ok || !partial {
		var items []types.IngredientInput
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			fieldErrs["ingredients"] = []string{"Invalid ingredient list."}
		} else {
			rec.Ingredients = rec.Ingredients[:0]
			for i, it := range items {
				rec.Ingredients = append(rec.Ingredients, ingredientRecord{Position: i, Name: it.Name, Amount: it.Amount})
			}
		}
	}
	if raw, ok := c.GetPostForm("steps"); ok || !partial {
		var items []types.StepInput
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			fieldErrs["steps"] = []string{"Invalid step list."}
		} else {
			rec.Steps = rec.Steps[:0]
			for i, it := range items {
				rec.Steps = append(rec.Steps, stepRecord{Position: i, Description: it.Description, ImageURL: it.ImageURL})
			}
		}
	}

	if file, err := c.FormFile("image"); err == nil {
		rec.ImageURL = "/media/recipes/" + uuid.NewString() + filepath.Ext(file.Filename)
	}
	return fieldErrs, nil
}
