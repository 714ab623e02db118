// Package form holds the editable state of a recipe before it is
// submitted.
package form

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pageza/recipebook/internal/types"
)

const (
	DefaultCookingTime = 30
	DefaultServings    = 2
)

// Validation messages keyed by field
const (
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgCookingTime         = "Cooking time must be greater than 0"
	MsgServings            = "Servings must be greater than 0"
	MsgCategoryRequired    = "Choose a category"
	MsgImageRequired       = "Add a photo of the dish"
	MsgIngredients         = "Fill in every ingredient field"
	MsgSteps               = "Fill in every cooking step"
)

// IngredientRow is an ingredient being edited. ID is scoped to the form.
type IngredientRow struct {
	ID     string
	Name   string
	Amount string
}

// StepRow is a step being edited. ID is scoped to the form.
type StepRow struct {
	ID          string
	Description string
	ImageURL    string
}

// RecipeForm is the editable state of a recipe
type RecipeForm struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	CookingTime int    `validate:"gt=0"`
	Servings    int    `validate:"gt=0"`
	Category    string `validate:"required"`

	// ImageURL is the current image of a recipe being edited
	ImageURL string
	Image    *types.ImageFile

	editing     bool
	ingredients []IngredientRow
	steps       []StepRow
	nextID      int
}

var validate = validator.New()

// New returns an empty create form with one blank ingredient and step
func New() *RecipeForm {
	f := &RecipeForm{
		CookingTime: DefaultCookingTime,
		Servings:    DefaultServings,
	}
	f.AddIngredient()
	f.AddStep()
	return f
}

// FromRecipe returns an edit form seeded from r
func FromRecipe(r *types.Recipe) *RecipeForm {
	f := &RecipeForm{
		Title:       r.Title,
		Description: r.Description,
		CookingTime: r.CookingTime,
		Servings:    r.Servings,
		Category:    r.Category.Slug,
		ImageURL:    r.ImageURL,
		editing:     true,
	}
	for _, ing := range r.Ingredients {
		f.ingredients = append(f.ingredients, IngredientRow{ID: f.newID(), Name: ing.Name, Amount: ing.Amount})
	}
	for _, st := range r.Steps {
		f.steps = append(f.steps, StepRow{ID: f.newID(), Description: st.Description, ImageURL: st.ImageURL})
	}
	if len(f.ingredients) == 0 {
		f.AddIngredient()
	}
	if len(f.steps) == 0 {
		f.AddStep()
	}
	return f
}

func (f *RecipeForm) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

// Editing reports whether the form edits an existing recipe
func (f *RecipeForm) Editing() bool {
	return f.editing
}

// Ingredients returns a copy of the ingredient rows in order
func (f *RecipeForm) Ingredients() []IngredientRow {
	return append([]IngredientRow(nil), f.ingredients...)
}

// Steps returns a copy of the step rows in order
func (f *RecipeForm) Steps() []StepRow {
	return append([]StepRow(nil), f.steps...)
}

// AddIngredient appends a blank ingredient row and returns its id
func (f *RecipeForm) AddIngredient() string {
	id := f.newID()
	f.ingredients = append(f.ingredients, IngredientRow{ID: id})
	return id
}

// UpdateIngredient sets the name and amount of row id
func (f *RecipeForm) UpdateIngredient(id, name, amount string) bool {
	for i := range f.ingredients {
		if f.ingredients[i].ID == id {
			f.ingredients[i].Name = name
			f.ingredients[i].Amount = amount
			return true
		}
	}
	return false
}

// RemoveIngredient deletes row id. The last remaining row is kept.
func (f *RecipeForm) RemoveIngredient(id string) bool {
	if len(f.ingredients) <= 1 {
		return false
	}
	for i := range f.ingredients {
		if f.ingredients[i].ID == id {
			f.ingredients = append(f.ingredients[:i], f.ingredients[i+1:]...)
			return true
		}
	}
	return false
}

// AddStep appends a blank step row and returns its id
func (f *RecipeForm) AddStep() string {
	id := f.newID()
	f.steps = append(f.steps, StepRow{ID: id})
	return id
}

// UpdateStep sets the description of row id
func (f *RecipeForm) UpdateStep(id, description string) bool {
	for i := range f.steps {
		if f.steps[i].ID == id {
			f.steps[i].Description = description
			return true
		}
	}
	return false
}

// SetStepImage sets the illustration URL of row id
func (f *RecipeForm) SetStepImage(id, imageURL string) bool {
	for i := range f.steps {
		if f.steps[i].ID == id {
			f.steps[i].ImageURL = imageURL
			return true
		}
	}
	return false
}

// RemoveStep deletes row id. The last remaining row is kept.
func (f *RecipeForm) RemoveStep(id string) bool {
	if len(f.steps) <= 1 {
		return false
	}
	for i := range f.steps {
		if f.steps[i].ID == id {
			f.steps = append(f.steps[:i], f.steps[i+1:]...)
			return true
		}
	}
	return false
}

// SetImage attaches the image to upload
func (f *RecipeForm) SetImage(img *types.ImageFile) {
	f.Image = img
}

var fieldMessages = map[string]string{
	"Title":       MsgTitleRequired,
	"Description": MsgDescriptionRequired,
	"CookingTime": MsgCookingTime,
	"Servings":    MsgServings,
	"Category":    MsgCategoryRequired,
}

var fieldKeys = map[string]string{
	"Title":       "title",
	"Description": "description",
	"CookingTime": "cooking_time",
	"Servings":    "servings",
	"Category":    "category",
}

// Validate returns a message per invalid field, empty when the form can
// be submitted
func (f *RecipeForm) Validate() map[string]string {
	errs := map[string]string{}

	trimmed := *f
	trimmed.Title = strings.TrimSpace(f.Title)
	trimmed.Description = strings.TrimSpace(f.Description)
	trimmed.Category = strings.TrimSpace(f.Category)
	if err := validate.Struct(&trimmed); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs[fieldKeys[fe.Field()]] = fieldMessages[fe.Field()]
			}
		}
	}

	if !f.editing && f.Image == nil {
		errs["image"] = MsgImageRequired
	}
	for _, ing := range f.ingredients {
		if strings.TrimSpace(ing.Name) == "" || strings.TrimSpace(ing.Amount) == "" {
			errs["ingredients"] = MsgIngredients
			break
		}
	}
	for _, st := range f.steps {
		if strings.TrimSpace(st.Description) == "" {
			errs["steps"] = MsgSteps
			break
		}
	}
	return errs
}

// Input converts the form into a submission payload. Row ids are dropped.
func (f *RecipeForm) Input() types.RecipeInput {
	in := types.RecipeInput{
		Title:       f.Title,
		Description: f.Description,
		CookingTime: f.CookingTime,
		Servings:    f.Servings,
		Category:    f.Category,
		Image:       f.Image,
		Ingredients: make([]types.IngredientInput, 0, len(f.ingredients)),
		Steps:       make([]types.StepInput, 0, len(f.steps)),
	}
	for _, ing := range f.ingredients {
		in.Ingredients = append(in.Ingredients, types.IngredientInput{Name: ing.Name, Amount: ing.Amount})
	}
	for _, st := range f.steps {
		in.Steps = append(in.Steps, types.StepInput{Description: st.Description, ImageURL: st.ImageURL})
	}
	return in
}
