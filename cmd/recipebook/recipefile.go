package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pageza/recipebook/internal/form"
	"github.com/pageza/recipebook/internal/types"
)

// recipeFile is the YAML document accepted by create and update
type recipeFile struct {
	types.RecipeInput `yaml:",inline"`
	Image             string `yaml:"image"`
}

func readRecipeFile(name string) (*recipeFile, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	var rf recipeFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file: %w", err)
	}
	return &rf, nil
}

// apply copies the non-zero parts of the file onto f. Listed ingredients
// and steps replace the form's rows.
func (rf *recipeFile) apply(f *form.RecipeForm) {
	in := rf.RecipeInput
	if in.Title != "" {
		f.Title = in.Title
	}
	if in.Description != "" {
		f.Description = in.Description
	}
	if in.CookingTime != 0 {
		f.CookingTime = in.CookingTime
	}
	if in.Servings != 0 {
		f.Servings = in.Servings
	}
	if in.Category != "" {
		f.Category = in.Category
	}
	if len(in.Ingredients) > 0 {
		replaceIngredients(f, in.Ingredients)
	}
	if len(in.Steps) > 0 {
		replaceSteps(f, in.Steps)
	}
}

func replaceIngredients(f *form.RecipeForm, items []types.IngredientInput) {
	old := f.Ingredients()
	for _, it := range items {
		id := f.AddIngredient()
		f.UpdateIngredient(id, it.Name, it.Amount)
	}
	for _, row := range old {
		f.RemoveIngredient(row.ID)
	}
}

func replaceSteps(f *form.RecipeForm, items []types.StepInput) {
	old := f.Steps()
	for _, it := range items {
		id := f.AddStep()
		f.UpdateStep(id, it.Description)
		f.SetStepImage(id, it.ImageURL)
	}
	for _, row := range old {
		f.RemoveStep(row.ID)
	}
}
