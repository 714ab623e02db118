package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pageza/recipebook/internal/listing"
	"github.com/pageza/recipebook/internal/types"
)

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func (a *App) printPage(page *types.PaginatedResponse[types.Recipe], current int) error {
	if a.JSON {
		return a.printJSON(page)
	}
	if len(page.Results) == 0 {
		fmt.Fprintln(a.out, "No recipes found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tTIME\tRATING\tADDED")
	for _, r := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d min\t%.1f (%d)\t%s\n",
			r.ID, r.Title, r.Category.Name, r.CookingTime, r.Rating, r.ReviewsCount, ago(r.CreatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s recipes", humanize.Comma(int64(page.Count)))
	if pages := listing.PageNumbers(current, page.TotalPages); pages != nil {
		fmt.Fprintf(a.out, ", page %d of %d: %s", current, page.TotalPages, pageBar(pages, current))
	}
	fmt.Fprintln(a.out)
	return nil
}

func pageBar(pages []int, current int) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		switch p {
		case listing.Ellipsis:
			parts = append(parts, "...")
		case current:
			parts = append(parts, "["+strconv.Itoa(p)+"]")
		default:
			parts = append(parts, strconv.Itoa(p))
		}
	}
	return strings.Join(parts, " ")
}

func (a *App) printRecipe(r *types.Recipe) error {
	if a.JSON {
		return a.printJSON(r)
	}
	fmt.Fprintf(a.out, "%s (#%d)\n", r.Title, r.ID)
	fmt.Fprintf(a.out, "%s by %s, added %s\n", r.Category.Name, r.Author.Username, ago(r.CreatedAt))
	fmt.Fprintf(a.out, "%d min, %d servings, rating %.1f from %d reviews", r.CookingTime, r.Servings, r.Rating, r.ReviewsCount)
	if r.UserRating != nil {
		fmt.Fprintf(a.out, ", your rating %d", *r.UserRating)
	}
	fmt.Fprintln(a.out)
	if r.Description != "" {
		fmt.Fprintf(a.out, "\n%s\n", r.Description)
	}

	fmt.Fprintln(a.out, "\nIngredients:")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(a.out, "  - %s: %s\n", ing.Name, ing.Amount)
	}
	fmt.Fprintln(a.out, "\nSteps:")
	for i, st := range r.Steps {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, st.Description)
	}
	if len(r.Comments) > 0 {
		fmt.Fprintf(a.out, "\nComments (%d):\n", len(r.Comments))
		for _, c := range r.Comments {
			fmt.Fprintf(a.out, "  %s, %s: %s\n", c.User.Username, ago(c.CreatedAt), c.Content)
		}
	}
	return nil
}

func (a *App) printCategories(cats []types.Category) error {
	if a.JSON {
		return a.printJSON(cats)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tRECIPES")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Slug, c.Name, c.RecipesCount)
	}
	return tw.Flush()
}

func (a *App) printUser(u *types.User) error {
	if a.JSON {
		return a.printJSON(u)
	}
	if u == nil {
		fmt.Fprintln(a.out, "Signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", u.Username, u.Email)
	return nil
}
