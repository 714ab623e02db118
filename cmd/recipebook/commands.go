package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pageza/recipebook/internal/form"
	"github.com/pageza/recipebook/internal/listing"
	"github.com/pageza/recipebook/internal/session"
	"github.com/pageza/recipebook/internal/types"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a recipe id", errUsage, raw)
	}
	return id, nil
}

func pageFlags(fs *flag.FlagSet) (page *string, sort, order *string) {
	page = fs.String("page", "1", "page number")
	sort = fs.String("sort", "", "sort field")
	order = fs.String("order", "", "asc or desc")
	return page, sort, order
}

func pageParams(page, sort, order string, options []string) (types.PageParams, error) {
	p := types.PageParams{Page: listing.ParsePage(page), Sort: sort, Order: order}
	if sort != "" || order != "" {
		st := listing.SortState{Sort: sort, Order: order}
		if st.Sort == "" {
			st.Sort = options[0]
		}
		if st.Order == "" {
			st.Order = listing.OrderDesc
		}
		if !st.Valid(options) {
			return p, fmt.Errorf("%w: sort must be one of %s and order asc or desc", errUsage, strings.Join(options, ", "))
		}
		p.Sort, p.Order = st.Sort, st.Order
	}
	return p, nil
}

func formError(errs map[string]string) error {
	return &session.FieldErrors{Fields: errs}
}

func (a *App) cmdRecipes(ctx context.Context, args []string) error {
	fs := newFlagSet("recipes")
	featured := fs.Bool("featured", false, "featured recipes only")
	limit := fs.Int("limit", 0, "page size")
	page, sort, order := pageFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	params := types.RecipeListParams{
		Featured: *featured,
		Limit:    *limit,
		Sort:     *sort,
		Order:    *order,
		Page:     listing.ParsePage(*page),
	}
	res := a.queries.Recipes(ctx, params)
	if res.Err != nil {
		return res.Err
	}
	return a.printPage(res.Data, params.Page)
}

func (a *App) cmdRecipe(ctx context.Context, args []string) error {
	pos, err := parseArgs(newFlagSet("recipe"), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	res := a.queries.Recipe(ctx, id)
	if res.Err != nil {
		return res.Err
	}
	return a.printRecipe(res.Data)
}

func (a *App) cmdCategories(ctx context.Context, args []string) error {
	if _, err := parseArgs(newFlagSet("categories"), args); err != nil {
		return err
	}
	res := a.queries.Categories(ctx)
	if res.Err != nil {
		return res.Err
	}
	return a.printCategories(res.Data)
}

func (a *App) cmdCategory(ctx context.Context, args []string) error {
	fs := newFlagSet("category")
	page, sort, order := pageFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	params, err := pageParams(*page, *sort, *order, listing.CategorySorts)
	if err != nil {
		return err
	}
	res := a.queries.CategoryRecipes(ctx, pos[0], params)
	if res.Err != nil {
		return res.Err
	}
	return a.printPage(res.Data, params.Page)
}

func (a *App) cmdSearch(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	page, sort, order := pageFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	params, err := pageParams(*page, *sort, *order, listing.SearchSorts)
	if err != nil {
		return err
	}
	res := a.queries.Search(ctx, strings.Join(pos, " "), params)
	if res.Err != nil {
		return res.Err
	}
	if res.Data == nil {
		fmt.Fprintln(a.out, "Enter a search query.")
		return nil
	}
	return a.printPage(res.Data, params.Page)
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("%w: -email and -password are required", errUsage)
	}
	if err := a.session.Login(ctx, a.auth, *email, *password); err != nil {
		return err
	}
	return a.printUser(a.session.User())
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("username", "", "user name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation, defaults to -password")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *confirm == "" {
		*confirm = *password
	}
	err := a.session.Register(ctx, a.auth, types.RegisterRequest{
		Username:  *username,
		Email:     *email,
		Password:  *password,
		Password2: *confirm,
	})
	if err != nil {
		return err
	}
	return a.printUser(a.session.User())
}

func (a *App) cmdLogout(ctx context.Context, args []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) cmdWhoami(ctx context.Context, args []string) error {
	if !a.session.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err := a.session.Verify(ctx, a.auth); err != nil {
		if !a.session.IsAuthenticated() {
			fmt.Fprintln(a.out, "Session expired, sign in again.")
			return nil
		}
		return err
	}
	return a.printUser(a.session.User())
}

func (a *App) cmdRate(ctx context.Context, args []string) error {
	pos, err := parseArgs(newFlagSet("rate"), args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(pos[1])
	if err != nil {
		return fmt.Errorf("%w: rating must be a number from 1 to 5", errUsage)
	}
	if _, err := a.recipes.RateRecipe(ctx, id, rating); err != nil {
		return err
	}

	res := a.queries.RefetchRecipe(ctx, id)
	if res.Err != nil {
		return res.Err
	}
	if a.JSON {
		return a.printJSON(res.Data)
	}
	fmt.Fprintf(a.out, "Rated %q %d. Average %.1f from %d reviews.\n", res.Data.Title, rating, res.Data.Rating, res.Data.ReviewsCount)
	return nil
}

func (a *App) cmdComment(ctx context.Context, args []string) error {
	pos, err := parseArgs(newFlagSet("comment"), args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	comment, err := a.recipes.AddComment(ctx, id, strings.Join(pos[1:], " "))
	if err != nil {
		return err
	}
	if res := a.queries.RefetchRecipe(ctx, id); res.Err != nil {
		return res.Err
	}
	if a.JSON {
		return a.printJSON(comment)
	}
	fmt.Fprintf(a.out, "Comment #%d added.\n", comment.ID)
	return nil
}

func (a *App) attachImage(ctx context.Context, f *form.RecipeForm, ref string) error {
	if ref == "" {
		return nil
	}
	loader, err := a.imageLoader(ctx, ref)
	if err != nil {
		return err
	}
	img, err := loader.Open(ctx, ref)
	if err != nil {
		return err
	}
	f.SetImage(img)
	return nil
}

func (a *App) cmdCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	file := fs.String("f", "", "recipe YAML file")
	image := fs.String("image", "", "image path or s3:// reference")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: -f is required", errUsage)
	}
	rf, err := readRecipeFile(*file)
	if err != nil {
		return err
	}

	f := form.New()
	rf.apply(f)
	ref := *image
	if ref == "" {
		ref = rf.Image
	}
	if err := a.attachImage(ctx, f, ref); err != nil {
		return err
	}
	if errs := f.Validate(); len(errs) > 0 {
		return formError(errs)
	}

	created, err := a.recipes.CreateRecipe(ctx, f.Input())
	if err != nil {
		return err
	}
	return a.printRecipe(created)
}

func (a *App) cmdUpdate(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	file := fs.String("f", "", "recipe YAML file")
	image := fs.String("image", "", "image path or s3:// reference")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 || *file == "" {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	rf, err := readRecipeFile(*file)
	if err != nil {
		return err
	}

	current := a.queries.Recipe(ctx, id)
	if current.Err != nil {
		return current.Err
	}
	f := form.FromRecipe(current.Data)
	rf.apply(f)
	ref := *image
	if ref == "" {
		ref = rf.Image
	}
	if err := a.attachImage(ctx, f, ref); err != nil {
		return err
	}
	if errs := f.Validate(); len(errs) > 0 {
		return formError(errs)
	}

	changes := rf.RecipeInput
	changes.Image = f.Image
	updated, err := a.recipes.UpdateRecipe(ctx, id, changes)
	if err != nil {
		return err
	}
	a.queries.RefetchRecipe(ctx, id)
	return a.printRecipe(updated)
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	pos, err := parseArgs(newFlagSet("delete"), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	if err := a.recipes.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	a.queries.InvalidateRecipe(ctx, id)
	fmt.Fprintf(a.out, "Recipe %d deleted.\n", id)
	return nil
}
