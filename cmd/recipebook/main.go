package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pageza/recipebook/config"
	"github.com/pageza/recipebook/internal/logger"
	"github.com/pageza/recipebook/internal/session"
)

const usage = `usage: recipebook [-config file] [-json] <command> [args]

commands:
  recipes    [-featured] [-limit n] [-sort field] [-order asc|desc] [-page n]
  recipe     <id>
  categories
  category   <slug> [-page n] [-sort field] [-order asc|desc]
  search     <query> [-page n] [-sort field] [-order asc|desc]
  login      -email address -password secret
  register   -username name -email address -password secret [-confirm secret]
  logout
  whoami
  rate       <id> <1-5>
  comment    <id> <text>
  create     -f recipe.yaml [-image path|s3://bucket/key]
  update     <id> -f recipe.yaml [-image path|s3://bucket/key]
  delete     <id>
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("recipebook", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configFile := fs.String("config", "", "path to a config file")
	jsonOut := fs.Bool("json", false, "print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log, err := logger.New(cfg.Environment().IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer app.Close()
	app.JSON = *jsonOut

	if err := app.Run(ctx, fs.Args()); err != nil {
		printError(stderr, err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var fieldErrs *session.FieldErrors
	if errors.As(err, &fieldErrs) {
		names := make([]string, 0, len(fieldErrs.Fields))
		for name := range fieldErrs.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, fieldErrs.Fields[name])
		}
		return
	}
	fmt.Fprintln(w, err)
}
