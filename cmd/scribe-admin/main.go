// Package main is the entry point for the Scribe admin CLI.
// This tool provides operator commands for users, blogs and signing secrets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/scribe/internal/app"
	"github.com/prn-tf/scribe/internal/config"
	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/logging"
	"github.com/prn-tf/scribe/internal/pkg/crypto"
	"github.com/prn-tf/scribe/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "version":
		fmt.Printf("Scribe Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		err = userCommand(os.Args[2:])

	case "blog":
		err = blogCommand(os.Args[2:])

	case "secret":
		var secret string
		secret, err = crypto.GenerateSigningSecret()
		if err == nil {
			fmt.Println(secret)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open loads configuration and assembles the services.
func open(ctx context.Context, configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// Keep operator output readable; only problems are logged.
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "warn"
	cfg.Metrics.Enabled = false

	return app.New(ctx, cfg, logging.New(cfg.Logging, os.Stderr))
}

func userCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: scribe-admin user <create|show> [flags]")
	}

	fs := flag.NewFlagSet("user "+args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	email := fs.String("email", "", "email address")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch args[0] {
	case "create":
		firstName := fs.String("firstname", "", "first name")
		lastName := fs.String("lastname", "", "last name")
		password := fs.String("password", "", "password")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *firstName == "" || *lastName == "" || *email == "" || *password == "" {
			return fmt.Errorf("-firstname, -lastname, -email and -password are required")
		}

		a, err := open(ctx, *configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Users.Signup(ctx, service.SignupInput{
			FirstName:    *firstName,
			LastName:     *lastName,
			EmailAddress: *email,
			Password:     *password,
		})
		if err != nil {
			return err
		}
		printUser(out.User)
		return nil

	case "show":
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *email == "" {
			return fmt.Errorf("-email is required")
		}

		a, err := open(ctx, *configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Users.GetByEmail(ctx, *email)
		if err != nil {
			return err
		}
		printUser(user)
		return nil

	default:
		return fmt.Errorf("unknown user command: %s", args[0])
	}
}

func blogCommand(args []string) error {
	if len(args) < 1 || args[0] != "list" {
		return fmt.Errorf("usage: scribe-admin blog list [-author id] [-state draft|publish] [-page n] [-limit n]")
	}

	fs := flag.NewFlagSet("blog list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	author := fs.String("author", "", "author user id")
	stateFlag := fs.String("state", "", "draft or publish")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	state, err := domain.ParseBlogState(*stateFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := open(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	input := service.ListBlogsInput{State: state, Page: *page, Limit: *limit}

	var out *service.ListBlogsOutput
	if *author != "" {
		authorID, err := uuid.Parse(*author)
		if err != nil {
			return fmt.Errorf("invalid author id: %w", err)
		}
		// Listing as the author includes drafts.
		input.AuthorID = authorID
		input.RequesterID = authorID
		out, err = a.Blogs.ListByAuthor(ctx, input)
		if err != nil {
			return err
		}
	} else {
		out, err = a.Blogs.ListPublished(ctx, input)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATE\tAUTHOR\tCREATED")
	for _, b := range out.Blogs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.State, b.AuthorID, b.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
	fmt.Printf("\nPage %d (limit %d), %d total\n", out.Page, out.Limit, out.Total)
	return nil
}

func printUser(u *domain.User) {
	fmt.Printf("ID:      %s\n", u.ID)
	fmt.Printf("Name:    %s %s\n", u.FirstName, u.LastName)
	fmt.Printf("Email:   %s\n", u.EmailAddress)
	fmt.Printf("Created: %s\n", u.CreatedAt.Format(time.RFC3339))
}

func printUsage() {
	fmt.Println(`Scribe Admin CLI

Usage:
  scribe-admin <command> [arguments]

Commands:
  user create   Create a user (-firstname, -lastname, -email, -password)
  user show     Show a user by -email
  blog list     List blogs (-author, -state, -page, -limit)
  secret        Generate a random auth.jwt_secret value
  version       Print version information
  help          Show this help message

Every command except secret, version and help accepts -config <path>.

Examples:
  scribe-admin secret
  scribe-admin user create -firstname Ada -lastname Lovelace -email ada@example.com -password s3cret
  scribe-admin blog list -state publish -limit 10`)
}
