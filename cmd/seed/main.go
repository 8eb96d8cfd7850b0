// Command seed creates an administrator account, or promotes an existing
// account with the same e-mail, in the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/marina/internal/app/runtime"
	"github.com/R3E-Network/marina/internal/app/services/users"
	"github.com/R3E-Network/marina/internal/config"
	"github.com/R3E-Network/marina/internal/logging"
)

func main() {
	var (
		envFile   = flag.String("env", ".env", "Optional .env file to load before reading the environment")
		email     = flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "Admin e-mail")
		password  = flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "Admin password (min 6 characters)")
		firstname = flag.String("firstname", "Admin", "Admin first name")
		lastname  = flag.String("lastname", "Marina", "Admin last name")
	)
	flag.Parse()

	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env (%s): %v\n", *envFile, err)
			os.Exit(1)
		}
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "both -email and -password are required")
		os.Exit(2)
	}

	if err := run(*email, *password, *firstname, *lastname); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(email, password, firstname, lastname string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Docs.Enabled = false
	log := logging.New("seed", cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	application, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer application.Shutdown(ctx)

	u, created, err := application.App().Users.EnsureAdmin(ctx, users.CreateInput{
		Firstname: firstname,
		Lastname:  lastname,
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	action := "ensured"
	if created {
		action = "created"
	}
	fmt.Printf("Admin %s %s (id %s) in %s store\n", u.Email, action, u.ID, cfg.Database.Driver)
	return nil
}
