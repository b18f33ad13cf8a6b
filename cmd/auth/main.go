package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/login"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/user/repo"
)

func main() {
	rt, err := app.Start("auth", ":8000")
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := repo.NewUserRepo(rt.DB)
	if err := users.EnsureTable(ctx); err != nil {
		rt.Logger.Fatalf("ensure users table: %v", err)
	}
	svc := user.NewUserService(users, nil)

	// first admin account; registration cannot grant the admin role
	if email := os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"); email != "" {
		name := os.Getenv("AUTH_BOOTSTRAP_ADMIN_NAME")
		if name == "" {
			name = "admin"
		}
		password := os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD")
		if password == "" {
			rt.Logger.Fatal("AUTH_BOOTSTRAP_ADMIN_PASSWORD is required with AUTH_BOOTSTRAP_ADMIN_EMAIL")
		}
		u, created, err := svc.EnsureAdmin(ctx, name, email, password)
		if err != nil {
			rt.Logger.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			rt.Logger.Infow("bootstrap admin created", "user_id", u.ID, "email", u.Email)
		}
	}

	issuer := login.NewIssuer(svc, rt.Tokens, login.TTLFromEnv())
	handler := rt.Handler(
		login.NewHandler(issuer, rt.Logger).Routes,
		user.NewHandler(svc, rt.Auth, rt.Logger).Routes,
	)
	if err := rt.Run(ctx, handler); err != nil {
		rt.Logger.Errorf("http server failed: %v", err)
	}
}
