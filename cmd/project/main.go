package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/project"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/project/repo"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/remote"
)

func main() {
	rt, err := app.Start("project", ":8001")
	if err != nil {
		fmt.Fprintf(os.Stderr, "project: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	projects := repo.NewProjectRepo(rt.DB)
	if err := projects.EnsureTable(ctx); err != nil {
		rt.Logger.Fatalf("ensure project tables: %v", err)
	}
	users := remote.NewUserDirectory(remote.ConfigFromEnv("AUTH_SERVICE_URL", "http://localhost:8000"), rt.Logger)
	svc := project.NewService(projects, users)

	if err := rt.Run(ctx, rt.Handler(project.NewHandler(svc, rt.Auth, rt.Logger).Routes)); err != nil {
		rt.Logger.Errorf("http server failed: %v", err)
	}
}
