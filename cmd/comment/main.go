package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/comment"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/remote"
)

func main() {
	rt, err := app.Start("comment", ":8003")
	if err != nil {
		fmt.Fprintf(os.Stderr, "comment: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comments := repo.NewCommentRepo(rt.DB)
	if err := comments.EnsureTable(ctx); err != nil {
		rt.Logger.Fatalf("ensure comments table: %v", err)
	}
	tasks := remote.NewTaskAccessClient(remote.ConfigFromEnv("BOARD_SERVICE_URL", "http://localhost:8002"), rt.Logger)
	svc := comment.NewService(comments, tasks)

	if err := rt.Run(ctx, rt.Handler(comment.NewHandler(svc, rt.Auth, rt.Logger).Routes)); err != nil {
		rt.Logger.Errorf("http server failed: %v", err)
	}
}
