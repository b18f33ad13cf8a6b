package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/board/repo"
	"github.com/ovaphlow/pitchfork/service-kanban-go/internal/remote"
)

func main() {
	rt, err := app.Start("board", ":8002")
	if err != nil {
		fmt.Fprintf(os.Stderr, "board: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boards := repo.NewBoardRepo(rt.DB)
	if err := boards.EnsureTable(ctx); err != nil {
		rt.Logger.Fatalf("ensure board tables: %v", err)
	}
	members := remote.NewMembershipClient(remote.ConfigFromEnv("PROJECT_SERVICE_URL", "http://localhost:8001"), rt.Logger)
	svc := board.NewService(boards, board.NewAuthorizer(members, rt.Logger))

	if err := rt.Run(ctx, rt.Handler(board.NewHandler(svc, rt.Auth, rt.Logger).Routes)); err != nil {
		rt.Logger.Errorf("http server failed: %v", err)
	}
}
