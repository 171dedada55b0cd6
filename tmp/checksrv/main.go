package main

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/sjournalfx-cmyk/teamhub/internal/app"
	"github.com/sjournalfx-cmyk/teamhub/internal/copilot"
	"github.com/sjournalfx-cmyk/teamhub/internal/server"
	teamhubsdk "github.com/sjournalfx-cmyk/teamhub/sdk/go"
)

func main() {
	ctx := context.Background()
	ws, err := app.Open(ctx, "/tmp/teamhub-check1")
	if err != nil {
		panic(err)
	}
	defer ws.Close()
	rec := copilot.NewReconciler(ws.Store, copilot.NewFromConfig(ws.Config))
	h, err := server.New(server.Config{
		Store:      ws.Store,
		Reconciler: rec,
		Workspace:  "teamhub",
		BasePath:   "/v0",
		Auth:       server.AuthConfig{JWTSecret: "test-secret"},
	})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	client := teamhubsdk.New(ts.URL)
	session, err := client.Login(ctx, "u1", "admin")
	if err != nil {
		panic(err)
	}
	fmt.Printf("session user=%s role=%s\n", session.UserID, session.Role)

	task, err := client.CreateTask(ctx, "Smoke check directive", "High", "Wed", "u2")
	if err != nil {
		panic(err)
	}
	fmt.Printf("created task=%s status=%s\n", task.ID, task.Status)

	warnings, err := client.Friction(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("friction warnings=%d\n", len(warnings))

	events, err := client.Activity(ctx)
	if err != nil {
		panic(err)
	}
	for _, ev := range events {
		fmt.Printf("%s %s %s\n", ev.UserName, ev.Action, ev.TargetName)
	}
}
