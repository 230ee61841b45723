package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/phenotree"
	"github.com/meikuraledutech/phenotree/llm"
	"github.com/meikuraledutech/phenotree/memory"
	"github.com/meikuraledutech/phenotree/postgres"
	"github.com/meikuraledutech/phenotree/session"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Slots go to postgres when DATABASE_URL is set, memory otherwise.
	var store phenotree.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool, "example")
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println("schema created")
		store = pg
	}

	backend := llm.NewService(llm.NewMockProvider(), llm.DefaultOptions(), llm.DefaultBreakerConfig(), zap.NewNop())
	canvas := session.CanvasFunc(func(g phenotree.Graph) {
		fmt.Printf("canvas: %d nodes, %d edges\n", len(g.Nodes), len(g.Edges))
	})

	sess, err := session.Open(ctx, session.Deps{Store: store, Backend: backend, Canvas: canvas})
	if err != nil {
		log.Fatalf("open: %v", err)
	}

	// ── Pick an example prompt and send it ────────────────────────────
	text, err := sess.SelectExample(2)
	if err != nil {
		log.Fatalf("example: %v", err)
	}
	fmt.Printf("\nuser: %s\n", text)

	turn, err := sess.Submit(ctx, sess.Draft())
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	fmt.Printf("assistant: %s\n", turn.Text)
	printJSON(turn.Graph)

	// ── Drag a node on the canvas ─────────────────────────────────────
	g := sess.Snapshot().Graph
	g.Nodes[1].Position = phenotree.Position{X: 500, Y: 120}
	sess.ApplyCanvasEdit(ctx, g)
	fmt.Println("\nnode n2 moved")

	// ── A conversational turn ─────────────────────────────────────────
	turn, err = sess.Submit(ctx, "What does this diagram show?")
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	fmt.Printf("\nassistant: %s\n", turn.Text)

	// ── Reload from the store ─────────────────────────────────────────
	again, err := session.Open(ctx, session.Deps{Store: store, Backend: backend})
	if err != nil {
		log.Fatalf("reopen: %v", err)
	}
	st := again.Snapshot()
	fmt.Printf("\nrestored %d turns, %d nodes, panel at %v\n", len(st.History), len(st.Graph.Nodes), st.Panel.Position)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := again.Reset(ctx, true); err != nil {
		log.Fatalf("reset: %v", err)
	}
	fmt.Println("\nsession reset")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
