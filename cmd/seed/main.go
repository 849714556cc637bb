// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"membership-marketplace/internal/config"
	"membership-marketplace/internal/domain/model"
	pg "membership-marketplace/internal/infra/db/postgres"
)

// Applies the schema and seeds sample plans and providers for local testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	planRepo := pg.NewPlanRepo(pool)

	// If plans already exist, do nothing.
	plans, err := planRepo.ListAll(ctx, nil)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		return
	}

	seed := []struct {
		Name  string
		Price int64
	}{
		{"Silver", 5_000},
		{"Gold", 10_000},
		{"Platinum", 20_000},
	}
	now := time.Now().UTC()
	for _, s := range seed {
		p := &model.MembershipPlan{
			ID:         uuid.NewString(),
			Name:       s.Name,
			PriceCents: s.Price,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := planRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded plan: %s (id=%s, price=%d)\n", p.Name, p.ID, p.PriceCents)
	}

	providers := []struct {
		Name     string
		Discount int
	}{
		{"X-cite", 15},
		{"Taw9eel", 10},
	}
	for _, pr := range providers {
		id := uuid.NewString()
		_, err := pool.Exec(ctx,
			`INSERT INTO providers (id, name, logo_url, voucher_discount_percent, active) VALUES ($1,$2,'',$3,true);`,
			id, pr.Name, pr.Discount)
		if err != nil {
			log.Fatalf("seed provider %q: %v", pr.Name, err)
		}
		fmt.Printf("seeded provider: %s (id=%s, discount=%d%%)\n", pr.Name, id, pr.Discount)
	}

	fmt.Println("seeding complete")
}
