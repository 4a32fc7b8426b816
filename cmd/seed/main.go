// Command seed loads demo data and prints ready-to-use tokens for the three
// roles, for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"restaurant-loyalty/internal/config"
	"restaurant-loyalty/internal/domain/model"
	"restaurant-loyalty/internal/domain/ports/repository"
	pg "restaurant-loyalty/internal/infra/db/postgres"
	"restaurant-loyalty/internal/infra/web"

	"github.com/google/uuid"
)

func intp(v int) *int { return &v }

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	restaurantID := "resto-demo"
	customerID := "customer-demo"

	items := pg.NewRewardItemRepo(pool)
	seedItems := []struct {
		category    model.RewardCategory
		description string
		points      int
		stock       *int
	}{
		{model.RewardCategoryDrink, "Free espresso", 50, nil},
		{model.RewardCategoryFood, "House burger", 200, intp(25)},
		{model.RewardCategoryDiscount, "10% off the bill", 100, nil},
		{model.RewardCategoryExperience, "Chef's table for two", 1500, intp(2)},
	}
	for _, s := range seedItems {
		item, err := model.NewRewardItem(uuid.NewString(), restaurantID, s.category, s.description, s.points, s.stock)
		if err != nil {
			log.Fatalf("seed item: %v", err)
		}
		if err := items.Save(ctx, repository.NoTX, item); err != nil {
			log.Fatalf("seed item: %v", err)
		}
	}

	balances := pg.NewBalanceRepo(pool)
	if _, err := balances.Adjust(ctx, repository.NoTX, restaurantID, customerID, 500); err != nil {
		log.Fatalf("seed balance: %v", err)
	}

	auth := web.NewAuthManager(cfg.Admin.JWTSecret, 24*time.Hour)
	for _, p := range []struct {
		role, restaurant, customer string
	}{
		{web.RoleAdmin, restaurantID, ""},
		{web.RoleStaff, restaurantID, ""},
		{web.RoleCustomer, restaurantID, customerID},
	} {
		token, err := auth.Mint(p.role, p.restaurant, p.customer)
		if err != nil {
			log.Fatalf("mint: %v", err)
		}
		fmt.Printf("%s token: %s\n", p.role, token)
	}
	log.Println("seed complete")
}
