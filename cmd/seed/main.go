package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/auth"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/config"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func main() {
	// CLI flags
	branchName := flag.String("branch", "", "Branch name")
	promptpayID := flag.String("promptpay", "", "Branch PromptPay mobile number, national ID or e-wallet ID")
	orderTotal := flag.String("order-total", "120.00", "Total of the sample order")
	flag.Parse()

	// Fall back to environment variables
	if *branchName == "" {
		*branchName = os.Getenv("SEED_BRANCH")
	}
	if *promptpayID == "" {
		*promptpayID = os.Getenv("SEED_PROMPTPAY")
	}

	// Fall back to defaults
	if *branchName == "" {
		*branchName = "Main Branch"
	}
	if *promptpayID == "" {
		*promptpayID = "0812345678"
		log.Println("WARNING: Using sample PromptPay number 0812345678. Set the real account before accepting payments!")
	}

	// Reject accounts no scanner could pay into before touching the database.
	if _, err := promptpay.Classify(*promptpayID, promptpay.DefaultMobilePolicy); err != nil {
		log.Fatalf("Invalid PromptPay ID %q: %v", *promptpayID, err)
	}
	total, err := promptpay.ParseAmount(*orderTotal)
	if err != nil {
		log.Fatalf("Invalid order total: %v", err)
	}

	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction (atomicity: both branch + order or neither)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	branchID, err := seedBranch(ctx, tx, *branchName, *promptpayID)
	if err != nil {
		log.Fatalf("Failed to seed branch: %v", err)
	}

	order, err := database.New(tx).CreateOrder(ctx, database.CreateOrderParams{
		BranchID:    branchID,
		OrderNumber: fmt.Sprintf("LD-%d", time.Now().Unix()),
		TotalAmount: decimalToNumeric(total),
	})
	if err != nil {
		log.Fatalf("Failed to seed order: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, uuid.New(), branchID, enum.UserRoleAdmin, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Branch ID: %s", branchID)
	log.Printf("Order ID: %s (%s)", order.ID, order.OrderNumber)
	log.Printf("Admin token (24h): %s", token)
}

// seedBranch creates the branch if it doesn't exist.
func seedBranch(ctx context.Context, tx pgx.Tx, name, promptpayID string) (uuid.UUID, error) {
	// Check if branch already exists
	var existingID uuid.UUID
	checkSQL := `SELECT id FROM branches WHERE name = $1 LIMIT 1`
	err := tx.QueryRow(ctx, checkSQL, name).Scan(&existingID)
	if err == nil {
		log.Printf("Branch '%s' already exists (ID: %s), skipping", name, existingID)
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check branch: %w", err)
	}

	branch, err := database.New(tx).CreateBranch(ctx, database.CreateBranchParams{
		Name:        name,
		PromptpayID: pgtype.Text{String: promptpayID, Valid: true},
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert branch: %w", err)
	}

	log.Printf("Created branch '%s' (ID: %s)", name, branch.ID)
	return branch.ID, nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
