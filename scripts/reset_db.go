// Сброс схемы БД и применение миграций из migrations/.
// Запуск: DATABASE_URL=postgres://... go run scripts/reset_db.go [-seed <user_uuid>]

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func main() {
	migrationsDir := flag.String("migrations", "migrations", "directory with *.sql migrations")
	seedUser := flag.String("seed", "", "insert demo data for this user id")
	flag.Parse()

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	fmt.Println("Connecting to database...")
	fmt.Printf("Host: %s\n", extractHost(connStr))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	fmt.Println("Connected successfully!")

	drops := []string{
		"DROP TABLE IF EXISTS user_criteria_preferences CASCADE",
		"DROP TABLE IF EXISTS user_profiles CASCADE",
		"DROP TABLE IF EXISTS reference_addresses CASCADE",
		"DROP TABLE IF EXISTS properties CASCADE",
	}
	for _, stmt := range drops {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			log.Fatalf("Failed: %s: %v", stmt, err)
		}
	}
	fmt.Println("Tables dropped")

	files, err := filepath.Glob(filepath.Join(*migrationsDir, "*.sql"))
	if err != nil {
		log.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatalf("No migrations found in %s", *migrationsDir)
	}

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", file, err)
		}
		if _, err := conn.Exec(ctx, string(sql)); err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
		fmt.Printf("  Applied %s\n", filepath.Base(file))
	}

	if *seedUser != "" {
		userID, err := uuid.Parse(*seedUser)
		if err != nil {
			log.Fatalf("Invalid seed user id: %v", err)
		}
		seed(ctx, conn, userID)
	}

	fmt.Println("\n=== VERIFICATION ===")
	for _, table := range []string{"properties", "reference_addresses", "user_criteria_preferences", "user_profiles"} {
		var count int
		if err := conn.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
			log.Printf("Warning counting %s: %v", table, err)
			continue
		}
		fmt.Printf("%-26s %d\n", table+":", count)
	}

	fmt.Println("\n=== DATABASE RESET COMPLETE ===")
}

func seed(ctx context.Context, conn *pgx.Conn, userID uuid.UUID) {
	fmt.Println("Inserting demo data...")

	_, err := conn.Exec(ctx, `
		INSERT INTO user_profiles (user_id, profile_type, onboarding_completed, subscription_active)
		VALUES ($1, 'young_professional', TRUE, FALSE)
	`, userID)
	if err != nil {
		log.Printf("Warning inserting profile: %v", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO reference_addresses (user_id, label, address)
		VALUES ($1, 'work', 'Avenida Paulista, 1578, São Paulo')
	`, userID)
	if err != nil {
		log.Printf("Warning inserting addresses: %v", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO properties (owner_user_id, title, address, bedrooms, bathrooms, area, rent, condo_fee, scores, final_score)
		VALUES
			($1, 'Studio near Paulista', 'Rua Augusta, 1200, São Paulo', 1, 1, 32, 2400, 450, '{"location": 9, "price": 6}', 0),
			($1, 'Two bedrooms in Pinheiros', 'Rua dos Pinheiros, 800, São Paulo', 2, 1, 64, 3800, 700, '{"location": 7, "price": 5}', 0),
			($1, 'House in Vila Mariana', 'Rua Domingos de Morais, 2000, São Paulo', 3, 2, 120, 5200, 0, '{"location": 6, "price": 4}', 0)
	`, userID)
	if err != nil {
		log.Printf("Warning inserting properties: %v", err)
	} else {
		fmt.Println("  Properties inserted OK (final scores are recomputed on the next criteria save)")
	}
}

func extractHost(connStr string) string {
	parts := strings.Split(connStr, "@")
	if len(parts) > 1 {
		hostPart := strings.Split(parts[1], "/")[0]
		return hostPart
	}
	return "unknown"
}
