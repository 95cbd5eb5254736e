// Command seed-warden creates the first warden account. Wardens provision
// every other staff account through the API, so one has to exist up front.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/repository"
	"github.com/noah-isme/hostel-out-api/pkg/config"
	"github.com/noah-isme/hostel-out-api/pkg/database"
)

func main() {
	var (
		email    string
		name     string
		phone    string
		password string
	)
	flag.StringVar(&email, "email", "warden@hostel.local", "warden login email")
	flag.StringVar(&name, "name", "Chief Warden", "full name")
	flag.StringVar(&phone, "phone", "0000000000", "contact phone")
	flag.StringVar(&password, "password", os.Getenv("SEED_WARDEN_PASSWORD"), "initial password (defaults to SEED_WARDEN_PASSWORD)")
	flag.Parse()

	if len(password) < 6 {
		log.Fatal("password must be at least 6 characters; pass -password or set SEED_WARDEN_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := users.FindByEmail(ctx, email); err == nil {
		fmt.Println("warden already exists:", email)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("failed to query users: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	warden := &models.User{
		Email:        email,
		PasswordHash: string(hashed),
		FullName:     name,
		Role:         models.RoleWarden,
		Phone:        phone,
		Active:       true,
	}
	if err := users.Create(ctx, warden); err != nil {
		log.Fatalf("failed to insert warden: %v", err)
	}

	count, err := users.CountByRole(ctx, models.RoleWarden)
	if err != nil {
		log.Fatalf("failed to count wardens: %v", err)
	}
	fmt.Printf("warden %s created (id %s, %d warden account(s) total)\n", email, warden.ID, count)
}
