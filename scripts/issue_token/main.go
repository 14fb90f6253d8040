package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

func main() {
	var (
		userID string
		email  string
		role   string
		expiry time.Duration
	)

	flag.StringVar(&userID, "user", "admin", "Subject recorded in the token")
	flag.StringVar(&email, "email", "admin@example.com", "Email claim")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "Role claim (ADMIN or VIEWER)")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.Auth.Expiration
	}

	userRole := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	if userRole != models.RoleAdmin && userRole != models.RoleViewer {
		log.Fatalf("unsupported role %q", role)
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.Auth.Secret, Expiry: expiry})
	token, expiresAt, err := tokens.Issue(userID, email, userRole)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(token)
	log.Printf("expires at %s", expiresAt.Format(time.RFC3339))
}
