// cmd/devtoken/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/your-org/battery-checkout/internal/config"
	"github.com/your-org/battery-checkout/internal/pkg/auth"
)

// Mints an access token signed with the configured JWT secret so the
// checkout API can be exercised locally without the identity service.
func main() {
	userID := flag.Uint("user", 1, "user id to embed in the token")
	email := flag.String("email", "dev@example.com", "email to embed in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens in production")
	}

	manager := auth.NewJWTManager(cfg.JWT)
	token, err := manager.GenerateAccessToken(*userID, *email, *ttl)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	if _, err := manager.ValidateAccessToken(token); err != nil {
		log.Fatal("Token verification failed:", err)
	}

	fmt.Printf("User: %d\n", *userID)
	fmt.Printf("Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Printf("Authorization: Bearer %s\n", token)
}
