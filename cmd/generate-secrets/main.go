package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"github.com/maikekai/surf-house-backend/internal/services"
)

// Generates the secrets the server needs at deploy time: the JWT signing
// secret, the sweep secret, and optionally a bcrypt hash for seeding a
// staff account.
func main() {
	password := flag.String("admin-password", "", "also print a bcrypt hash for this staff password")
	flag.Parse()

	jwtSecret, err := randomSecret(48)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}
	sweepSecret, err := randomSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate sweep secret: %v", err)
	}

	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("SWEEPER_SHARED_SECRET=%s\n", sweepSecret)

	if *password != "" {
		hash, err := services.HashPassword(*password)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println()
		fmt.Printf("-- staff account seed, store in users.password_hash\n%s\n", hash)
	}
}

func randomSecret(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
