// Command token mints an access token for local testing of the API.
//
//	go run ./cmd/token -user 1 -role ADMIN -ttl 8h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/tournament-checkin/internal/model"
	"github.com/iliyamo/tournament-checkin/internal/utils"
)

func main() {
	_ = godotenv.Load()

	user := flag.Uint64("user", 1, "user id (sub claim)")
	role := flag.String("role", model.RoleAdministrator, "role claim")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("missing required env var: JWT_SECRET")
	}
	tok, err := utils.NewAccessToken(secret, model.Requester{UserID: *user, Role: *role}, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
}
