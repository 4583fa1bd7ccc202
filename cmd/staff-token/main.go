package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/restaurant-seating/internal/utils"
)

// staff-token prints a signed access token for local testing of the staff
// and admin routes.  Production tokens come from the staff login service.
func main() {
	_ = godotenv.Load()
	id := flag.Uint64("user", 1, "staff user id (sub claim)")
	role := flag.String("role", "staff", "staff, admin or super_admin")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *id, *role, *ttl)
	if err != nil {
		log.Fatalf("staff-token: %v", err)
	}
	fmt.Println(tok.Token)
}
