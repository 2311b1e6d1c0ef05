package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"timedock.com/timedock/auth"
)

// Prints the authorization URL for a company so a connection can be
// started without the web frontend.
func main() {
	godotenv.Load()

	companyID := flag.String("company", "", "company id to connect")
	userID := flag.String("user", "", "user id initiating the connection")
	flag.Parse()

	if *companyID == "" {
		log.Fatal("-company is required")
	}

	manager := auth.NewManager(auth.Config{
		ClientID:     os.Getenv("QUICKBOOKS_CLIENT_ID"),
		ClientSecret: os.Getenv("QUICKBOOKS_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("QUICKBOOKS_REDIRECT_URI"),
		Environment:  os.Getenv("QUICKBOOKS_ENVIRONMENT"),
	}, auth.NewMemoryStore(), nil)

	url, err := manager.AuthorizationURL(*companyID, *userID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(url)
}
