package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"timedock.com/timedock/security"
)

func main() {
	godotenv.Load()

	companyID := flag.String("company", "", "company id the token is scoped to")
	userName := flag.String("user", "device", "user name for the token")
	expires := flag.Int64("expires", 3600, "token lifetime in seconds")
	flag.Parse()

	if *companyID == "" {
		log.Fatal("-company is required")
	}

	token, err := security.CreateIdentityToken(&security.TimedockIdentity{
		UserName:  *userName,
		CompanyID: *companyID,
	}, os.Getenv("JWT_SECRET"), *expires)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
