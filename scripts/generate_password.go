// Generates a bcrypt hash for provisioning an operator account by hand,
// e.g. when inserting an operators row outside the dev seed.
//
//	go run scripts/generate_password.go 'SomePassword1'
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: go run scripts/generate_password.go <password>")
	}
	password := os.Args[1]

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("failed to generate hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		log.Fatalf("hash verification failed: %v", err)
	}

	fmt.Println(string(hash))
}
