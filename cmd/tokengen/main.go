// Package main mints test bearer tokens shaped like the storefront backend's.
// The agent never verifies signatures; it only reads the exp claim to arm
// the session expiry timer, so these tokens are for local development only.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	devSigningKey   = "storefront-dev-signing-key"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims"`
}

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

func main() {
	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	sessionUser := sessionCmd.String("user-id", "1", "Backend user id")
	sessionRole := sessionCmd.String("role", "customer", "Role code")
	sessionTTL := sessionCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	sessionJSON := sessionCmd.Bool("json", false, "Output as JSON")

	expiredCmd := flag.NewFlagSet("expired", flag.ExitOnError)
	expiredUser := expiredCmd.String("user-id", "1", "Backend user id")
	expiredAgo := expiredCmd.Duration("ago", time.Minute, "How long ago the token expired")
	expiredJSON := expiredCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "session":
		_ = sessionCmd.Parse(os.Args[2:])
		emit(*sessionUser, *sessionRole, time.Now().Add(*sessionTTL), *sessionJSON)
	case "expired":
		_ = expiredCmd.Parse(os.Args[2:])
		emit(*expiredUser, "customer", time.Now().Add(-*expiredAgo), *expiredJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test bearer tokens for the storefront agent

WARNING: Tokens are signed with a dev key. The real backend will reject them.

Usage:
  tokengen <command> [flags]

Commands:
  session   Mint a token that expires after -ttl
  expired   Mint a token that already expired

Examples:
  # Token for user 42 that expires in an hour
  tokengen session -user-id 42 -ttl 1h

  # Token the agent should refuse at login
  tokengen expired -ago 5m

  # Output as JSON
  tokengen session -json`)
}

func emit(userID, role string, exp time.Time, jsonOutput bool) {
	exp = exp.Truncate(time.Second)
	token, err := mint(userID, role, exp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresAt: exp,
			Claims:    map[string]any{"sub": userID, "role": role, "exp": exp.Unix()},
		})
		return
	}
	fmt.Println("Bearer Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("User ID:    %s\n", userID)
	fmt.Printf("Role:       %s\n", role)
	fmt.Printf("Expires At: %s\n", exp.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
}

func mint(userID, role string, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	})
	return token.SignedString([]byte(devSigningKey))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
