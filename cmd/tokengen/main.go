// Command tokengen prints a bearer token for the users API, signed with the
// configured AUTH_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	scopes := flag.String("scopes", "users:read,users:write", "comma separated scopes")
	ttl := flag.Int("ttl", 0, "lifetime in minutes (defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	flag.Parse()

	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is empty")
	}
	minutes := cfg.Auth.AccessTokenTTLMinutes
	if *ttl > 0 {
		minutes = *ttl
	}

	var granted []auth.Scope
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, auth.Scope(s))
		}
	}

	token, exp, err := auth.NewTokenManager(cfg.Auth.JWTSecret, minutes).GenerateToken(*subject, granted...)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format("2006-01-02T15:04:05Z07:00"))
}
