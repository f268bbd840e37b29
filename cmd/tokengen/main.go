// Command tokengen issues RS256 tokens for local testing of the reservation API.
package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/jwt"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const issuer = "egov-portal-auth"

type options struct {
	subject    string
	username   string
	admin      bool
	roles      []string
	ttl        time.Duration
	privateKey string
	out        string
}

func main() {
	var opts options
	pflag.StringVar(&opts.subject, "sub", "", "user id placed in the sub claim")
	pflag.StringVar(&opts.username, "username", "", "optional username claim")
	pflag.BoolVar(&opts.admin, "admin", false, "add "+models.RoleAdmin+" to roles")
	pflag.StringSliceVar(&opts.roles, "role", []string{"ROLE_USER"}, "roles claim, repeatable")
	pflag.DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	pflag.StringVar(&opts.privateKey, "key", "private_key", "PEM encoded RSA private key")
	pflag.StringVar(&opts.out, "out", "token.jwt", "output file")
	pflag.Parse()

	if opts.subject == "" {
		fmt.Fprintln(os.Stderr, "--sub is required")
		os.Exit(2)
	}

	key, err := readPrivateKey(opts.privateKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := issue(key, opts, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := os.WriteFile(opts.out, []byte(token), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write token to %s: %v\n", opts.out, err)
		os.Exit(1)
	}

	absPath, _ := filepath.Abs(opts.out)
	fmt.Printf("token written to %s\n", absPath)
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}

	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM private key from %s", path)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key in %s is not RSA", path)
		}
		return key, nil
	}
	return nil, fmt.Errorf("unsupported PEM block %q in %s", block.Type, path)
}

func issue(key *rsa.PrivateKey, opts options, now time.Time) (string, error) {
	roles := opts.roles
	if opts.admin {
		roles = append(roles, models.RoleAdmin)
	}

	claims := jwt.CustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   opts.subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(opts.ttl)),
		},
		Username: opts.username,
		Roles:    roles,
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
