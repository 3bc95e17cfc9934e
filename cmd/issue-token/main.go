// Command issue-token mints a bearer token signed with the server's JWT
// secret. Operators use it to hand out moderator and admin access.
//
//	issue-token -user 1234 -name alice -role moderator
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/auth"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/config"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token subject")
	name := flag.String("name", "", "display name")
	role := flag.String("role", auth.RoleUser, "user, moderator or admin")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}
	switch *role {
	case auth.RoleUser, auth.RoleModerator, auth.RoleAdmin:
	default:
		logging.Fatal().Str("role", *role).Msg("Unknown role")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	jwt, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create token manager")
	}

	token, err := jwt.GenerateToken(*userID, *name, *role)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
