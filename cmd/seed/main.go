// Command seed creates the IT department and one account per role. Running
// it twice leaves existing accounts untouched.
package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"

	"temanagement/api/internal/config"
	"temanagement/api/internal/database"
	"temanagement/api/internal/log"
	"temanagement/api/internal/models"
	"temanagement/api/internal/repository"
	"temanagement/api/internal/security"
)

type seedAccount struct {
	email     string
	password  string
	role      models.UserRole
	firstName string
	lastName  string
}

var accounts = []seedAccount{
	{"admin@temanagement.com", "Admin@123", models.UserRoleAdmin, "System", "Admin"},
	{"manager@temanagement.com", "Manager@123", models.UserRoleManager, "Team", "Manager"},
	{"employee@temanagement.com", "Employee@123", models.UserRoleEmployee, "Regular", "Employee"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "seed").Logger()
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	users := repository.NewUserRepository(pool)
	profiles := repository.NewProfileRepository(pool)
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	deptID, err := profiles.EnsureDepartment(ctx, "IT Department", "Information Technology Department")
	if err != nil {
		logger.Fatal().Err(err).Msg("ensure department failed")
	}

	for _, acc := range accounts {
		digest, err := hasher.Hash(acc.password)
		if err != nil {
			logger.Fatal().Err(err).Str("email", acc.email).Msg("hash password failed")
		}

		id, err := users.Create(ctx, models.User{
			Email:         acc.email,
			PasswordHash:  digest,
			Role:          acc.role,
			AccountStatus: models.AccountStatusActive,
		})
		if errors.Is(err, repository.ErrUserExists) {
			logger.Info().Str("email", acc.email).Msg("account exists, skipped")
			continue
		}
		if err != nil {
			logger.Fatal().Err(err).Str("email", acc.email).Msg("create user failed")
		}

		err = profiles.Create(ctx, models.Profile{
			UserID:    id,
			FirstName: acc.firstName,
			LastName:  acc.lastName,
		}, deptID)
		if err != nil {
			logger.Fatal().Err(err).Str("email", acc.email).Msg("create profile failed")
		}
		logger.Info().Str("email", acc.email).Str("role", string(acc.role)).Msg("account seeded")
	}
}
