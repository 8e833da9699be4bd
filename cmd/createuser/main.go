// Command createuser creates an account, or promotes an existing one, without going through HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Skotchmaster/community_shop/internal/config"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/pkg/db"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

func main() {
	var in service.RegisterInput
	role := flag.String("role", models.RoleUser, "user or admin")
	flag.StringVar(&in.Username, "username", "", "login name")
	flag.StringVar(&in.Email, "email", "", "email address")
	flag.StringVar(&in.Password, "password", "", "password, at least 6 characters")
	flag.StringVar(&in.FirstName, "first", "", "first name")
	flag.StringVar(&in.LastName, "last", "", "last name")
	flag.Parse()

	if err := run(in, *role); err != nil {
		fmt.Fprintln(os.Stderr, "createuser:", err)
		os.Exit(1)
	}
}

func run(in service.RegisterInput, role string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	ctx := logging.IntoContext(context.Background(), log)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := repo.Migrate(gdb); err != nil {
		return err
	}

	svc := &service.AuthService{
		Repo:          repo.New(gdb),
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	u, created, err := svc.EnsureUser(ctx, in, role)
	if err != nil {
		return err
	}

	if created {
		log.Info("user_created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	} else {
		log.Info("user_updated", "user_id", u.ID, "username", u.Username, "role", u.Role)
	}
	return nil
}
