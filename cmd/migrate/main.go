package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fbms.app/internal/auth"
	"fbms.app/internal/config"
	"fbms.app/internal/migrate"
	"fbms.app/internal/store/pg"
)

const usage = "usage: migrate [-dsn DSN] [up|down|seed|status|bootstrap-admin -email E -password P]"

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", "", "PostgreSQL DSN (default: FBMS_DB_* environment)")
		email    = flag.String("email", "", "bootstrap-admin: account email")
		password = flag.String("password", os.Getenv("FBMS_BOOTSTRAP_PASSWORD"), "bootstrap-admin: account password")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal(usage)
	}

	conn := *dsn
	if conn == "" {
		var dbCfg config.DatabaseConfig
		if err := cleanenv.ReadEnv(&dbCfg); err != nil {
			log.Fatalf("read database env: %v", err)
		}
		conn = dbCfg.ConnString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", conn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr, err := migrate.NewManager(db)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []migrate.Status
		history, err = mgr.Status(ctx)
		for _, st := range history {
			state := "pending"
			if st.Applied {
				state = "applied " + st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%05d %-32s %s\n", st.Version, st.Name, state)
		}
	case "bootstrap-admin":
		err = bootstrapAdmin(ctx, pg.New(db), *email, *password)
	default:
		log.Fatalf("unknown command %q\n%s", flag.Arg(0), usage)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// bootstrapAdmin creates the first admin account. /register requires an
// admin token, so a fresh database needs one created out of band.
func bootstrapAdmin(ctx context.Context, store *pg.Store, email, password string) error {
	if email == "" || password == "" {
		return errors.New("-email and -password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	acc, err := store.CreateAccount(ctx, auth.NewAccount{
		Email:        email,
		PasswordHash: hash,
		Role:         "admin",
		Active:       true,
	})
	if errors.Is(err, auth.ErrConflict) {
		return fmt.Errorf("account %s already exists", email)
	}
	if err != nil {
		return err
	}
	fmt.Printf("admin account %d created for %s\n", acc.ID, acc.Email)
	return nil
}
