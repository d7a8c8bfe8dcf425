// Command roster imports students from a gradebook CSV export.
//
//	roster path/to/grades.csv
package main

import (
	"context"
	"log"
	"os"

	"attendancewizard/internal/auth"
	"attendancewizard/internal/config"
	"attendancewizard/internal/identity"
	"attendancewizard/internal/roster"
	"attendancewizard/internal/store"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <gradebook.csv>", os.Args[0])
	}
	cfg := config.Load()
	ctx := context.Background()

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open roster: %v", err)
	}
	defer f.Close()

	parsed, err := roster.Parse(f)
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	svc := identity.NewService(db, auth.NewBcrypt(cfg.BcryptCost))
	res, err := svc.Import(ctx, parsed.Entries)
	if err != nil {
		log.Fatalf("import failed after %d added: %v", res.Added, err)
	}
	students, err := svc.List(ctx)
	if err != nil {
		log.Fatalf("count students: %v", err)
	}
	log.Printf("added %d, skipped %d existing, ignored %d rows; %d students on roster",
		res.Added, res.Skipped, parsed.Ignored, len(students))
}
