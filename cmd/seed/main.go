// Command main seeds a Quotewall database with demo projects.
package main

import (
	"context"
	"flag"
	"log"

	"quotewall/internal/bootstrap"
	"quotewall/internal/config"
	"quotewall/internal/seed"
)

func main() {
	presetPath := flag.String("preset", "", "YAML preset file; the built-in demo preset is used when empty")
	random := flag.Int("projects", 0, "Create this many random projects instead of a preset")
	testimonials := flag.Int("testimonials", 12, "Testimonials per random project")
	tokens := flag.Int("tokens", 3, "Open collection tokens per random project")
	owner := flag.String("owner", "member_demo", "Member id that owns random projects")
	shouldClean := flag.Bool("clean", false, "Delete all existing projects before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{PublicBaseURL: cfg.AppURL})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *random > 0 {
		log.Printf("Seeding %d random projects for %s", *random, *owner)
		err = s.Seed(ctx, *owner, seed.Counts{Projects: *random, Testimonials: *testimonials, Tokens: *tokens})
	} else {
		preset := seed.DemoPreset
		if *presetPath != "" {
			if preset, err = seed.LoadPreset(*presetPath); err != nil {
				log.Fatalf("Failed to load preset: %v", err)
			}
		}
		log.Printf("Applying preset %q (%d projects)", preset.Name, len(preset.Projects))
		err = s.ApplyPreset(ctx, preset)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
