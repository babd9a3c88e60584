// Command main runs the database seeder for linkshelf.
package main

import (
	"context"
	"flag"
	"log"

	"linkshelf/internal/bootstrap"
	"linkshelf/internal/config"
	"linkshelf/internal/seed"
)

func main() {
	counts := seed.DefaultCounts
	flag.IntVar(&counts.Users, "users", counts.Users, "Number of users to create")
	flag.IntVar(&counts.BookmarksPerUser, "bookmarks", counts.BookmarksPerUser, "Bookmarks per user (free users stop at their quota)")
	flag.IntVar(&counts.FavoritesPerUser, "favorites", counts.FavoritesPerUser, "Favorites each user hands out")
	flag.IntVar(&counts.CommentsPerPublic, "comments", counts.CommentsPerPublic, "Comments per public bookmark")
	flag.IntVar(&counts.PremiumEvery, "premium-every", counts.PremiumEvery, "Make every n-th user premium (0 disables)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", true, "Use the minimum bcrypt cost for seeded passwords")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{SkipBcrypt: *fast})
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
		log.Println("ℹ️  The development root admin is recreated on the next server start")
	}

	report, err := s.Run(ctx, counts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d bookmarks, %d favorites, %d comments.",
		report.Users, report.Bookmarks, report.Favorites, report.Comments)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
