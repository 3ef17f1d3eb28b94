// Command main runs the database seeder for AstraMentor.
package main

import (
	"flag"
	"log"

	"astramentor/internal/config"
	"astramentor/internal/database"
	"astramentor/internal/seed"
)

func main() {
	numTeachers := flag.Int("teachers", 10, "Number of teacher profiles to create")
	numStudents := flag.Int("students", 50, "Number of student profiles to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip bcrypt hashing for faster local runs")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d teachers, %d students, %d posts, clean=%v\n",
		*numTeachers, *numStudents, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = seed.Seed(db, seed.Options{
		NumTeachers: *numTeachers,
		NumStudents: *numStudents,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		SkipBcrypt:  *skipBcrypt,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All seeded profiles share the password: Seed1234!pass")
}
