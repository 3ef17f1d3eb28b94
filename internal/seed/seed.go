package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"astramentor/internal/models"

	"gorm.io/gorm"
)

// seedPassword is the well-known password every seeded profile gets so
// developers can log in as any of them.
const seedPassword = "Seed1234!pass"

// Options configures the seeder.
type Options struct {
	NumTeachers int
	NumStudents int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads created_at timestamps over this many days back.
	MaxDays int
	// SkipBcrypt stores the plaintext seed password, for fast local runs.
	SkipBcrypt bool
	// DryRun builds entities without touching the database.
	DryRun bool
}

// draftShare is the fraction of seeded posts left in draft state.
const draftShare = 0.15

// computeStatusCounts splits total posts into published and draft counts.
// Drafts get the rounded-down share and published gets the remainder, so the
// two always sum to total.
func computeStatusCounts(total int, share float64) (published, drafts int) {
	if total <= 0 {
		return 0, 0
	}
	drafts = int(float64(total) * share)
	return total - drafts, drafts
}

// Seed populates the database with demo teachers, students, posts, comments
// and likes.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Seeding %d teachers, %d students and %d posts...", opts.NumTeachers, opts.NumStudents, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db, opts)

	teachers, err := createProfiles(factory, models.RoleTeacher, opts.NumTeachers)
	if err != nil {
		return fmt.Errorf("failed to create teachers: %w", err)
	}
	log.Printf("✓ %d teachers created", len(teachers))

	students, err := createProfiles(factory, models.RoleStudent, opts.NumStudents)
	if err != nil {
		return fmt.Errorf("failed to create students: %w", err)
	}
	log.Printf("✓ %d students created", len(students))

	posts, err := createPosts(factory, teachers, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	if err := createEngagement(db, factory, append(teachers, students...), posts); err != nil {
		return fmt.Errorf("failed to create comments and likes: %w", err)
	}

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE comments, likes, posts, profiles RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createProfiles(factory *Factory, role models.Role, count int) ([]*models.Profile, error) {
	profiles := make([]*models.Profile, 0, count)
	for i := 0; i < count; i++ {
		profile, err := factory.CreateProfile(role)
		if err != nil {
			log.Printf("Failed to create %s profile: %v", role, err)
			continue
		}
		profiles = append(profiles, profile)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d %ss...", i, role)
		}
	}
	return profiles, nil
}

func createPosts(factory *Factory, teachers []*models.Profile, count int) ([]*models.Post, error) {
	if len(teachers) == 0 || count == 0 {
		return nil, nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	published, drafts := computeStatusCounts(count, draftShare)

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		status := models.PostStatusPublished
		if i >= published && drafts > 0 {
			status = models.PostStatusDraft
		}
		author := teachers[r.Intn(len(teachers))]
		posts = append(posts, factory.BuildPost(author, status))
	}

	if err := factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// createEngagement sprinkles comments and likes over published posts and
// keeps each post's persisted comments_count in step with the rows written.
func createEngagement(db *gorm.DB, factory *Factory, profiles []*models.Profile, posts []*models.Post) error {
	if len(profiles) == 0 || len(posts) == 0 {
		return nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	totalComments := 0
	totalLikes := 0
	for _, post := range posts {
		if post.Status != models.PostStatusPublished {
			continue
		}

		numComments := r.Intn(6)
		for i := 0; i < numComments; i++ {
			author := profiles[r.Intn(len(profiles))]
			if _, err := factory.CreateComment(author, post); err != nil {
				return err
			}
			totalComments++
		}
		if numComments > 0 && !factory.opts.DryRun {
			if err := db.Model(&models.Post{}).Where("id = ?", post.ID).
				Update("comments_count", numComments).Error; err != nil {
				return err
			}
		}

		// likes must be unique per (profile, post) so sample without replacement
		numLikes := r.Intn(len(profiles)/2 + 1)
		for _, idx := range r.Perm(len(profiles))[:numLikes] {
			if err := factory.CreateLike(profiles[idx], post); err != nil {
				return err
			}
			totalLikes++
		}
	}

	log.Printf("✓ %d comments and %d likes created", totalComments, totalLikes)
	return nil
}
