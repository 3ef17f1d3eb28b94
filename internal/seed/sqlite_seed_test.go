package seed

import (
	"testing"

	"astramentor/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(&models.Profile{}, &models.Post{}, &models.Comment{}, &models.Like{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSeed_PopulatesAllTables(t *testing.T) {
	t.Parallel()

	db := openSeedDB(t)

	err := Seed(db, Options{
		NumTeachers: 3,
		NumStudents: 5,
		NumPosts:    20,
		SkipBcrypt:  true,
		MaxDays:     30,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var teacherCount int64
	if err := db.Model(&models.Profile{}).Where("role = ?", models.RoleTeacher).Count(&teacherCount).Error; err != nil {
		t.Fatalf("count teachers: %v", err)
	}
	if teacherCount != 3 {
		t.Fatalf("expected 3 teachers, got %d", teacherCount)
	}

	var studentCount int64
	if err := db.Model(&models.Profile{}).Where("role = ?", models.RoleStudent).Count(&studentCount).Error; err != nil {
		t.Fatalf("count students: %v", err)
	}
	if studentCount != 5 {
		t.Fatalf("expected 5 students, got %d", studentCount)
	}

	var postCount int64
	if err := db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if postCount != 20 {
		t.Fatalf("expected 20 posts, got %d", postCount)
	}

	// posts must only be authored by teachers
	var crossCount int64
	err = db.Model(&models.Post{}).
		Joins("JOIN profiles ON profiles.id = posts.author_id").
		Where("profiles.role != ?", models.RoleTeacher).
		Count(&crossCount).Error
	if err != nil {
		t.Fatalf("count cross posts: %v", err)
	}
	if crossCount != 0 {
		t.Fatalf("expected no student-authored posts, got %d", crossCount)
	}

	var draftCount int64
	if err := db.Model(&models.Post{}).Where("status = ?", models.PostStatusDraft).Count(&draftCount).Error; err != nil {
		t.Fatalf("count drafts: %v", err)
	}
	if draftCount == 0 {
		t.Fatal("expected some draft posts")
	}
}

func TestSeed_CommentsOnlyOnPublishedPosts(t *testing.T) {
	t.Parallel()

	db := openSeedDB(t)

	err := Seed(db, Options{
		NumTeachers: 2,
		NumStudents: 4,
		NumPosts:    30,
		SkipBcrypt:  true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var onDrafts int64
	err = db.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.status = ?", models.PostStatusDraft).
		Count(&onDrafts).Error
	if err != nil {
		t.Fatalf("count comments on drafts: %v", err)
	}
	if onDrafts != 0 {
		t.Fatalf("expected no comments on drafts, got %d", onDrafts)
	}

	// comments_count on each post must match the comment rows written
	var mismatch int64
	err = db.Model(&models.Post{}).
		Where("comments_count != (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL)").
		Count(&mismatch).Error
	if err != nil {
		t.Fatalf("count mismatched posts: %v", err)
	}
	if mismatch != 0 {
		t.Fatalf("expected comments_count to match comment rows, got %d mismatches", mismatch)
	}
}
