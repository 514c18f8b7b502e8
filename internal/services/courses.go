package services

import (
	"database/sql"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func ListPublishedCourses(db *sqlx.DB) ([]models.Course, error) {
	courses := []models.Course{}
	err := db.Select(&courses, `
SELECT * FROM courses
WHERE is_published
ORDER BY created_at DESC
`)
	return courses, err
}

// ResolveCourseID maps a course key to its id. The key may be the id
// itself, the slug, or a case-insensitive course title (legacy deep links
// still use titles with dashes for spaces).
func ResolveCourseID(db *sqlx.DB, courseKey string) (string, error) {
	key := strings.TrimSpace(courseKey)
	if key == "" {
		return "", ErrBadRequest("Course identifier is required")
	}
	if uuidPattern.MatchString(strings.ToLower(key)) {
		var id string
		err := db.Get(&id, `SELECT id FROM courses WHERE id = $1`, key)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound("Course not found")
		}
		return id, err
	}
	if decoded, err := url.PathUnescape(key); err == nil {
		key = strings.TrimSpace(decoded)
	}
	var id string
	err := db.Get(&id, `SELECT id FROM courses WHERE slug = $1`, strings.ToLower(key))
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	normalized := strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(key)), " ")
	err = db.Get(&id, `SELECT id FROM courses WHERE lower(title) = lower($1) LIMIT 1`, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound("Course not found")
	}
	return id, err
}

func GetCourse(db *sqlx.DB, courseID string) (models.Course, error) {
	course := models.Course{}
	err := db.Get(&course, `SELECT * FROM courses WHERE id = $1`, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return course, ErrNotFound("Course not found")
	}
	return course, err
}
