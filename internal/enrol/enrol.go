package enrol

import (
	"context"
	"errors"

	"github.com/learnstack/coursewallet/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCourseNotFound indicates the target course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// Service creates enrolments. Enrolment is idempotent: the (user, course)
// unique index makes a repeated trigger a no-op.
type Service struct {
	db *gorm.DB
}

// NewService constructs an enrolment Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Course returns the course record for an ID.
func (s *Service) Course(ctx context.Context, courseID uint64) (*models.Course, error) {
	var course models.Course
	if errFind := s.db.WithContext(ctx).First(&course, courseID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, errFind
	}
	return &course, nil
}

// Enrol enrols a user into a course and reports whether a new enrolment was
// created. An existing enrolment is redundant, not an error.
func (s *Service) Enrol(ctx context.Context, userID, courseID uint64, source string) (bool, error) {
	if _, errCourse := s.Course(ctx, courseID); errCourse != nil {
		return false, errCourse
	}

	row := models.Enrolment{UserID: userID, CourseID: courseID, Source: source}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	created := res.RowsAffected > 0
	if created {
		log.WithFields(log.Fields{"user_id": userID, "course_id": courseID, "source": source}).
			Info("enrol: user enrolled")
	}
	return created, nil
}

// IsEnrolled reports whether the user already holds an enrolment.
func (s *Service) IsEnrolled(ctx context.Context, userID, courseID uint64) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).
		Model(&models.Enrolment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}
