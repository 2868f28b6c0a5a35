package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tegalsec-progression/internal/domain"
)

const (
	maxCourseIDLength = 128
	maxCourseModule   = 100
	maxCourseSlide    = 1000
)

// CourseProgressView is where a learner left off in one course.
// Courses never opened report module 1, slide 0.
type CourseProgressView struct {
	CourseID     string     `json:"course_id"`
	ModuleNumber int        `json:"module_number"`
	SlideNumber  int        `json:"slide_number"`
	Started      bool       `json:"started"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func newCourseProgressView(courseID string, cp domain.CourseProgress, ok bool) CourseProgressView {
	if !ok {
		return CourseProgressView{CourseID: courseID, ModuleNumber: 1}
	}
	updated := cp.UpdatedAt
	return CourseProgressView{
		CourseID:     courseID,
		ModuleNumber: cp.ModuleNumber,
		SlideNumber:  cp.SlideNumber,
		Started:      true,
		UpdatedAt:    &updated,
	}
}

func cleanCourseID(courseID string) (string, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" || len(courseID) > maxCourseIDLength {
		return "", fmt.Errorf("%w: course id must be 1-%d characters", domain.ErrValidation, maxCourseIDLength)
	}
	return courseID, nil
}

// CourseProgress returns the caller's position in courseID.
func (s *ProgressionService) CourseProgress(ctx context.Context, id Identity, courseID string) (CourseProgressView, error) {
	courseID, err := cleanCourseID(courseID)
	if err != nil {
		return CourseProgressView{}, err
	}
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return CourseProgressView{}, err
	}
	cp, ok := rec.Courses[courseID]
	return newCourseProgressView(courseID, cp, ok), nil
}

// UpdateCourseProgress bookmarks the module and slide the caller reached.
// Module numbers start at 1, slide numbers at 0.
func (s *ProgressionService) UpdateCourseProgress(ctx context.Context, id Identity, courseID string, moduleNumber, slideNumber int) (CourseProgressView, error) {
	courseID, err := cleanCourseID(courseID)
	if err != nil {
		return CourseProgressView{}, err
	}
	if moduleNumber < 1 || moduleNumber > maxCourseModule {
		return CourseProgressView{}, fmt.Errorf("%w: module_number must be between 1 and %d", domain.ErrValidation, maxCourseModule)
	}
	if slideNumber < 0 || slideNumber > maxCourseSlide {
		return CourseProgressView{}, fmt.Errorf("%w: slide_number must be between 0 and %d", domain.ErrValidation, maxCourseSlide)
	}
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return CourseProgressView{}, fmt.Errorf("list challenges: %w", err)
	}
	done, err := s.mutate(ctx, id, len(catalog), func(rec *domain.ProgressionRecord, now time.Time) (domain.ProgressUpdate, error) {
		rec.Courses[courseID] = domain.CourseProgress{
			ModuleNumber: moduleNumber,
			SlideNumber:  slideNumber,
			UpdatedAt:    now,
		}
		return domain.ProgressUpdate{}, nil
	})
	if err != nil {
		return CourseProgressView{}, err
	}
	cp, ok := done.record.Courses[courseID]
	return newCourseProgressView(courseID, cp, ok), nil
}
