// Package policy holds the role-scoped data access rules. Each resource gets
// one pure scope function per role variant: given the actor identity it
// returns the filter the repository must apply, or denies outright. Filters
// derive from the authenticated identity only, never from request
// parameters, so a student cannot reach another student's rows by changing
// an id. Adding a role means adding a variant here, not editing endpoints.
package policy

import (
	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

// Actor is the authenticated identity a scope decision is made for.
// StudentID/TeacherID are the profile ids carried in the token claims and are
// empty for roles without the matching profile.
type Actor struct {
	Role      models.UserRole
	UserID    string
	StudentID string
	TeacherID string
}

// Scope is the row filter a repository must apply. Exactly one of the
// restriction fields is set unless All is true.
type Scope struct {
	All       bool
	StudentID string
	TeacherID string
	CourseIDs []string
	BatchIDs  []string
}

func unrestricted() Scope { return Scope{All: true} }

// ActorFromClaims builds an Actor from verified JWT claims.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		Role:      claims.Role,
		UserID:    claims.UserID,
		StudentID: claims.StudentID,
		TeacherID: claims.TeacherID,
	}
}

// Attendance scopes attendance rows. Teachers see only their own batches,
// passed in as the batch-id set they own.
func Attendance(actor Actor, teacherBatchIDs []string) (Scope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return unrestricted(), nil
	case models.RoleStudent:
		if actor.StudentID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return Scope{StudentID: actor.StudentID}, nil
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "teacher profile missing")
		}
		return Scope{BatchIDs: teacherBatchIDs}, nil
	}
	return Scope{}, appErrors.ErrForbidden
}

// Fees scopes fee rows. Only students (own rows) and admins have access;
// teachers have no fee surface at all.
func Fees(actor Actor) (Scope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return unrestricted(), nil
	case models.RoleStudent:
		if actor.StudentID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return Scope{StudentID: actor.StudentID}, nil
	}
	return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "fees are not visible to this role")
}

// TestResults scopes result rows: students their own, teachers only results
// of tests they authored.
func TestResults(actor Actor) (Scope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return unrestricted(), nil
	case models.RoleStudent:
		if actor.StudentID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return Scope{StudentID: actor.StudentID}, nil
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "teacher profile missing")
		}
		return Scope{TeacherID: actor.TeacherID}, nil
	}
	return Scope{}, appErrors.ErrForbidden
}

// Tests scopes the test catalog. Students see tests of courses they are
// enrolled in (the caller resolves the course-id set from the enrollment
// associations); teachers see their own tests.
func Tests(actor Actor, enrolledCourseIDs []string) (Scope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return unrestricted(), nil
	case models.RoleStudent:
		if actor.StudentID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return Scope{CourseIDs: enrolledCourseIDs}, nil
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "teacher profile missing")
		}
		return Scope{TeacherID: actor.TeacherID}, nil
	}
	return Scope{}, appErrors.ErrForbidden
}

// StudyMaterials follows the same shape as Tests.
func StudyMaterials(actor Actor, enrolledCourseIDs []string) (Scope, error) {
	return Tests(actor, enrolledCourseIDs)
}

// Batches scopes the batch listing: teachers their own assignments, admins
// everything. Students reach their batches through the enrollment set
// instead.
func Batches(actor Actor) (Scope, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return unrestricted(), nil
	case models.RoleTeacher:
		if actor.TeacherID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "teacher profile missing")
		}
		return Scope{TeacherID: actor.TeacherID}, nil
	case models.RoleStudent:
		if actor.StudentID == "" {
			return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return Scope{StudentID: actor.StudentID}, nil
	}
	return Scope{}, appErrors.ErrForbidden
}

// CanViewStudentPerformance decides whether a teacher may read a student's
// performance: allowed only when the student's batch set intersects the
// teacher's. Admins always pass.
func CanViewStudentPerformance(actor Actor, teacherBatchIDs, studentBatchIDs []string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleTeacher || actor.TeacherID == "" {
		return appErrors.ErrForbidden
	}
	owned := make(map[string]struct{}, len(teacherBatchIDs))
	for _, id := range teacherBatchIDs {
		owned[id] = struct{}{}
	}
	for _, id := range studentBatchIDs {
		if _, ok := owned[id]; ok {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "student is not in any of your batches")
}

// CanManageTest decides whether the actor may evaluate or modify results of
// the given test. Only the owning teacher (or an admin) passes.
func CanManageTest(actor Actor, test *models.Test) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleTeacher || actor.TeacherID == "" {
		return appErrors.ErrForbidden
	}
	if test == nil || test.TeacherID != actor.TeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only modify results of your own tests")
	}
	return nil
}

// CanManageBatch decides whether the actor may mark attendance or read the
// roster of the given batch.
func CanManageBatch(actor Actor, batch *models.Batch) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleTeacher || actor.TeacherID == "" {
		return appErrors.ErrForbidden
	}
	if batch == nil || batch.TeacherID == nil || *batch.TeacherID != actor.TeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "batch is not assigned to you")
	}
	return nil
}
