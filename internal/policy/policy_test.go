package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrutiigupta24/institute-api/internal/models"
	appErrors "github.com/shrutiigupta24/institute-api/pkg/errors"
)

func TestAttendanceScopePerRole(t *testing.T) {
	admin := Actor{Role: models.RoleAdmin, UserID: "u1"}
	scope, err := Attendance(admin, nil)
	require.NoError(t, err)
	assert.True(t, scope.All)

	student := Actor{Role: models.RoleStudent, UserID: "u2", StudentID: "s1"}
	scope, err = Attendance(student, nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", scope.StudentID)
	assert.False(t, scope.All)

	teacher := Actor{Role: models.RoleTeacher, UserID: "u3", TeacherID: "t1"}
	scope, err = Attendance(teacher, []string{"b1", "b2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, scope.BatchIDs)
}

func TestAttendanceScopeMissingProfile(t *testing.T) {
	student := Actor{Role: models.RoleStudent, UserID: "u2"}
	_, err := Attendance(student, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestFeeScopeDeniesTeachers(t *testing.T) {
	teacher := Actor{Role: models.RoleTeacher, UserID: "u3", TeacherID: "t1"}
	_, err := Fees(teacher)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestFeeScopeIsIdentityDerived(t *testing.T) {
	// The scope comes from the actor's own profile id; there is no way to
	// request a different student's rows.
	student := Actor{Role: models.RoleStudent, UserID: "u2", StudentID: "s1"}
	scope, err := Fees(student)
	require.NoError(t, err)
	assert.Equal(t, "s1", scope.StudentID)
}

func TestTestsScopeStudentCourses(t *testing.T) {
	student := Actor{Role: models.RoleStudent, UserID: "u2", StudentID: "s1"}
	scope, err := Tests(student, []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, scope.CourseIDs)

	teacher := Actor{Role: models.RoleTeacher, UserID: "u3", TeacherID: "t1"}
	scope, err = Tests(teacher, nil)
	require.NoError(t, err)
	assert.Equal(t, "t1", scope.TeacherID)
}

func TestCanViewStudentPerformance(t *testing.T) {
	teacher := Actor{Role: models.RoleTeacher, UserID: "u3", TeacherID: "t1"}

	err := CanViewStudentPerformance(teacher, []string{"b1", "b2"}, []string{"b2", "b9"})
	assert.NoError(t, err)

	err = CanViewStudentPerformance(teacher, []string{"b1", "b2"}, []string{"b3"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	admin := Actor{Role: models.RoleAdmin, UserID: "u1"}
	assert.NoError(t, CanViewStudentPerformance(admin, nil, nil))
}

func TestCanManageTest(t *testing.T) {
	test := &models.Test{ID: "test-1", TeacherID: "t1"}

	owner := Actor{Role: models.RoleTeacher, TeacherID: "t1"}
	assert.NoError(t, CanManageTest(owner, test))

	other := Actor{Role: models.RoleTeacher, TeacherID: "t2"}
	err := CanManageTest(other, test)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	student := Actor{Role: models.RoleStudent, StudentID: "s1"}
	assert.Error(t, CanManageTest(student, test))
}

func TestCanManageBatch(t *testing.T) {
	tid := "t1"
	batch := &models.Batch{ID: "b1", TeacherID: &tid}

	owner := Actor{Role: models.RoleTeacher, TeacherID: "t1"}
	assert.NoError(t, CanManageBatch(owner, batch))

	other := Actor{Role: models.RoleTeacher, TeacherID: "t2"}
	assert.Error(t, CanManageBatch(other, batch))

	unassigned := &models.Batch{ID: "b2"}
	assert.Error(t, CanManageBatch(owner, unassigned))
}

func TestActorFromClaims(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, TeacherID: "t1"}
	actor := ActorFromClaims(claims)
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, models.RoleTeacher, actor.Role)
	assert.Equal(t, "t1", actor.TeacherID)

	assert.Equal(t, Actor{}, ActorFromClaims(nil))
}
