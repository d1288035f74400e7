package scope

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skooldesk/skooldesk-api/internal/models"
	appErrors "github.com/skooldesk/skooldesk-api/pkg/errors"
)

type fakeHopStore struct {
	studentClassID       string
	classIDsByParent     []string
	studentIDsByParent   []string
	subjectIDsByTeacher  []string
	subjectIDsByClasses  []string
	classIDsBySupervisor []string
	classIDsTaughtBy     []string
	studentIDsByClasses  []string
	err                  error
}

func (f *fakeHopStore) StudentClassID(ctx context.Context, studentID string) (string, error) {
	return f.studentClassID, f.err
}

func (f *fakeHopStore) ClassIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	return f.classIDsByParent, f.err
}

func (f *fakeHopStore) StudentIDsByParent(ctx context.Context, parentID string) ([]string, error) {
	return f.studentIDsByParent, f.err
}

func (f *fakeHopStore) SubjectIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	return f.subjectIDsByTeacher, f.err
}

func (f *fakeHopStore) SubjectIDsByClasses(ctx context.Context, classIDs []string) ([]string, error) {
	return f.subjectIDsByClasses, f.err
}

func (f *fakeHopStore) ClassIDsBySupervisor(ctx context.Context, teacherID string) ([]string, error) {
	return f.classIDsBySupervisor, f.err
}

func (f *fakeHopStore) ClassIDsTaughtBy(ctx context.Context, teacherID string) ([]string, error) {
	return f.classIDsTaughtBy, f.err
}

func (f *fakeHopStore) StudentIDsByClasses(ctx context.Context, classIDs []string) ([]string, error) {
	return f.studentIDsByClasses, f.err
}

func newTestResolver(store HopStore) *Resolver {
	return NewResolver(store, time.Second, zap.NewNop())
}

func actorOf(role models.Role, profileID string) models.Actor {
	return models.Actor{UserID: "user-1", ProfileID: profileID, Role: role}
}

func TestResolverAdminIsUnrestricted(t *testing.T) {
	r := newTestResolver(&fakeHopStore{})
	admin := actorOf(models.RoleAdmin, "")

	for _, resolve := range []func(context.Context, models.Actor) (Scope, error){
		r.ForLessons, r.ForSubjects, r.ForStudents, r.ForClasses, r.ForEnrollmentRecords, r.ForAudience,
	} {
		sc, err := resolve(context.Background(), admin)
		require.NoError(t, err)
		require.True(t, sc.Result.IsUnrestricted())
	}
}

func TestResolverParentWithoutChildrenGetsEmptyScope(t *testing.T) {
	r := newTestResolver(&fakeHopStore{})
	parent := actorOf(models.RoleParent, "par-1")

	sc, err := r.ForLessons(context.Background(), parent)
	require.NoError(t, err)
	require.True(t, sc.Result.IsEmpty())
	require.Equal(t, ByClass, sc.Dimension)

	sc, err = r.ForEnrollmentRecords(context.Background(), parent)
	require.NoError(t, err)
	require.True(t, sc.Result.IsEmpty())
	require.Equal(t, ByStudent, sc.Dimension)
}

func TestResolverHopFailureIsNeverDowngraded(t *testing.T) {
	r := newTestResolver(&fakeHopStore{err: errors.New("connection reset")})
	parent := actorOf(models.RoleParent, "par-1")

	_, err := r.ForLessons(context.Background(), parent)
	require.Error(t, err)

	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	require.Equal(t, appErrors.ErrResolutionFailure.Code, typed.Code)
}

func TestResolverTeacherClassesUnionSupervisedAndTaught(t *testing.T) {
	r := newTestResolver(&fakeHopStore{
		classIDsBySupervisor: []string{"class-1"},
		classIDsTaughtBy:     []string{"class-1", "class-2"},
	})
	teacher := actorOf(models.RoleTeacher, "tch-1")

	sc, err := r.ForClasses(context.Background(), teacher)
	require.NoError(t, err)
	require.Equal(t, ByID, sc.Dimension)
	require.Equal(t, []string{"class-1", "class-2"}, sc.Result.IDs())
}

func TestResolverTeacherOwnsLessonShapedEntities(t *testing.T) {
	r := newTestResolver(&fakeHopStore{})
	teacher := actorOf(models.RoleTeacher, "tch-1")

	sc, err := r.ForLessons(context.Background(), teacher)
	require.NoError(t, err)
	require.Equal(t, ByTeacher, sc.Dimension)
	require.Equal(t, []string{"tch-1"}, sc.Result.IDs())
}

func TestResolverStudentScopes(t *testing.T) {
	r := newTestResolver(&fakeHopStore{studentClassID: "class-9"})
	student := actorOf(models.RoleStudent, "stu-1")

	sc, err := r.ForStudents(context.Background(), student)
	require.NoError(t, err)
	require.Equal(t, ByID, sc.Dimension)
	require.Equal(t, []string{"stu-1"}, sc.Result.IDs())

	sc, err = r.ForLessons(context.Background(), student)
	require.NoError(t, err)
	require.Equal(t, ByClass, sc.Dimension)
	require.Equal(t, []string{"class-9"}, sc.Result.IDs())
}

func TestResolverStudentSubjectsFollowClassLinks(t *testing.T) {
	r := newTestResolver(&fakeHopStore{
		studentClassID:      "class-9",
		subjectIDsByClasses: []string{"sub-2", "sub-1"},
	})
	student := actorOf(models.RoleStudent, "stu-1")

	sc, err := r.ForSubjects(context.Background(), student)
	require.NoError(t, err)
	require.Equal(t, ByID, sc.Dimension)
	require.Equal(t, []string{"sub-1", "sub-2"}, sc.Result.IDs())
}

func TestResolverSubjectsSkipSecondHopOnEmptyClassSet(t *testing.T) {
	store := &fakeHopStore{subjectIDsByClasses: []string{"should-not-be-read"}}
	r := newTestResolver(store)
	parent := actorOf(models.RoleParent, "par-1")

	sc, err := r.ForSubjects(context.Background(), parent)
	require.NoError(t, err)
	require.True(t, sc.Result.IsEmpty())
}

func TestResolverAudienceKeepsUnclassedFallback(t *testing.T) {
	r := newTestResolver(&fakeHopStore{})
	parent := actorOf(models.RoleParent, "par-1")

	sc, err := r.ForAudience(context.Background(), parent)
	require.NoError(t, err)
	require.True(t, sc.Result.IsEmpty())
	require.True(t, sc.IncludeUnclassed)
	require.False(t, sc.Denied())
}
