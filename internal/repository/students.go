package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

// rowQuerier is satisfied by both the pool and a transaction; scope-sensitive
// checks reuse the same SQL inside and outside transactions.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ListStudents returns the students visible to the actor, ordered by display
// name. Teachers only see students they created or whose homeroom classroom
// they teach; coaches and admins see the whole school. Search is an optional
// case-insensitive substring match on display name or grade.
func (s *Store) ListStudents(ctx context.Context, actorUserID, search string) ([]model.StudentListItem, error) {
	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return nil, err
	}

	params := []any{scope.SchoolID}
	where := []string{"s.school_id = $1"}

	if scope.Role == model.RoleTeacher {
		params = append(params, scope.ActorID)
		where = append(where, fmt.Sprintf("(s.created_by_user_id = $%d OR c.teacher_id = $%d)", len(params), len(params)))
	}

	if trimmed := strings.TrimSpace(search); trimmed != "" {
		params = append(params, "%"+trimmed+"%")
		where = append(where, fmt.Sprintf("(s.display_name ILIKE $%d OR coalesce(s.grade, '') ILIKE $%d)", len(params), len(params)))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			s.id,
			s.display_name,
			s.grade,
			s.homeroom_classroom_id,
			c.name AS homeroom_classroom_name,
			s.active,
			s.created_at,
			s.updated_at
		FROM students s
		LEFT JOIN classrooms c ON c.id = s.homeroom_classroom_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY s.display_name ASC
	`, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.StudentListItem
	for rows.Next() {
		var item model.StudentListItem
		if err := rows.Scan(
			&item.ID,
			&item.DisplayName,
			&item.Grade,
			&item.HomeroomClassroomID,
			&item.HomeroomClassroomName,
			&item.Active,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		students = append(students, item)
	}
	return students, rows.Err()
}

// GetStudentByID fetches one student under the same filters as ListStudents.
// A row outside the actor's scope is reported as ErrNotFound, never as
// forbidden, so out-of-tenant existence is not revealed.
func (s *Store) GetStudentByID(ctx context.Context, actorUserID, studentID string) (model.StudentDetail, error) {
	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return model.StudentDetail{}, err
	}
	return getScopedStudent(ctx, s.pool, scope, studentID)
}

func getScopedStudent(ctx context.Context, q rowQuerier, scope model.AccessScope, studentID string) (model.StudentDetail, error) {
	params := []any{studentID, scope.SchoolID}
	teacherFilter := ""
	if scope.Role == model.RoleTeacher {
		params = append(params, scope.ActorID)
		teacherFilter = "AND (s.created_by_user_id = $3 OR c.teacher_id = $3)"
	}

	var detail model.StudentDetail
	row := q.QueryRow(ctx, `
		SELECT
			s.id,
			s.school_id,
			s.created_by_user_id,
			s.homeroom_classroom_id,
			c.name AS homeroom_classroom_name,
			s.display_name,
			s.grade,
			s.notes,
			s.active,
			s.created_at,
			s.updated_at
		FROM students s
		LEFT JOIN classrooms c ON c.id = s.homeroom_classroom_id
		WHERE s.id = $1
		  AND s.school_id = $2
		  `+teacherFilter+`
	`, params...)
	err := row.Scan(
		&detail.ID,
		&detail.SchoolID,
		&detail.CreatedByUserID,
		&detail.HomeroomClassroomID,
		&detail.HomeroomClassroomName,
		&detail.DisplayName,
		&detail.Grade,
		&detail.Notes,
		&detail.Active,
		&detail.CreatedAt,
		&detail.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StudentDetail{}, ErrNotFound
		}
		return model.StudentDetail{}, err
	}
	return detail, nil
}

// CreateStudent inserts a student into the actor's school, stamped with the
// actor as creator. The homeroom classroom, when given, must belong to the
// actor's school; it does not have to be the teacher's own classroom.
func (s *Store) CreateStudent(ctx context.Context, actorUserID string, input model.StudentInput) (string, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return "", err
	}

	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return "", err
	}

	var id string
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if err := validateHomeroomAssignment(ctx, tx, scope, input.HomeroomClassroomID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO students (school_id, created_by_user_id, homeroom_classroom_id, display_name, grade, notes, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, scope.SchoolID, scope.ActorID, input.HomeroomClassroomID, input.DisplayName, input.Grade, input.Notes, input.Active).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateStudent replaces all mutable fields of a student the actor can
// already read. The scope check and write share one transaction.
func (s *Store) UpdateStudent(ctx context.Context, actorUserID, studentID string, input model.StudentInput) error {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return err
	}

	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := getScopedStudent(ctx, tx, scope, studentID); err != nil {
			return err
		}
		if err := validateHomeroomAssignment(ctx, tx, scope, input.HomeroomClassroomID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			UPDATE students
			SET homeroom_classroom_id = $1,
			    display_name = $2,
			    grade = $3,
			    notes = $4,
			    active = $5,
			    updated_at = now()
			WHERE id = $6
		`, input.HomeroomClassroomID, input.DisplayName, input.Grade, input.Notes, input.Active, studentID)
		return err
	})
}

// ListClassroomOptions returns the classrooms the actor may assign as a
// homeroom in forms. Teachers get their own classrooms; coaches and admins
// get every classroom in the school.
func (s *Store) ListClassroomOptions(ctx context.Context, actorUserID string) ([]model.ClassroomOption, error) {
	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return nil, err
	}

	params := []any{scope.SchoolID}
	teacherFilter := ""
	if scope.Role == model.RoleTeacher {
		params = append(params, scope.ActorID)
		teacherFilter = "AND c.teacher_id = $2"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name
		FROM classrooms c
		WHERE c.school_id = $1
		  `+teacherFilter+`
		ORDER BY c.name ASC
	`, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []model.ClassroomOption
	for rows.Next() {
		var option model.ClassroomOption
		if err := rows.Scan(&option.ID, &option.Name); err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	return options, rows.Err()
}

func validateHomeroomAssignment(ctx context.Context, q rowQuerier, scope model.AccessScope, homeroomClassroomID *string) error {
	if homeroomClassroomID == nil {
		return nil
	}

	var id string
	err := q.QueryRow(ctx, `
		SELECT c.id
		FROM classrooms c
		WHERE c.id = $1
		  AND c.school_id = $2
	`, *homeroomClassroomID, scope.SchoolID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidClassroom
		}
		return err
	}
	return nil
}
