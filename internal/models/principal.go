package models

// Role is the capability tag resolved once at authentication.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleGuest   Role = "guest"
)

// ResolveRole picks the role for a user from the profiles it owns. A teacher profile wins over a student one.
func ResolveRole(teacherID, studentID *int64, isStaff bool) Role {
	switch {
	case teacherID != nil:
		return RoleTeacher
	case studentID != nil:
		return RoleStudent
	case isStaff:
		return RoleStaff
	default:
		return RoleGuest
	}
}

// Principal is the identity a request acts as.
type Principal struct {
	UserID    string
	Email     string
	FullName  string
	Role      Role
	TeacherID *int64
	StudentID *int64
}

// IsTeacher reports whether the principal owns a teacher profile.
func (p *Principal) IsTeacher() bool {
	return p != nil && p.TeacherID != nil
}

// IsStudent reports whether the principal owns a student profile.
func (p *Principal) IsStudent() bool {
	return p != nil && p.StudentID != nil
}

// IsTeacherOf reports whether the principal is the given teacher.
func (p *Principal) IsTeacherOf(teacherID int64) bool {
	return p.IsTeacher() && *p.TeacherID == teacherID
}

// IsStudentOf reports whether the principal is the given student.
func (p *Principal) IsStudentOf(studentID *int64) bool {
	return p.IsStudent() && studentID != nil && *p.StudentID == *studentID
}
