// Package identity holds student records: roster import, registration,
// credential reset and login.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"attendancewizard/internal/model"
)

// Repository is the slice of the store identity needs.
type Repository interface {
	StudentByUIN(ctx context.Context, uin string) (model.Student, error)
	StudentByID(ctx context.Context, id int64) (model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	InsertStudentIfAbsent(ctx context.Context, uin, name string) (bool, error)
	ActivateStudent(ctx context.Context, id int64, hash string) error
	ResetStudentCredential(ctx context.Context, id int64, hash string) error
}

// Hasher is the one-way password primitive.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Entry is one roster row.
type Entry struct {
	UIN  string
	Name string
}

// ImportResult counts what an import did.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Service coordinates identity checks against the store.
type Service struct {
	repo   Repository
	hasher Hasher
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// FindByUIN returns the student with the given external identifier.
func (s *Service) FindByUIN(ctx context.Context, uin string) (model.Student, error) {
	return s.repo.StudentByUIN(ctx, strings.TrimSpace(uin))
}

// FindByID returns the student with the given row id.
func (s *Service) FindByID(ctx context.Context, id int64) (model.Student, error) {
	return s.repo.StudentByID(ctx, id)
}

// List returns every student ordered by name.
func (s *Service) List(ctx context.Context) ([]model.Student, error) {
	return s.repo.ListStudents(ctx)
}

// Register sets the first credential of a roster student.
func (s *Service) Register(ctx context.Context, uin, name, password string) (model.Student, error) {
	st, err := s.verified(ctx, uin, name)
	if err != nil {
		return model.Student{}, err
	}
	if st.Registered {
		return model.Student{}, model.ErrAlreadyRegistered
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Student{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.ActivateStudent(ctx, st.ID, hash); err != nil {
		return model.Student{}, err
	}
	st.PasswordHash, st.Registered = hash, true
	return st, nil
}

// ResetCredential overwrites the credential of a registered student. It may be
// repeated any number of times.
func (s *Service) ResetCredential(ctx context.Context, uin, name, newPassword string) (model.Student, error) {
	st, err := s.verified(ctx, uin, name)
	if err != nil {
		return model.Student{}, err
	}
	if !st.Registered {
		return model.Student{}, model.ErrNotActivated
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return model.Student{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.ResetStudentCredential(ctx, st.ID, hash); err != nil {
		return model.Student{}, err
	}
	st.PasswordHash = hash
	return st, nil
}

// Authenticate checks a uin/password pair. Unknown, unregistered and
// mismatching students are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, uin, password string) (model.Student, error) {
	st, err := s.repo.StudentByUIN(ctx, strings.TrimSpace(uin))
	if errors.Is(err, model.ErrNotFound) {
		return model.Student{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Student{}, err
	}
	if !st.Registered || !s.hasher.Verify(password, st.PasswordHash) {
		return model.Student{}, model.ErrInvalidCredentials
	}
	return st, nil
}

// Import adds roster entries; identifiers already present are skipped, never overwritten.
func (s *Service) Import(ctx context.Context, entries []Entry) (ImportResult, error) {
	var res ImportResult
	for _, e := range entries {
		added, err := s.repo.InsertStudentIfAbsent(ctx, e.UIN, e.Name)
		if err != nil {
			return res, fmt.Errorf("import %s: %w", e.UIN, err)
		}
		if added {
			res.Added++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func (s *Service) verified(ctx context.Context, uin, name string) (model.Student, error) {
	st, err := s.repo.StudentByUIN(ctx, strings.TrimSpace(uin))
	if err != nil {
		return model.Student{}, err
	}
	if !SameName(st.Name, name) {
		return model.Student{}, model.ErrNameMismatch
	}
	return st, nil
}

// SameName compares display names ignoring case and surrounding whitespace.
func SameName(stored, given string) bool {
	return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(given))
}
