package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	customError "github.com/fizanakara/membership-engine/pkg/errors"
)

// ReferenceService manages one kind of organizational grouping, districts or tributes.
type ReferenceService struct {
	Repo repository.ReferenceRepository
}

func NewReferenceService(repo repository.ReferenceRepository) *ReferenceService {
	return &ReferenceService{Repo: repo}
}

func referenceLabel(kind domain.ReferenceKind) string {
	switch kind {
	case domain.ReferenceDistrict:
		return "District"
	case domain.ReferenceTribute:
		return "Tribute"
	}
	return string(kind)
}

func (s *ReferenceService) label() string {
	return referenceLabel(s.Repo.Kind())
}

func (s *ReferenceService) Create(ctx context.Context, request *domain.ReferenceRequest) (*domain.Reference, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return nil, customError.WrapValidation(fmt.Sprintf("%s name must not be blank", s.label()))
	}

	if err := s.checkName(ctx, name, 0); err != nil {
		return nil, err
	}

	reference, err := s.Repo.Create(ctx, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, customError.WrapDuplicate(fmt.Sprintf("%s %q already exists", s.label(), name))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("reference created", "kind", s.Repo.Kind(), "id", reference.ID, "name", name)
	return reference, nil
}

func (s *ReferenceService) Get(ctx context.Context, id int64) (*domain.Reference, error) {
	reference, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapNotFound(s.label(), strconv.FormatInt(id, 10))
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return reference, nil
}

func (s *ReferenceService) List(ctx context.Context) ([]*domain.Reference, error) {
	references, err := s.Repo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return references, nil
}

func (s *ReferenceService) Rename(ctx context.Context, id int64, request *domain.ReferenceRequest) (*domain.Reference, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(request.Name)
	if name == "" {
		return nil, customError.WrapValidation(fmt.Sprintf("%s name must not be blank", s.label()))
	}
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	reference, err := s.Repo.Rename(ctx, id, name)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, customError.WrapDuplicate(fmt.Sprintf("%s %q already exists", s.label(), name))
		}
		return nil, customError.WrapDatabaseError(err)
	}

	slog.Info("reference renamed", "kind", s.Repo.Kind(), "id", id, "name", name)
	return reference, nil
}

// Delete removes a grouping no member belongs to anymore
func (s *ReferenceService) Delete(ctx context.Context, id int64) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return customError.WrapNotFound(s.label(), strconv.FormatInt(id, 10))
		case repository.IsForeignKeyViolation(err):
			return customError.WrapDuplicate(fmt.Sprintf("%s %d is still referenced by members", s.label(), id))
		}
		return customError.WrapDatabaseError(err)
	}

	slog.Info("reference deleted", "kind", s.Repo.Kind(), "id", id)
	return nil
}

func (s *ReferenceService) DeleteAll(ctx context.Context) (int64, error) {
	deleted, err := s.Repo.DeleteAll(ctx)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return 0, customError.WrapDuplicate(fmt.Sprintf("some %s entries are still referenced by members", s.Repo.Kind()))
		}
		return 0, customError.WrapDatabaseError(err)
	}

	slog.Warn("all references deleted", "kind", s.Repo.Kind(), "count", deleted)
	return deleted, nil
}

func (s *ReferenceService) checkName(ctx context.Context, name string, excludeID int64) error {
	taken, err := s.Repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if taken {
		return customError.WrapDuplicate(fmt.Sprintf("%s %q already exists", s.label(), name))
	}
	return nil
}
