package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futureyou/futureyou-os/internal/db"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/repository"
	"github.com/google/uuid"
)

type userService struct {
	users    repository.UserRepo
	facts    repository.UserFactsRepo
	uow      db.UnitOfWork
	cache    Invalidator
	observer UseCaseObserver
	now      func() time.Time
}

func NewUserService(
	users repository.UserRepo,
	facts repository.UserFactsRepo,
	uow db.UnitOfWork,
	cache Invalidator,
	observers ...UseCaseObserver,
) UserService {
	return &userService{
		users:    users,
		facts:    facts,
		uow:      uow,
		cache:    cache,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) CreateUser(ctx context.Context, u *domain.User) (err error) {
	uc := startUseCase(s.observer, "create-user", nil)
	defer func() { uc.finish(ctx, err) }()

	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" && u.Email == "" {
		return fmt.Errorf("%w: a name or an email is required", ErrInvalidInput)
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(u.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q", ErrInvalidInput, u.Timezone)
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = s.now()
	uc.fields["user_id"] = u.ID
	return s.users.Create(ctx, u)
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *userService) GetFacts(ctx context.Context, userID string) (*domain.UserFacts, error) {
	f, err := s.facts.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

func (s *userService) UpdateFacts(ctx context.Context, userID string, fn func(f *domain.UserFacts)) (facts *domain.UserFacts, err error) {
	uc := startUseCase(s.observer, "update-facts", map[string]any{"user_id": userID})
	defer func() { uc.finish(ctx, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := ensureUser(ctx, repository.NewSQLiteUserRepo(tx), userID); err != nil {
			return err
		}
		repo := repository.NewSQLiteUserFactsRepo(tx)
		f, err := repo.Get(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			f, err = &domain.UserFacts{UserID: userID}, nil
		}
		if err != nil {
			return err
		}
		fn(f)
		f.UserID = userID
		if err := repo.Upsert(ctx, f); err != nil {
			return err
		}
		facts = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(s.cache, userID)
	return facts, nil
}
