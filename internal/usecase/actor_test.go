package usecase

import (
	"context"
	"errors"
	"testing"

	"crm_pipeline/internal/domain/entities"
	mock_interfaces "crm_pipeline/internal/usecase/interfaces/mocks"

	"go.uber.org/mock/gomock"
)

func TestActorResolver_Resolve(t *testing.T) {
	t.Run("requested user is used when active", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().GetByID(gomock.Any(), "u-1").Return(entities.User{ID: "u-1", IsActive: true}, nil)

		got, err := NewActorResolver(users, nil).Resolve(context.Background(), " u-1 ", "owner")
		if err != nil || got != "u-1" {
			t.Fatalf("expected u-1, got %q (%v)", got, err)
		}
	})

	t.Run("requested user unknown to the directory is trusted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().GetByID(gomock.Any(), "ext-7").Return(entities.User{}, nil)

		got, err := NewActorResolver(users, nil).Resolve(context.Background(), "ext-7", "")
		if err != nil || got != "ext-7" {
			t.Fatalf("expected ext-7, got %q (%v)", got, err)
		}
	})

	t.Run("inactive requested user is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().GetByID(gomock.Any(), "u-1").Return(entities.User{ID: "u-1"}, nil)

		_, err := NewActorResolver(users, nil).Resolve(context.Background(), "u-1", "owner")
		if !errors.Is(err, ErrInactiveUser) {
			t.Fatalf("expected ErrInactiveUser, got %v", err)
		}
	})

	t.Run("owner is the first fallback", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)

		got, err := NewActorResolver(users, nil).Resolve(context.Background(), "", "owner")
		if err != nil || got != "owner" {
			t.Fatalf("expected owner, got %q (%v)", got, err)
		}
	})

	t.Run("any active user is the last fallback", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().FindAnyActive(gomock.Any()).Return(entities.User{ID: "admin", IsActive: true}, nil)

		got, err := NewActorResolver(users, nil).Resolve(context.Background(), "", "")
		if err != nil || got != "admin" {
			t.Fatalf("expected admin, got %q (%v)", got, err)
		}
	})

	t.Run("no user at all", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().FindAnyActive(gomock.Any()).Return(entities.User{}, nil)

		_, err := NewActorResolver(users, nil).Resolve(context.Background(), "", "")
		if !errors.Is(err, ErrMissingActor) {
			t.Fatalf("expected ErrMissingActor, got %v", err)
		}
	})

	t.Run("directory error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mock_interfaces.NewMockIUserDirectory(ctrl)
		users.EXPECT().FindAnyActive(gomock.Any()).Return(entities.User{}, errors.New("db"))

		_, err := NewActorResolver(users, nil).Resolve(context.Background(), "", "")
		if err == nil || err.Error() != "db" {
			t.Fatalf("expected db error, got %v", err)
		}
	})

	t.Run("no directory", func(t *testing.T) {
		r := NewActorResolver(nil, nil)
		if got, _ := r.Resolve(context.Background(), "u-1", ""); got != "u-1" {
			t.Fatalf("expected u-1, got %q", got)
		}
		if _, err := r.Resolve(context.Background(), "", ""); !errors.Is(err, ErrMissingActor) {
			t.Fatalf("expected ErrMissingActor, got %v", err)
		}
	})
}
