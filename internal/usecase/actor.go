package usecase

import (
	"context"
	"strings"

	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/usecase/interfaces"
)

// IActorResolver picks the user an audited operation is attributed to.
type IActorResolver interface {
	Resolve(ctx context.Context, requested, owner string) (string, error)
}

// ActorResolver implements the author fallback of auth-optional deployments:
// the authenticated user, else the owner of the record (the job creator), else
// any active user. It runs at the request boundary so the engine never guesses.
type ActorResolver struct {
	users interfaces.IUserDirectory
	log   logger.Logger
}

var _ IActorResolver = (*ActorResolver)(nil)

func NewActorResolver(users interfaces.IUserDirectory, log logger.Logger) *ActorResolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &ActorResolver{users: users, log: log}
}

func (r *ActorResolver) Resolve(ctx context.Context, requested, owner string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		if r.users == nil {
			return requested, nil
		}
		u, err := r.users.GetByID(ctx, requested)
		if err != nil {
			return "", err
		}
		// Identities unknown to the directory are trusted; deactivated ones are not.
		if u.ID != "" && !u.IsActive {
			return "", ErrInactiveUser
		}
		return requested, nil
	}
	if owner = strings.TrimSpace(owner); owner != "" {
		return owner, nil
	}
	if r.users == nil {
		return "", ErrMissingActor
	}

	u, err := r.users.FindAnyActive(ctx)
	if err != nil {
		return "", err
	}
	if u.ID == "" {
		return "", ErrMissingActor
	}
	r.log.Debug("actor resolved from user directory fallback", logger.String("user_id", u.ID))
	return u.ID, nil
}
