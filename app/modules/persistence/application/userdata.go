package persistenceservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matchops/matchops/app/shared/results"
	"github.com/matchops/matchops/app/shared/types"
)

// UserData returns the cached user profile.
func (s *Service) UserData() types.UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserData.Clone()
}

// SignIn stores the profile of the signed-in user. Usage counters carry over
// when the same user signs in again.
func (s *Service) SignIn(ctx context.Context, user types.UserData) (types.UserData, error) {
	return run(s, ctx, flagSaving, "SignIn", user.UserID, func(ctx context.Context) (results.OperationResult[types.UserData, error], error) {
		current, err := s.loadUserData(ctx)
		if err != nil {
			return results.OperationResult[types.UserData, error]{}, fmt.Errorf("failed to read user data: %w", err)
		}

		if current.UserID == user.UserID || current.UserID == "" {
			user.Usage = current.Usage
		}
		now := s.now().UTC()
		user.IsAuthenticated = true
		user.SignedInAt = &now

		if err := s.storage.SetItem(ctx, types.KeyUserData, user); err != nil {
			return results.OperationResult[types.UserData, error]{}, fmt.Errorf("failed to store user data: %w", err)
		}
		s.mu.Lock()
		s.state.UserData = user.Clone()
		s.mu.Unlock()
		return results.SuccessResult[types.UserData, error](user), nil
	})
}

// SignOut clears the stored profile.
func (s *Service) SignOut(ctx context.Context) error {
	_, err := run(s, ctx, flagSaving, "SignOut", "", func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		if err := s.storage.RemoveItem(ctx, types.KeyUserData); err != nil {
			return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to clear user data: %w", err)
		}
		s.mu.Lock()
		s.state.UserData = types.UserData{}
		s.mu.Unlock()
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	return err
}

// UpdateUsage applies fn to the usage counters and stores them.
func (s *Service) UpdateUsage(ctx context.Context, fn func(*types.UsageCounters)) (types.UsageCounters, error) {
	return run(s, ctx, flagSaving, "UpdateUsage", "", func(ctx context.Context) (results.OperationResult[types.UsageCounters, error], error) {
		user, err := s.applyUsage(ctx, fn)
		if err != nil {
			return results.OperationResult[types.UsageCounters, error]{}, fmt.Errorf("failed to store usage: %w", err)
		}
		return results.SuccessResult[types.UsageCounters, error](user.Usage), nil
	})
}

// applyUsage reads the caller's profile, applies fn and writes it back.
// usageMu serializes the read-modify-write.
func (s *Service) applyUsage(ctx context.Context, fn func(*types.UsageCounters)) (types.UserData, error) {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	user, err := s.loadUserData(ctx)
	if err != nil {
		return types.UserData{}, err
	}
	fn(&user.Usage)
	if err := s.storage.SetItem(ctx, types.KeyUserData, user); err != nil {
		return types.UserData{}, err
	}
	s.mu.Lock()
	s.state.UserData = user.Clone()
	s.mu.Unlock()
	return user, nil
}

// bumpUsage updates the counters as a side effect of another operation.
// Storage failures are logged and do not fail the caller.
func (s *Service) bumpUsage(ctx context.Context, fn func(*types.UsageCounters)) {
	if _, err := s.applyUsage(ctx, fn); err != nil {
		s.logger.WarnContext(ctx, "Failed to store usage counters", slog.String("error", err.Error()))
	}
}
