package goBarber

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/form"
)

const (
	avatarField       = "avatar"
	avatarContentType = "image/jpg"
)

// SignUp validates data and registers a new account. It never touches the
// session; callers sign in afterwards.
func (s *SessionStore) SignUp(ctx context.Context, data form.SignUpData) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		s.metricInc(MetricSignUpFailure)
		return err
	}

	if err := s.client.Post(ctx, pathUsers, data, nil); err != nil {
		s.metricInc(MetricSignUpFailure)
		s.logger.Info("sign up failed", "error", err)
		s.emitAudit(ctx, auditEventSignUpFailure, false, "", err, nil)
		return err
	}

	s.metricInc(MetricSignUpSuccess)
	s.logger.Info("signed up")
	s.emitAudit(ctx, auditEventSignUpSuccess, true, "", nil, nil)
	return nil
}

// UpdateProfile validates data, sends it to the API and stores the returned
// user as the session user.
func (s *SessionStore) UpdateProfile(ctx context.Context, data form.ProfileData) (User, error) {
	if err := s.checkOpen(); err != nil {
		return User{}, err
	}
	if err := data.Validate(); err != nil {
		s.metricInc(MetricProfileUpdateFailure)
		return User{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current()
	if cur == nil {
		s.metricInc(MetricProfileUpdateFailure)
		return User{}, ErrNoSession
	}

	var user User
	if err := s.client.Put(ctx, pathProfile, data.Request(), &user); err != nil {
		return User{}, s.profileFailed(ctx, auditEventProfileUpdateFailed, MetricProfileUpdateFailure, cur.user.ID, err)
	}
	snap, err := s.replaceUserLocked(ctx, user)
	if err != nil {
		return User{}, s.profileFailed(ctx, auditEventProfileUpdateFailed, MetricProfileUpdateFailure, cur.user.ID, err)
	}

	s.metricInc(MetricProfileUpdateSuccess)
	s.logger.Info("profile updated", "user_id", user.ID)
	s.emitAudit(ctx, auditEventProfileUpdated, true, user.ID, nil, func() map[string]string {
		return map[string]string{"password_changed": fmt.Sprint(data.ChangesPassword())}
	})
	s.notify(snap)
	return user, nil
}

// UpdateAvatar uploads a JPEG image as the signed-in user's avatar and
// stores the returned user as the session user.
func (s *SessionStore) UpdateAvatar(ctx context.Context, image io.Reader) (User, error) {
	if err := s.checkOpen(); err != nil {
		return User{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current()
	if cur == nil {
		s.metricInc(MetricAvatarUpdateFailure)
		return User{}, ErrNoSession
	}

	file := api.File{
		Field:       avatarField,
		Name:        cur.user.ID + ".jpg",
		ContentType: avatarContentType,
		Content:     image,
	}

	var user User
	if err := s.client.Upload(ctx, http.MethodPatch, pathAvatar, file, &user); err != nil {
		return User{}, s.profileFailed(ctx, auditEventAvatarUpdateFailed, MetricAvatarUpdateFailure, cur.user.ID, err)
	}
	snap, err := s.replaceUserLocked(ctx, user)
	if err != nil {
		return User{}, s.profileFailed(ctx, auditEventAvatarUpdateFailed, MetricAvatarUpdateFailure, cur.user.ID, err)
	}

	s.metricInc(MetricAvatarUpdateSuccess)
	s.logger.Info("avatar updated", "user_id", user.ID)
	s.emitAudit(ctx, auditEventAvatarUpdated, true, user.ID, nil, nil)
	s.notify(snap)
	return user, nil
}

func (s *SessionStore) profileFailed(ctx context.Context, event string, metric MetricID, userID string, err error) error {
	s.metricInc(metric)
	s.logger.Info("profile update failed", "user_id", userID, "event", event, "error", err)
	s.emitAudit(ctx, event, false, userID, err, nil)
	return err
}
