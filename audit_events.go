package goBarber

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/form"
	"github.com/MrEthical07/goBarber/kv"
)

const (
	auditEventBootstrapRestored   = "bootstrap_restored"
	auditEventBootstrapAnonymous  = "bootstrap_anonymous"
	auditEventBootstrapDiscarded  = "bootstrap_discarded"
	auditEventSignInSuccess       = "sign_in_success"
	auditEventSignInFailure       = "sign_in_failure"
	auditEventSignOut             = "sign_out"
	auditEventUserUpdated         = "user_updated"
	auditEventUserUpdateRejected  = "user_update_rejected"
	auditEventPersistenceFailure  = "persistence_failure"
	auditEventSignUpSuccess       = "sign_up_success"
	auditEventSignUpFailure       = "sign_up_failure"
	auditEventProfileUpdated      = "profile_updated"
	auditEventProfileUpdateFailed = "profile_update_failure"
	auditEventAvatarUpdated       = "avatar_updated"
	auditEventAvatarUpdateFailed  = "avatar_update_failure"
)

// AuditErrorCode is the stable, non-sensitive error classification carried
// in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrValidation         AuditErrorCode = "validation_failed"
	auditErrNoSession          AuditErrorCode = "no_session"
	auditErrInvalidUser        AuditErrorCode = "invalid_user"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (s *SessionStore) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	s.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, form.ErrInvalid):
		return auditErrValidation
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrInvalidUser):
		return auditErrInvalidUser
	case api.IsStatus(err, http.StatusUnauthorized):
		return auditErrInvalidCredentials
	case isStatusError(err):
		return auditErrRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, kv.ErrUnavailable), errors.Is(err, ErrPersistence):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func isStatusError(err error) bool {
	var se *api.StatusError
	return errors.As(err, &se)
}
