package goBarber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goBarber/api"
	"github.com/MrEthical07/goBarber/jwt"
	"github.com/MrEthical07/goBarber/kv"
)

const (
	pathSessions = "sessions"
	pathUsers    = "/users"
	pathProfile  = "/profile"
	pathAvatar   = "users/avatar"
)

// HTTPClient is the API transport the store drives. [*api.Client]
// implements it. The store only ever touches the Authorization default
// header.
type HTTPClient interface {
	SetDefaultHeader(name, value string)
	DeleteDefaultHeader(name string)
	DefaultHeader(name string) string
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Upload(ctx context.Context, method, path string, file api.File, out any) error
}

// SessionStore owns the authenticated-user session: it restores it from the
// key-value store at startup, and creates, updates and destroys it in
// response to sign-in, profile and sign-out events.
//
// All methods are safe for concurrent use. Mutations are serialized: each
// one holds the writer lock for its whole store and network chain, so a
// SignIn and a SignOut never interleave. Reads never wait on I/O.
type SessionStore struct {
	config  Config
	kv      kv.Store
	client  HTTPClient
	tokens  *jwt.Inspector
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	writeMu sync.Mutex

	mu      sync.RWMutex
	sess    *session
	loading bool
	version uint64
	closed  bool

	bootOnce sync.Once
	ready    chan struct{}

	subMu   sync.Mutex
	subs    []subscriber
	nextSub uint64
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

func newSessionStore(cfg Config, store kv.Store, client HTTPClient, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		config:  cfg,
		kv:      store,
		client:  client,
		logger:  logger,
		loading: true,
		ready:   make(chan struct{}),
	}
}

/*
====================================
BOOTSTRAP
====================================
*/

// Start runs Bootstrap in the background and returns immediately.
func (s *SessionStore) Start(ctx context.Context) {
	go func() {
		_ = s.Bootstrap(ctx)
	}()
}

// Bootstrap restores the session from the key-value store. It runs once;
// later calls wait for the first to finish and return nil.
//
// Bootstrap never fails the caller: unreadable, incomplete, malformed,
// expired or mismatched records all end in the anonymous state. It always
// clears the loading flag.
//
// With the default Token config a stored pair is more than "both present":
// an expired JWT, or one whose subject is not the stored user's id, is
// discarded. Opaque tokens are kept. Set Token.DiscardExpired and
// Token.CheckSubject to false to restore any complete pair.
//
// A SignIn or SignOut that commits before Bootstrap runs wins; Bootstrap
// then only clears the loading flag and leaves the live session alone.
func (s *SessionStore) Bootstrap(ctx context.Context) error {
	s.bootOnce.Do(func() {
		s.bootstrap(ctx)
	})
	return nil
}

// Ready is closed when bootstrap completes.
func (s *SessionStore) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until bootstrap completes or ctx ends.
func (s *SessionStore) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SessionStore) bootstrap(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.config.Session.BootstrapTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Session.BootstrapTimeout)
		defer cancel()
	}

	if s.superseded() {
		s.mu.Lock()
		s.loading = false
		s.version++
		snap := s.snapshotLocked()
		s.mu.Unlock()
		close(s.ready)

		s.logger.Debug("bootstrap skipped, session already changed", "authenticated", snap.User != nil)
		s.notify(snap)
		return
	}

	sess, outcome := s.restore(ctx)
	if sess != nil {
		s.client.SetDefaultHeader(api.HeaderAuthorization, bearer(sess.token))
	} else {
		s.client.DeleteDefaultHeader(api.HeaderAuthorization)
	}

	s.mu.Lock()
	s.sess = sess
	s.loading = false
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	close(s.ready)

	switch outcome {
	case bootstrapRestored:
		s.metricInc(MetricBootstrapRestored)
		s.logger.Info("session restored", "user_id", sess.user.ID)
		s.emitAudit(ctx, auditEventBootstrapRestored, true, sess.user.ID, nil, nil)
	case bootstrapAnonymous:
		s.metricInc(MetricBootstrapAnonymous)
		s.logger.Debug("no persisted session")
		s.emitAudit(ctx, auditEventBootstrapAnonymous, true, "", nil, nil)
	default:
		s.metricInc(MetricBootstrapDiscarded)
		s.emitAudit(ctx, auditEventBootstrapDiscarded, false, "", nil, func() map[string]string {
			return map[string]string{"reason": string(outcome)}
		})
	}

	s.notify(snap)
}

// superseded reports whether a mutation committed before bootstrap ran. The
// in-memory session is then newer than anything persisted and is kept.
func (s *SessionStore) superseded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version > 0
}

type bootstrapOutcome string

const (
	bootstrapRestored    bootstrapOutcome = "restored"
	bootstrapAnonymous   bootstrapOutcome = "anonymous"
	bootstrapUnreadable  bootstrapOutcome = "unreadable"
	bootstrapMalformed   bootstrapOutcome = "malformed"
	bootstrapExpired     bootstrapOutcome = "expired"
	bootstrapMismatch    bootstrapOutcome = "subject_mismatch"
	bootstrapInvalidAuth bootstrapOutcome = "invalid_token"
)

func (s *SessionStore) restore(ctx context.Context) (*session, bootstrapOutcome) {
	entries, err := s.kv.MultiGet(ctx, s.keys())
	if err != nil {
		s.metricInc(MetricPersistenceFailure)
		s.logger.Warn("session bootstrap read failed", "error", fmt.Errorf("%w: %w", ErrPersistence, err))
		return nil, bootstrapUnreadable
	}

	token, tokenOK := lookup(entries, s.config.Storage.TokenKey)
	raw, userOK := lookup(entries, s.config.Storage.UserKey)
	if !tokenOK || !userOK {
		return nil, bootstrapAnonymous
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("persisted session discarded", "error", fmt.Errorf("%w: %w", ErrDeserialization, err))
		s.purge(ctx)
		return nil, bootstrapMalformed
	}
	if user.ID == "" {
		s.logger.Warn("persisted session discarded", "error", fmt.Errorf("%w: missing user id", ErrDeserialization))
		s.purge(ctx)
		return nil, bootstrapMalformed
	}

	if outcome := s.inspectToken(token, user.ID); outcome != "" {
		s.logger.Info("persisted session discarded", "user_id", user.ID, "reason", string(outcome))
		s.purge(ctx)
		return nil, outcome
	}

	return &session{token: token, user: user}, bootstrapRestored
}

// inspectToken returns a non-empty outcome when the token must be discarded.
func (s *SessionStore) inspectToken(token, userID string) bootstrapOutcome {
	if s.tokens == nil {
		return ""
	}
	subject := ""
	if s.config.Token.CheckSubject {
		subject = userID
	}

	err := s.tokens.Check(token, subject)
	switch {
	case err == nil, errors.Is(err, jwt.ErrNotJWT):
		return ""
	case errors.Is(err, jwt.ErrExpired):
		if s.config.Token.DiscardExpired {
			return bootstrapExpired
		}
		return ""
	case errors.Is(err, jwt.ErrSubjectMismatch):
		return bootstrapMismatch
	default:
		return bootstrapInvalidAuth
	}
}

func (s *SessionStore) purge(ctx context.Context) {
	if !s.config.Session.PurgeCorruptRecord {
		return
	}
	if err := s.kv.MultiRemove(ctx, s.keys()); err != nil {
		s.metricInc(MetricPersistenceFailure)
		s.logger.Warn("purge of persisted session failed", "error", err)
	}
}

/*
====================================
MUTATIONS
====================================
*/

// SignIn creates a session from the API's response to credentials.
//
// Failures are returned wrapped in ErrAuthentication and leave both the
// key-value store and the in-memory session untouched. If the API accepts
// the credentials but persisting fails, the session is still committed in
// memory for the life of the process and SignIn returns nil.
func (s *SessionStore) SignIn(ctx context.Context, creds Credentials) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()

	var resp signInResponse
	if err := s.client.Post(ctx, pathSessions, creds, &resp); err != nil {
		return s.signInFailed(ctx, err)
	}
	if resp.Token == "" || resp.User.ID == "" {
		return s.signInFailed(ctx, errors.New("session response missing token or user"))
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return s.signInFailed(ctx, err)
	}

	err = s.kv.MultiSet(ctx, []kv.Pair{
		{Key: s.config.Storage.TokenKey, Value: resp.Token},
		{Key: s.config.Storage.UserKey, Value: string(userJSON)},
	})
	if err != nil {
		s.metricInc(MetricPersistenceFailure)
		s.logger.Warn("session not persisted", "user_id", resp.User.ID, "error", fmt.Errorf("%w: %w", ErrPersistence, err))
		s.emitAudit(ctx, auditEventPersistenceFailure, false, resp.User.ID, err, nil)
	}

	s.client.SetDefaultHeader(api.HeaderAuthorization, bearer(resp.Token))
	snap := s.commit(&session{token: resp.Token, user: resp.User})

	s.metricInc(MetricSignInSuccess)
	s.metricObserve(MetricSignInLatency, time.Since(start))
	s.logger.Info("signed in", "user_id", resp.User.ID)
	s.emitAudit(ctx, auditEventSignInSuccess, true, resp.User.ID, nil, nil)

	s.notify(snap)
	return nil
}

func (s *SessionStore) signInFailed(ctx context.Context, cause error) error {
	err := fmt.Errorf("%w: %w", ErrAuthentication, cause)
	s.metricInc(MetricSignInFailure)
	s.logger.Info("sign in failed", "error", cause)
	s.emitAudit(ctx, auditEventSignInFailure, false, "", err, nil)
	return err
}

// SignOut destroys the session. The in-memory session and the Authorization
// header are always cleared; a failure to delete the persisted pair is
// logged and returned wrapped in ErrPersistence. Callers may ignore it.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current()

	err := s.kv.MultiRemove(ctx, []string{s.config.Storage.UserKey, s.config.Storage.TokenKey})
	if s.config.Session.ClearHeaderOnSignOut {
		s.client.DeleteDefaultHeader(api.HeaderAuthorization)
	}
	snap := s.commit(nil)

	userID := ""
	if prev != nil {
		userID = prev.user.ID
	}
	s.metricInc(MetricSignOut)
	s.logger.Info("signed out", "user_id", userID)
	s.emitAudit(ctx, auditEventSignOut, err == nil, userID, err, nil)
	s.notify(snap)

	if err != nil {
		s.metricInc(MetricPersistenceFailure)
		s.logger.Warn("persisted session not removed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// UpdateUser replaces the signed-in user's record and keeps the token. Only
// the user entry is rewritten in the key-value store.
//
// It returns ErrNoSession without a session, ErrInvalidUser when user has no
// id or a different id, and ErrPersistence when the write fails; in every
// error case the in-memory session is unchanged.
func (s *SessionStore) UpdateUser(ctx context.Context, user User) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.updateUserLocked(ctx, user)
}

// updateUserLocked requires writeMu. It records UpdateUser outcomes;
// profile operations call replaceUserLocked and record their own.
func (s *SessionStore) updateUserLocked(ctx context.Context, user User) error {
	snap, err := s.replaceUserLocked(ctx, user)
	if err != nil {
		userID := user.ID
		if cur := s.current(); cur != nil {
			userID = cur.user.ID
		}
		if errors.Is(err, ErrPersistence) {
			s.emitAudit(ctx, auditEventPersistenceFailure, false, userID, err, nil)
		} else {
			s.metricInc(MetricUserUpdateRejected)
			s.emitAudit(ctx, auditEventUserUpdateRejected, false, userID, err, nil)
		}
		return err
	}

	s.metricInc(MetricUserUpdated)
	s.logger.Debug("user updated", "user_id", user.ID)
	s.emitAudit(ctx, auditEventUserUpdated, true, user.ID, nil, nil)
	s.notify(snap)
	return nil
}

// replaceUserLocked writes user through to the key-value store and commits
// it. It requires writeMu and leaves notify to the caller. Only storage
// failures are counted here.
func (s *SessionStore) replaceUserLocked(ctx context.Context, user User) (Snapshot, error) {
	cur := s.current()
	if cur == nil {
		return Snapshot{}, ErrNoSession
	}
	if user.ID == "" || user.ID != cur.user.ID {
		return Snapshot{}, ErrInvalidUser
	}

	data, err := json.Marshal(user)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	if err := s.kv.SetItem(ctx, s.config.Storage.UserKey, string(data)); err != nil {
		s.metricInc(MetricPersistenceFailure)
		s.logger.Warn("user update not persisted", "user_id", user.ID, "error", err)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return s.commit(&session{token: cur.token, user: user}), nil
}

/*
====================================
READ SURFACE
====================================
*/

// User returns the signed-in user and true, or false when anonymous.
func (s *SessionStore) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return User{}, false
	}
	return s.sess.user, true
}

// Loading reports whether bootstrap is still running.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Authenticated reports whether a session exists.
func (s *SessionStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess != nil
}

// Snapshot returns the current state.
func (s *SessionStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every committed
// mutation. fn runs synchronously on the mutating goroutine, after state
// locks are released, and must not call mutating methods. The returned
// function removes the subscription.
func (s *SessionStore) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Close flushes queued audit events and stops the dispatcher. Later
// mutations return ErrStoreClosed; SignOut still works so a closing app can
// drop its session, and its audit event is delivered inline.
func (s *SessionStore) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.audit != nil {
		s.audit.Close()
	}
}

// MetricsSnapshot returns the store's counters for exporters.
func (s *SessionStore) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (s *SessionStore) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

/*
====================================
INTERNALS
====================================
*/

func (s *SessionStore) keys() []string {
	return []string{s.config.Storage.TokenKey, s.config.Storage.UserKey}
}

func (s *SessionStore) current() *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

func (s *SessionStore) commit(sess *session) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.version++
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loading: s.loading,
		Version: s.version,
	}
	if s.sess != nil {
		u := s.sess.user
		snap.User = &u
		snap.Authenticated = true
	}
	return snap
}

func (s *SessionStore) notify(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *SessionStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *SessionStore) metricInc(id MetricID) {
	if s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *SessionStore) metricObserve(id MetricID, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(id, d)
}

func lookup(entries []kv.Entry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, e.Present && e.Value != ""
		}
	}
	return "", false
}

func bearer(token string) string {
	return "Bearer " + token
}
