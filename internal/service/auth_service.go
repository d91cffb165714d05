package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/matrimony-api/internal/metrics"
	"github.com/iliyamo/matrimony-api/internal/model"
	"github.com/iliyamo/matrimony-api/internal/repository"
	"github.com/iliyamo/matrimony-api/internal/utils"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores bytes past 72
	maxEmailLen    = 255
	maxNameLen     = 100

	DefaultLoginCodeTTL = 10 * time.Minute
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Mobile    string
	Role      string
}

// AddAdminInput is the payload a super admin uses to create staff.
type AddAdminInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// AuthResult is what every successful sign-in returns.
type AuthResult struct {
	User   *model.User
	Tokens utils.TokenPair
}

// LoginCodeResult describes an issued mobile login code.  Code is only
// filled when the server runs with code exposure enabled.
type LoginCodeResult struct {
	Code      string
	ExpiresAt time.Time
}

// AuthOptions tunes AuthService.
type AuthOptions struct {
	LoginCodeTTL    time.Duration
	ExposeLoginCode bool
}

// AuthService implements registration, the two login flows, token refresh
// and logout, and staff account management.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	hasher   *utils.Hasher
	tm       *utils.TokenManager
	activity ActivityRecorder
	sms      SMSSender
	log      *zap.Logger
	metrics  *metrics.Metrics
	opts     AuthOptions
	now      func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// NewAuthService wires an AuthService.  activity, sms, log and m may be nil.
func NewAuthService(users UserStore, tokens TokenStore, hasher *utils.Hasher, tm *utils.TokenManager,
	activity ActivityRecorder, sms SMSSender, log *zap.Logger, m *metrics.Metrics, opts AuthOptions) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LoginCodeTTL <= 0 {
		opts.LoginCodeTTL = DefaultLoginCodeTTL
	}
	s := &AuthService{
		users: users, tokens: tokens, hasher: hasher, tm: tm,
		activity: activity, sms: sms, log: log, metrics: m, opts: opts,
		now: time.Now,
	}
	s.dummy()
	return s
}

// Register creates a member account.  The caller signs in separately.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, origin model.Origin) (*model.User, error) {
	role := model.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil || !r.IsMember() {
			return nil, invalid("role", "must be one of user, parent, broker")
		}
		role = r
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	first, last, err := validateNames(in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	mobile := strings.TrimSpace(in.Mobile)
	if mobile != "" && utils.NormalizeMobile(mobile) == "" {
		return nil, invalid("mobile", "must contain at least 10 digits")
	}

	u, err := s.createUser(ctx, email, in.Password, first, last, utils.DigitsOnly(mobile), role)
	if err != nil {
		s.metrics.AuthEvent(model.ActionRegister, outcome(err))
		return nil, err
	}
	s.metrics.AuthEvent(model.ActionRegister, "ok")
	s.record(ctx, u.ID, model.ActionRegister, origin)
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.Stringer("role", u.Role))
	return u, nil
}

// Login checks an email/password pair.  Unknown emails and wrong passwords
// both yield ErrInvalidCredentials after the same amount of bcrypt work.
func (s *AuthService) Login(ctx context.Context, email, password string, origin model.Origin) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("", "email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if u == nil {
		if _, err := s.hasher.Verify(ctx, password, s.dummy()); err != nil {
			return nil, err
		}
		s.metrics.AuthEvent(model.ActionLogin, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(ctx, password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.AuthEvent(model.ActionLogin, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if u.Status == model.StatusBlocked {
		s.metrics.AuthEvent(model.ActionLogin, "blocked")
		return nil, ErrAccountBlocked
	}

	res, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.metrics.AuthEvent(model.ActionLogin, "ok")
	s.record(ctx, u.ID, model.ActionLogin, origin)
	return res, nil
}

// RequestMobileLoginCode issues a one-time code for the account registered
// under mobile and hands it to the SMS sender.
func (s *AuthService) RequestMobileLoginCode(ctx context.Context, mobile string) (*LoginCodeResult, error) {
	m10 := utils.NormalizeMobile(mobile)
	if m10 == "" {
		return nil, invalid("mobile", "must contain at least 10 digits")
	}
	u, err := s.users.GetByMobile(ctx, m10)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.AuthEvent("mobile_code", "not_registered")
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	if u.Status == model.StatusBlocked {
		return nil, ErrAccountBlocked
	}

	code, err := utils.NewLoginCode()
	if err != nil {
		return nil, err
	}
	exp := s.now().UTC().Add(s.opts.LoginCodeTTL)
	if err := s.users.SetLoginCode(ctx, u.ID, code, exp); err != nil {
		return nil, err
	}

	if s.sms != nil {
		if err := s.sms.SendLoginCode(ctx, u.Mobile, code); err != nil {
			if !s.opts.ExposeLoginCode {
				return nil, err
			}
			s.log.Warn("login code delivery failed", zap.String("mobile", utils.MaskMobile(u.Mobile)), zap.Error(err))
		}
	}
	s.metrics.AuthEvent("mobile_code", "ok")

	res := &LoginCodeResult{ExpiresAt: exp}
	if s.opts.ExposeLoginCode {
		res.Code = code
	}
	return res, nil
}

// VerifyMobileLoginCode signs in with a mobile number and a code from
// RequestMobileLoginCode.  A code works once; a second use fails with
// ErrInvalidCode.
func (s *AuthService) VerifyMobileLoginCode(ctx context.Context, mobile, code string, origin model.Origin) (*AuthResult, error) {
	m10 := utils.NormalizeMobile(mobile)
	if m10 == "" {
		return nil, invalid("mobile", "must contain at least 10 digits")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("code", "is required")
	}
	if len(code) != utils.LoginCodeLength {
		s.metrics.AuthEvent(model.ActionMobileLogin, "invalid_code")
		return nil, ErrInvalidCode
	}

	u, err := s.users.GetByMobileAndCode(ctx, m10, code, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.AuthEvent(model.ActionMobileLogin, "invalid_code")
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	consumed, err := s.users.ConsumeLoginCode(ctx, u.ID, code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.metrics.AuthEvent(model.ActionMobileLogin, "invalid_code")
		return nil, ErrInvalidCode
	}
	if u.Status == model.StatusBlocked {
		return nil, ErrAccountBlocked
	}

	res, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.metrics.AuthEvent(model.ActionMobileLogin, "ok")
	s.record(ctx, u.ID, model.ActionMobileLogin, origin)
	return res, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.  Of two concurrent refreshes with the same token
// only one succeeds.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("refresh_token", "is required")
	}
	claims, err := s.tm.VerifyRefresh(raw)
	if err != nil {
		s.metrics.AuthEvent("refresh", "invalid_token")
		return nil, err
	}
	hash := utils.HashToken(raw)
	uid, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.AuthEvent("refresh", "revoked")
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if uid != claims.UserID {
		s.log.Warn("refresh token owner mismatch", zap.Uint64("row_user", uid), zap.Uint64("claim_user", claims.UserID))
		return nil, ErrInvalidToken
	}
	revoked, err := s.tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !revoked {
		s.metrics.AuthEvent("refresh", "revoked")
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if u.Status == model.StatusBlocked {
		return nil, ErrAccountBlocked
	}
	res, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.metrics.AuthEvent("refresh", "ok")
	return res, nil
}

// Logout revokes a refresh token.  Unknown, expired or already revoked
// tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid("refresh_token", "is required")
	}
	if _, err := s.tokens.RevokeByHash(ctx, utils.HashToken(raw)); err != nil {
		return err
	}
	s.metrics.AuthEvent("logout", "ok")
	return nil
}

// AddAdmin creates an admin or super-admin account.  Authorization is
// enforced by the route guard; actorID is recorded for the audit trail.
func (s *AuthService) AddAdmin(ctx context.Context, actorID uint64, in AddAdminInput, origin model.Origin) (*model.User, error) {
	role := model.RoleAdmin
	if strings.TrimSpace(in.Role) != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil || !r.IsAdmin() {
			return nil, invalid("role", "must be admin or super-admin")
		}
		role = r
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	first, last, err := validateNames(in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}

	u, err := s.createUser(ctx, email, in.Password, first, last, "", role)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, model.ActionAddAdmin, origin)
	s.log.Info("staff account created",
		zap.Uint64("actor_id", actorID), zap.Uint64("user_id", u.ID), zap.Stringer("role", u.Role))
	return u, nil
}

// Me returns the current user's account.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ChangePassword replaces the password after checking the current one and
// revokes every refresh token of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if current == "" {
		return invalid("current_password", "is required")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(ctx, current, u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// SetUserStatus lets staff block or reinstate accounts.  Plain admins may
// only act on member accounts.
func (s *AuthService) SetUserStatus(ctx context.Context, actorRole model.Role, userID uint64, status string) (*model.User, error) {
	st, err := model.ParseUserStatus(status)
	if err != nil {
		return nil, invalid("status", "must be one of pending, active, verified, blocked")
	}
	target, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Role.IsAdmin() && actorRole != model.RoleSuperAdmin {
		return nil, ErrInsufficientPermissions
	}
	if err := s.users.UpdateStatus(ctx, userID, st); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if st == model.StatusBlocked {
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	target.Status = st
	s.log.Info("user status changed", zap.Uint64("user_id", userID), zap.String("status", string(st)))
	return target, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, first, last, mobile string, role model.Role) (*model.User, error) {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       model.StatusActive,
		FirstName:    first,
		LastName:     last,
		Mobile:       mobile,
	}
	id, err := s.users.Create(ctx, u)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (*AuthResult, error) {
	pair, err := s.tm.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

func (s *AuthService) record(ctx context.Context, actorID uint64, action string, origin model.Origin) {
	if s.activity == nil {
		return
	}
	a := model.Activity{
		ActorID:   actorID,
		Action:    action,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.activity.Record(ctx, a); err != nil {
		s.log.Warn("activity not recorded", zap.String("action", action), zap.Uint64("actor_id", actorID), zap.Error(err))
	}
}

// dummy returns a bcrypt hash compared against when the email is unknown.
// It is built outside any request context and retried until it succeeds,
// so unknown emails always pay the same bcrypt cost as known ones.
func (s *AuthService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash == "" {
		h, err := s.hasher.Hash(context.Background(), "not-a-real-password")
		if err != nil {
			s.log.Warn("dummy hash unavailable", zap.Error(err))
			return ""
		}
		s.dummyHash = h
	}
	return s.dummyHash
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", invalid("email", "is required")
	}
	if len(email) > maxEmailLen {
		return "", invalid("email", "must be at most %d characters", maxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func validatePassword(field, p string) error {
	if utf8.RuneCountInString(p) < minPasswordLen {
		return invalid(field, "must be at least %d characters", minPasswordLen)
	}
	if len(p) > maxPasswordLen {
		return invalid(field, "must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

func validateNames(first, last string) (string, string, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return "", "", invalid("first_name", "is required")
	}
	if utf8.RuneCountInString(first) > maxNameLen {
		return "", "", invalid("first_name", "must be at most %d characters", maxNameLen)
	}
	if utf8.RuneCountInString(last) > maxNameLen {
		return "", "", invalid("last_name", "must be at most %d characters", maxNameLen)
	}
	return first, last, nil
}
