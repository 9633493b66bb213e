package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codegate/entity"
	"codegate/impl/ratelimit"
	"codegate/lib/sl"
)

var ErrUnauthorized = errors.New("unauthorized")

// RateLimitedError is returned by Login while the caller is blocked.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

type ActivationService interface {
	Validate(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResult, error)
	Check(ctx context.Context, req *entity.CheckRequest) (*entity.CheckResult, error)
	Extend(ctx context.Context, req *entity.ExtendRequest) (*entity.ExtendResult, error)
	Revoke(ctx context.Context, req *entity.RevokeRequest) (*entity.RevokeResult, error)
	Create(ctx context.Context, req *entity.CreateCodeRequest) (*entity.CreateResult, error)
	Toggle(ctx context.Context, req *entity.ToggleRequest) (*entity.ActionResult, error)
	Delete(ctx context.Context, req *entity.DeleteCodeRequest) (*entity.ActionResult, error)
	ListCodes(ctx context.Context, page entity.Page) (*entity.List[*entity.CodeSummary], error)
	CodeDetail(ctx context.Context, code string) (*entity.CodeDetail, error)
	ListDevices(ctx context.Context, page entity.Page) (*entity.List[*entity.DeviceRow], error)
	Stats(ctx context.Context) (*entity.Stats, error)
	Usage(ctx context.Context) (*entity.UsageOverview, error)
	Profile(ctx context.Context, id string) (*entity.ProfileDetail, error)
}

type AuthService interface {
	CheckPassword(password string) error
	Issue() (*entity.LoginResult, error)
	Verify(token string) (*entity.AdminSession, error)
}

type LoginLimiter interface {
	Check(key string, rule ratelimit.Rule) ratelimit.Result
	Reset(key string)
}

// LoginRecorder counts login attempts by result: ok, failed or blocked.
type LoginRecorder interface {
	Login(result string)
}

type Core struct {
	act     ActivationService
	auth    AuthService
	limiter LoginLimiter
	rule    ratelimit.Rule
	rec     LoginRecorder
	log     *slog.Logger
}

func New(act ActivationService, log *slog.Logger) *Core {
	if act == nil {
		panic("activation service is nil")
	}
	return &Core{
		act:  act,
		rule: ratelimit.LoginRule,
		log:  log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetLoginLimiter(limiter LoginLimiter, rule ratelimit.Rule) {
	c.limiter = limiter
	c.rule = rule
}

func (c *Core) SetLoginRecorder(rec LoginRecorder) {
	c.rec = rec
}

func (c *Core) recordLogin(result string) {
	if c.rec != nil {
		c.rec.Login(result)
	}
}

func loginKey(remote string) string {
	return "login:" + remote
}

// Login exchanges the admin password for a session token. Attempts are counted
// per remote address whether they succeed or not; success clears the counter.
func (c *Core) Login(_ context.Context, req *entity.LoginRequest, remote string) (*entity.LoginResult, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	log := c.log.With(slog.String("remote_addr", remote))

	key := loginKey(remote)
	if c.limiter != nil {
		res := c.limiter.Check(key, c.rule)
		if !res.Allowed {
			log.With(slog.Duration("retry_after", res.ResetIn)).Warn("admin login blocked")
			c.recordLogin("blocked")
			return nil, &RateLimitedError{RetryAfter: res.ResetIn}
		}
	}

	if err := c.auth.CheckPassword(req.Password); err != nil {
		log.Warn("admin login failed")
		c.recordLogin("failed")
		return nil, ErrUnauthorized
	}
	if c.limiter != nil {
		c.limiter.Reset(key)
	}

	result, err := c.auth.Issue()
	if err != nil {
		return nil, err
	}
	log.Info("admin logged in")
	c.recordLogin("ok")
	return result, nil
}

func (c *Core) AuthenticateAdmin(token string) (*entity.AdminSession, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	session, err := c.auth.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return session, nil
}

func (c *Core) ValidateDevice(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResult, error) {
	return c.act.Validate(ctx, req)
}

func (c *Core) CheckDevice(ctx context.Context, req *entity.CheckRequest) (*entity.CheckResult, error) {
	return c.act.Check(ctx, req)
}

func (c *Core) ExtendCode(ctx context.Context, req *entity.ExtendRequest) (*entity.ExtendResult, error) {
	return c.act.Extend(ctx, req)
}

func (c *Core) RevokeDevice(ctx context.Context, req *entity.RevokeRequest) (*entity.RevokeResult, error) {
	return c.act.Revoke(ctx, req)
}

func (c *Core) CreateCode(ctx context.Context, req *entity.CreateCodeRequest) (*entity.CreateResult, error) {
	return c.act.Create(ctx, req)
}

func (c *Core) ToggleCode(ctx context.Context, req *entity.ToggleRequest) (*entity.ActionResult, error) {
	return c.act.Toggle(ctx, req)
}

func (c *Core) DeleteCode(ctx context.Context, req *entity.DeleteCodeRequest) (*entity.ActionResult, error) {
	return c.act.Delete(ctx, req)
}

func (c *Core) ListCodes(ctx context.Context, page entity.Page) (*entity.List[*entity.CodeSummary], error) {
	return c.act.ListCodes(ctx, page)
}

func (c *Core) CodeDetail(ctx context.Context, code string) (*entity.CodeDetail, error) {
	return c.act.CodeDetail(ctx, code)
}

func (c *Core) ListDevices(ctx context.Context, page entity.Page) (*entity.List[*entity.DeviceRow], error) {
	return c.act.ListDevices(ctx, page)
}

func (c *Core) Stats(ctx context.Context) (*entity.Stats, error) {
	return c.act.Stats(ctx)
}

func (c *Core) UsageOverview(ctx context.Context) (*entity.UsageOverview, error) {
	return c.act.Usage(ctx)
}

func (c *Core) ProfileDetail(ctx context.Context, id string) (*entity.ProfileDetail, error) {
	return c.act.Profile(ctx, id)
}
