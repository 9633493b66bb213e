package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"codegate/entity"
	"codegate/impl/codegen"
	"codegate/lib/clock"
	"codegate/lib/sl"
)

// Extend adds days to a fixed-term code and to every session under it. A session
// that already expired is extended from now. Session updates that fail are logged
// and left out of ExtendedDevices; the code itself is updated first.
func (e *Engine) Extend(ctx context.Context, req *entity.ExtendRequest) (*entity.ExtendResult, error) {
	if req.AdditionalDays < 1 {
		return nil, e.invalid(OpExtend, fmt.Errorf("%w: additional_days must be positive", ErrInvalidInput))
	}
	code := codegen.Normalize(req.Code)
	log := e.log.With(sl.Code(code), slog.Int("additional_days", req.AdditionalDays))

	found, err := e.store.FindCode(ctx, code)
	if err != nil {
		return nil, e.fail(OpExtend, fmt.Errorf("find code: %w", err))
	}
	if found == nil {
		e.record(OpExtend, OutcomeRejected)
		return &entity.ExtendResult{Message: MsgCodeNotFound}, nil
	}

	unlock := e.locks.Lock(found.Id)
	defer unlock()

	// reload under the lock so concurrent extensions add up
	ac, err := e.store.FindCodeById(ctx, found.Id)
	if err != nil {
		return nil, e.fail(OpExtend, fmt.Errorf("reload code: %w", err))
	}
	if ac == nil {
		e.record(OpExtend, OutcomeRejected)
		return &entity.ExtendResult{Message: MsgCodeNotFound}, nil
	}
	if ac.IsLifetime() {
		e.record(OpExtend, OutcomeRejected)
		return &entity.ExtendResult{Message: MsgLifetime}, nil
	}

	newDays := *ac.DurationDays + req.AdditionalDays
	if err = e.store.UpdateCodeDuration(ctx, ac.Id, newDays); err != nil {
		return nil, e.fail(OpExtend, fmt.Errorf("update duration: %w", err))
	}

	sessions, err := e.store.SessionsByCode(ctx, ac.Id)
	if err != nil {
		return nil, e.fail(OpExtend, fmt.Errorf("load sessions: %w", err))
	}
	now := e.now()
	extended := 0
	for _, s := range sessions {
		base := s.ExpiresAt
		if now.After(base) {
			base = now
		}
		if err = e.store.SetSessionExpiry(ctx, s.Id, clock.AddDays(base, req.AdditionalDays)); err != nil {
			log.With(sl.Device(s.DeviceId), sl.Err(err)).Warn("extend session")
			continue
		}
		extended++
	}

	log.With(slog.Int("sessions", len(sessions)), slog.Int("extended", extended)).Info("code extended")
	e.record(OpExtend, OutcomeOk)
	return &entity.ExtendResult{
		Success:         true,
		NewDurationDays: newDays,
		ExtendedDevices: extended,
		Message:         fmt.Sprintf("Extended by %d days (%d of %d devices)", req.AdditionalDays, extended, len(sessions)),
	}, nil
}

// Revoke removes the sessions of a device. Without a code it clears the device
// under every code. Revoking nothing still succeeds.
func (e *Engine) Revoke(ctx context.Context, req *entity.RevokeRequest) (*entity.RevokeResult, error) {
	if req.DeviceId == "" {
		return nil, e.invalid(OpRevoke, fmt.Errorf("%w: device_id required", ErrInvalidInput))
	}
	log := e.log.With(sl.Device(req.DeviceId))

	codeId := ""
	if req.Code != "" {
		ac, err := e.store.FindCode(ctx, codegen.Normalize(req.Code))
		if err != nil {
			return nil, e.fail(OpRevoke, fmt.Errorf("find code: %w", err))
		}
		if ac == nil {
			e.record(OpRevoke, OutcomeRejected)
			return &entity.RevokeResult{Message: MsgCodeNotFound}, nil
		}
		codeId = ac.Id
	}

	revoked, err := e.store.DeleteDeviceSessions(ctx, req.DeviceId, codeId)
	if err != nil {
		return nil, e.fail(OpRevoke, fmt.Errorf("delete sessions: %w", err))
	}
	e.record(OpRevoke, OutcomeOk)
	if revoked == 0 {
		return &entity.RevokeResult{Success: true, Message: MsgNothingRevoked}, nil
	}
	log.With(slog.Int64("revoked", revoked)).Info("device revoked")
	return &entity.RevokeResult{Success: true, Revoked: revoked, Message: MsgRevoked}, nil
}

// Create issues a new active code.
func (e *Engine) Create(ctx context.Context, req *entity.CreateCodeRequest) (*entity.CreateResult, error) {
	params := *req
	params.Normalize()
	if params.MaxDevices < 1 {
		return nil, e.invalid(OpCreate, fmt.Errorf("%w: max_devices must be positive", ErrInvalidInput))
	}
	if params.DurationDays != nil && *params.DurationDays < 1 {
		return nil, e.invalid(OpCreate, fmt.Errorf("%w: duration_days must be positive", ErrInvalidInput))
	}

	code, err := codegen.Unique(ctx, e.store.CodeExists)
	if err != nil {
		return nil, e.fail(OpCreate, fmt.Errorf("generate code: %w", err))
	}

	ac := &entity.ActivationCode{
		Id:                  uuid.NewString(),
		Code:                code,
		MaxDevices:          params.MaxDevices,
		IsActive:            true,
		Note:                params.Note,
		AppType:             params.AppType,
		MaxWhatsappProfiles: params.MaxWhatsappProfiles,
		CreatedAt:           e.now(),
	}
	if params.DurationDays != nil {
		days := *params.DurationDays
		ac.DurationDays = &days
	}
	if err = e.store.CreateCode(ctx, ac); err != nil {
		return nil, e.fail(OpCreate, fmt.Errorf("save code: %w", err))
	}

	e.log.With(
		sl.Code(code),
		slog.Int("max_devices", ac.MaxDevices),
		slog.Int("duration_days", ac.Days()),
	).Info("code created")
	e.record(OpCreate, OutcomeOk)
	return &entity.CreateResult{Success: true, Code: code, Created: ac, Message: MsgCreated}, nil
}

// Toggle enables or disables a code. Sessions are kept either way.
func (e *Engine) Toggle(ctx context.Context, req *entity.ToggleRequest) (*entity.ActionResult, error) {
	if req.IsActive == nil {
		return nil, e.invalid(OpToggle, fmt.Errorf("%w: is_active required", ErrInvalidInput))
	}
	code := codegen.Normalize(req.Code)
	ac, err := e.store.FindCode(ctx, code)
	if err != nil {
		return nil, e.fail(OpToggle, fmt.Errorf("find code: %w", err))
	}
	if ac == nil {
		e.record(OpToggle, OutcomeRejected)
		return &entity.ActionResult{Message: MsgCodeNotFound}, nil
	}
	active := *req.IsActive
	if err = e.store.SetCodeActive(ctx, ac.Id, active); err != nil {
		return nil, e.fail(OpToggle, fmt.Errorf("update code: %w", err))
	}
	e.log.With(sl.Code(code), slog.Bool("active", active)).Info("code toggled")
	e.record(OpToggle, OutcomeOk)
	if active {
		return &entity.ActionResult{Success: true, Message: MsgEnabled}, nil
	}
	return &entity.ActionResult{Success: true, Message: MsgDisabled}, nil
}

// Delete removes a code and all of its sessions.
func (e *Engine) Delete(ctx context.Context, req *entity.DeleteCodeRequest) (*entity.ActionResult, error) {
	code := codegen.Normalize(req.Code)
	ac, err := e.store.FindCode(ctx, code)
	if err != nil {
		return nil, e.fail(OpDelete, fmt.Errorf("find code: %w", err))
	}
	if ac == nil {
		e.record(OpDelete, OutcomeRejected)
		return &entity.ActionResult{Message: MsgCodeNotFound}, nil
	}

	unlock := e.locks.Lock(ac.Id)
	defer unlock()

	if err = e.store.DeleteCode(ctx, ac.Id); err != nil {
		return nil, e.fail(OpDelete, fmt.Errorf("delete code: %w", err))
	}
	e.log.With(sl.Code(code)).Info("code deleted")
	e.record(OpDelete, OutcomeOk)
	return &entity.ActionResult{Success: true, Message: fmt.Sprintf(MsgDeleted, ac.Code)}, nil
}
