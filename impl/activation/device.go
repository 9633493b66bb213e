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

// Validate redeems a code for a device. Re-validating a live device returns its
// existing expiry without extending it; an expired session of the same device is
// dropped and the device registers again if the code has room.
func (e *Engine) Validate(ctx context.Context, req *entity.ValidateRequest) (*entity.ValidateResult, error) {
	code := codegen.Normalize(req.Code)
	if code == "" || req.DeviceId == "" {
		return nil, e.invalid(OpValidate, fmt.Errorf("%w: code and device_id required", ErrInvalidInput))
	}
	info, err := entity.CompactDeviceInfo(req.DeviceInfo)
	if err != nil {
		return nil, e.invalid(OpValidate, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	log := e.log.With(sl.Code(code), sl.Device(req.DeviceId))

	ac, err := e.store.FindCode(ctx, code)
	if err != nil {
		return nil, e.fail(OpValidate, fmt.Errorf("find code: %w", err))
	}
	if ac == nil || !ac.IsActive {
		e.record(OpValidate, OutcomeRejected)
		return &entity.ValidateResult{Message: MsgCodeInvalid}, nil
	}

	unlock := e.locks.Lock(ac.Id)
	defer unlock()

	sessions, err := e.store.SessionsByCode(ctx, ac.Id)
	if err != nil {
		return nil, e.fail(OpValidate, fmt.Errorf("load sessions: %w", err))
	}

	now := e.now()
	live := 0
	for _, s := range sessions {
		if s.DeviceId != req.DeviceId {
			if !s.IsExpired(now) {
				live++
			}
			continue
		}
		if !s.IsExpired(now) {
			if err = e.store.TouchSession(ctx, s.Id, now); err != nil {
				log.Warn("update last check", sl.Err(err))
			}
			e.record(OpValidate, OutcomeOk)
			expires := s.ExpiresAt
			return &entity.ValidateResult{Valid: true, ExpiresAt: &expires, Message: MsgAlreadyActive}, nil
		}
		if err = e.store.DeleteSession(ctx, s.Id); err != nil {
			return nil, e.fail(OpValidate, fmt.Errorf("delete expired session: %w", err))
		}
		log.Debug("expired session removed before re-registration")
	}

	if live >= ac.MaxDevices {
		log.With(slog.Int("live", live), slog.Int("max_devices", ac.MaxDevices)).Info("device limit reached")
		e.record(OpValidate, OutcomeRejected)
		return &entity.ValidateResult{Message: fmt.Sprintf(MsgLimitReached, ac.MaxDevices)}, nil
	}

	session := &entity.DeviceSession{
		Id:               uuid.NewString(),
		ActivationCodeId: ac.Id,
		DeviceId:         req.DeviceId,
		ActivatedAt:      now,
		ExpiresAt:        expiresAt(ac, now),
		LastCheck:        now,
		DeviceInfo:       info,
	}
	if err = e.store.CreateSession(ctx, session); err != nil {
		return nil, e.fail(OpValidate, fmt.Errorf("register device: %w", err))
	}
	if ac.FirstActivatedAt == nil {
		if err = e.store.SetFirstActivated(ctx, ac.Id, now); err != nil {
			log.Warn("set first activation", sl.Err(err))
		}
	}

	log.With(slog.String("expires_at", clock.Format(session.ExpiresAt))).Info("device registered")
	e.record(OpValidate, OutcomeOk)
	expires := session.ExpiresAt
	return &entity.ValidateResult{Valid: true, ExpiresAt: &expires, Message: MsgActivated}, nil
}

// Check reports whether a registered device may still run. Expired sessions are
// deleted on the spot; a disabled code invalidates the device but keeps its session.
func (e *Engine) Check(ctx context.Context, req *entity.CheckRequest) (*entity.CheckResult, error) {
	if req.DeviceId == "" {
		return nil, e.invalid(OpCheck, fmt.Errorf("%w: device_id required", ErrInvalidInput))
	}
	log := e.log.With(sl.Device(req.DeviceId))

	sessions, err := e.store.SessionsByDevice(ctx, req.DeviceId)
	if err != nil {
		return nil, e.fail(OpCheck, fmt.Errorf("find sessions: %w", err))
	}

	var owner *entity.ActivationCode
	if req.Code != "" {
		owner, err = e.store.FindCode(ctx, codegen.Normalize(req.Code))
		if err != nil {
			return nil, e.fail(OpCheck, fmt.Errorf("find code: %w", err))
		}
		if owner == nil {
			sessions = nil
		} else {
			sessions = filterByCode(sessions, owner.Id)
		}
	}

	switch {
	case len(sessions) == 0:
		e.record(OpCheck, OutcomeRejected)
		return &entity.CheckResult{Message: MsgNotRegistered}, nil
	case len(sessions) > 1:
		log.With(slog.Int("sessions", len(sessions))).Warn("device id shared by several codes")
		e.record(OpCheck, OutcomeRejected)
		return &entity.CheckResult{Message: MsgAmbiguousDevice}, nil
	}
	session := sessions[0]

	now := e.now()
	if session.IsExpired(now) {
		if err = e.store.DeleteSession(ctx, session.Id); err != nil {
			return nil, e.fail(OpCheck, fmt.Errorf("delete expired session: %w", err))
		}
		log.Debug("expired session removed")
		e.record(OpCheck, OutcomeRejected)
		return &entity.CheckResult{Message: MsgExpired}, nil
	}

	if owner == nil {
		owner, err = e.store.FindCodeById(ctx, session.ActivationCodeId)
		if err != nil {
			return nil, e.fail(OpCheck, fmt.Errorf("find code: %w", err))
		}
	}
	if owner == nil || !owner.IsActive {
		e.record(OpCheck, OutcomeRejected)
		return &entity.CheckResult{Message: MsgCodeDisabled}, nil
	}

	if err = e.store.TouchSession(ctx, session.Id, now); err != nil {
		log.Warn("update last check", sl.Err(err))
	}
	current, err := e.store.CountLiveSessions(ctx, owner.Id, now)
	if err != nil {
		return nil, e.fail(OpCheck, fmt.Errorf("count sessions: %w", err))
	}

	result := &entity.CheckResult{
		Valid:          true,
		RemainingDays:  clock.RemainingDays(now, session.ExpiresAt),
		MaxDevices:     owner.MaxDevices,
		CurrentDevices: current,
		Message:        MsgStillValid,
	}
	expires := session.ExpiresAt
	result.ExpiresAt = &expires
	if owner.Note != "" {
		note := owner.Note
		result.CodeNote = &note
	}
	e.record(OpCheck, OutcomeOk)
	return result, nil
}

func filterByCode(sessions []*entity.DeviceSession, codeId string) []*entity.DeviceSession {
	out := sessions[:0:0]
	for _, s := range sessions {
		if s.ActivationCodeId == codeId {
			out = append(out, s)
		}
	}
	return out
}
