// Package activation implements the activation code and device session lifecycle.
//
// A device redeems a code with Validate and later polls Check. Registrations
// for one code are serialized in-process, so the number of unexpired sessions
// of a code never exceeds its MaxDevices as long as a single instance owns the
// store. Negative outcomes (unknown code, limit reached, expired session) are
// returned as results; errors mean bad input (ErrInvalidInput) or a store fault.
package activation

import (
	"errors"
	"log/slog"
	"time"

	"codegate/entity"
	"codegate/lib/clock"
	"codegate/lib/sl"
)

// ErrInvalidInput marks requests rejected before any store access.
var ErrInvalidInput = errors.New("invalid input")

// lifetimeYears stands in for "never expires".
const lifetimeYears = 100

const (
	MsgActivated       = "Activation successful"
	MsgAlreadyActive   = "Device already registered and active"
	MsgCodeInvalid     = "Activation code is invalid or inactive"
	MsgLimitReached    = "Device limit reached (%d devices)"
	MsgNotRegistered   = "Device not registered"
	MsgAmbiguousDevice = "Device is registered under several codes, code required"
	MsgExpired         = "Activation expired"
	MsgCodeDisabled    = "Activation code has been disabled"
	MsgStillValid      = "Activation still valid"
	MsgCodeNotFound    = "Activation code not found"
	MsgLifetime        = "Lifetime code does not need an extension"
	MsgRevoked         = "Device revoked"
	MsgNothingRevoked  = "No session found for device"
	MsgCreated         = "Code created"
	MsgEnabled         = "Code enabled"
	MsgDisabled        = "Code disabled"
	MsgDeleted         = "Code %s deleted"
	MsgProfileNotFound = "Profile not found"
)

// Operation and outcome labels passed to a Recorder.
const (
	OpValidate = "validate"
	OpCheck    = "check"
	OpExtend   = "extend"
	OpRevoke   = "revoke"
	OpCreate   = "create"
	OpToggle   = "toggle"
	OpDelete   = "delete"

	OutcomeOk       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder receives one call per finished engine operation.
type Recorder interface {
	Outcome(op, outcome string)
}

type Engine struct {
	store Store
	clock clock.Clock
	log   *slog.Logger
	locks *keyedMutex
	rec   Recorder
}

func New(store Store, clk clock.Clock, log *slog.Logger) *Engine {
	if store == nil {
		panic("activation store is nil")
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		store: store,
		clock: clk,
		log:   log.With(sl.Module("activation")),
		locks: newKeyedMutex(),
	}
}

func (e *Engine) SetRecorder(rec Recorder) {
	e.rec = rec
}

func (e *Engine) record(op, outcome string) {
	if e.rec != nil {
		e.rec.Outcome(op, outcome)
	}
}

// fail records a store fault for op and passes err through.
func (e *Engine) fail(op string, err error) error {
	e.record(op, OutcomeError)
	return err
}

func (e *Engine) invalid(op string, err error) error {
	e.record(op, OutcomeInvalid)
	return err
}

// now is the clock reading at store precision, so expiries returned to the
// caller match what a later read gives back.
func (e *Engine) now() time.Time {
	return clock.Stored(e.clock.Now())
}

// expiresAt computes the expiry of a session registered at now.
func expiresAt(code *entity.ActivationCode, now time.Time) time.Time {
	if code.IsLifetime() {
		return now.AddDate(lifetimeYears, 0, 0)
	}
	return clock.AddDays(now, *code.DurationDays)
}
