// Package sysconfig holds the single-row global policy the lifecycle
// controller reads at apply time. The value is passed explicitly into
// entry checks so the state machine stays pure and testable; nothing in
// business logic reads a global.
package sysconfig

import (
	"fmt"
	"time"

	dErrors "outpass/pkg/domain-errors"
)

// Config is the global outpass policy. Stored as a singleton row and cached
// for a short TTL, so updates take effect on the next apply-time read.
type Config struct {
	// EmergencyFreeze blocks all new pass requests campus-wide.
	EmergencyFreeze bool `json:"emergency_freeze"`

	// DayPassAutoApprove skips the warden queue for day passes.
	DayPassAutoApprove bool `json:"day_pass_auto_approve"`
	// HomePassAutoApprove approves a home pass as soon as its guardian does.
	HomePassAutoApprove bool `json:"home_pass_auto_approve"`

	// Day pass windows are minutes since midnight, local hostel time.
	DayPassStartMinute int `json:"day_pass_start_minute"`
	DayPassEndMinute   int `json:"day_pass_end_minute"`

	// GuardianTokenTTL bounds how long an emailed guardian link stays valid.
	GuardianTokenTTL time.Duration `json:"guardian_token_ttl"`
}

// Default returns the policy used when no row has been written yet.
func Default() Config {
	return Config{
		DayPassStartMinute: 6 * 60,  // 06:00
		DayPassEndMinute:   21 * 60, // 21:00
		GuardianTokenTTL:   48 * time.Hour,
	}
}

// Validate rejects nonsensical policy updates before they are persisted.
func (c Config) Validate() error {
	if c.DayPassStartMinute < 0 || c.DayPassStartMinute >= 24*60 {
		return dErrors.New(dErrors.CodeValidation, "day pass start must be a minute of day")
	}
	if c.DayPassEndMinute <= 0 || c.DayPassEndMinute > 24*60 {
		return dErrors.New(dErrors.CodeValidation, "day pass end must be a minute of day")
	}
	if c.DayPassStartMinute >= c.DayPassEndMinute {
		return dErrors.New(dErrors.CodeValidation, "day pass window must not be inverted")
	}
	if c.GuardianTokenTTL <= 0 {
		return dErrors.New(dErrors.CodeValidation, "guardian token ttl must be positive")
	}
	return nil
}

// WithinDayWindow checks that both requested clock times fall inside the
// configured day pass window.
func (c Config) WithinDayWindow(outMinute, inMinute int) bool {
	return outMinute >= c.DayPassStartMinute && outMinute <= c.DayPassEndMinute &&
		inMinute >= c.DayPassStartMinute && inMinute <= c.DayPassEndMinute
}

// ParseClock converts "HH:MM" into a minute of day.
func ParseClock(clock string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hh, &mm); err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid clock time %q, want HH:MM", clock)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid clock time %q, want HH:MM", clock)
	}
	return hh*60 + mm, nil
}

// FormatClock renders a minute of day back to "HH:MM" for responses.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
