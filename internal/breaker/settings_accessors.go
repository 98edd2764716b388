package breaker

// SettingsUpdate carries a partial update to a live Strategy's Settings.
// Only non-nil/non-zero fields are applied; the rest keep their current
// value. This mirrors the teacher's UpdateSettings convention
// (internal/breaker/update.go) of validating the merged result as a whole
// before committing any field, all-or-nothing.
type SettingsUpdate struct {
	WindowSeconds          *int
	MinRequests            *int
	OpenThreshold          *float64
	CloseThreshold         *float64
	RecoveryTimeoutSeconds *int
	ReadDelaySeconds       *int
	Fallback               func(err error) (interface{}, error)
	FailureClassifier      func(err error) bool
}

// UpdateSettings applies upd to the strategy's live Settings, validating
// the merged result before committing. A window-size change invalidates
// the cached aggregator snapshot, since a stale snapshot computed against
// the old window size would misrepresent the new one.
func (s *Strategy) UpdateSettings(upd SettingsUpdate) error {
	merged := s.Settings()
	windowChanged := false

	if upd.WindowSeconds != nil {
		merged.WindowSeconds = *upd.WindowSeconds
		windowChanged = true
	}
	if upd.MinRequests != nil {
		merged.MinRequests = *upd.MinRequests
	}
	if upd.OpenThreshold != nil {
		merged.OpenThreshold = *upd.OpenThreshold
	}
	if upd.CloseThreshold != nil {
		merged.CloseThreshold = *upd.CloseThreshold
	}
	if upd.RecoveryTimeoutSeconds != nil {
		merged.RecoveryTimeoutSeconds = *upd.RecoveryTimeoutSeconds
	}
	if upd.ReadDelaySeconds != nil {
		merged.ReadDelaySeconds = *upd.ReadDelaySeconds
	}
	if upd.Fallback != nil {
		merged.Fallback = upd.Fallback
	}
	if upd.FailureClassifier != nil {
		merged.FailureClassifier = upd.FailureClassifier
	}

	if err := validateSettings(merged); err != nil {
		return err
	}

	s.setSettings(merged)
	s.aggregator.SetSettings(merged)
	if windowChanged {
		s.aggregator.Invalidate()
	}
	return nil
}

// validateSettings runs the same checks as applyDefaults, but returns an
// error instead of panicking: a runtime update comes from caller-supplied
// data (e.g. a hot-reloaded config file) that should be rejected
// gracefully, unlike a programmer error at construction time.
func validateSettings(s Settings) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = ErrInvalidThresholds
		}
	}()
	s.applyDefaults()
	return nil
}
