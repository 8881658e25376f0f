package circadian

// AreaState is the mutable per-area lighting state. Nil fields mean the
// configured default applies.
type AreaState struct {
	IsCircadian   bool     `json:"is_circadian"`
	IsOn          bool     `json:"is_on"`
	BrightnessMid *float64 `json:"brightness_mid,omitempty"`
	ColorMid      *float64 `json:"color_mid,omitempty"`
	ColorOverride *float64 `json:"color_override,omitempty"`
	FrozenAt      *float64 `json:"frozen_at,omitempty"`
	// Phase is the half-day the stepped values were made in
	Phase         Phase    `json:"phase,omitempty"`
}

// StatePatch describes the state changes produced by a step or position
// call. A nil field leaves the stored value untouched.
type StatePatch struct {
	BrightnessMid      *float64 `json:"brightness_mid,omitempty"`
	ColorMid           *float64 `json:"color_mid,omitempty"`
	ColorOverride      *float64 `json:"color_override,omitempty"`
	ClearColorOverride bool     `json:"clear_color_override,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p StatePatch) IsEmpty() bool {
	return p.BrightnessMid == nil && p.ColorMid == nil && p.ColorOverride == nil && !p.ClearColorOverride
}

// Merge overlays other onto p; fields set in other win
func (p StatePatch) Merge(other StatePatch) StatePatch {
	out := p
	if other.BrightnessMid != nil {
		out.BrightnessMid = other.BrightnessMid
	}
	if other.ColorMid != nil {
		out.ColorMid = other.ColorMid
	}
	if other.ColorOverride != nil {
		out.ColorOverride = other.ColorOverride
		out.ClearColorOverride = false
	}
	if other.ClearColorOverride {
		out.ColorOverride = nil
		out.ClearColorOverride = true
	}
	return out
}

// Apply returns a copy of s with the patch applied
func (s AreaState) Apply(p StatePatch) AreaState {
	out := s
	if p.BrightnessMid != nil {
		out.BrightnessMid = floatPtr(*p.BrightnessMid)
	}
	if p.ColorMid != nil {
		out.ColorMid = floatPtr(*p.ColorMid)
	}
	if p.ClearColorOverride {
		out.ColorOverride = nil
	} else if p.ColorOverride != nil {
		out.ColorOverride = floatPtr(*p.ColorOverride)
	}
	return out
}

// Reset clears midpoints and override. The on/circadian switches and a
// frozen time survive a reset.
func (s AreaState) Reset() AreaState {
	return AreaState{IsCircadian: s.IsCircadian, IsOn: s.IsOn, FrozenAt: s.FrozenAt}
}

// MarkPhase records the phase of hour (or of the frozen hour) as the owner
// of the current stepped values
func (s AreaState) MarkPhase(hour float64, cfg Config) AreaState {
	if !s.HasAdjustments() {
		s.Phase = ""
		return s
	}
	s.Phase = PhaseOf(s.effectiveHour(hour), cfg)
	return s
}

// SettlePhase resets stepped values that were made in a different phase
// than the one hour falls in. A frozen area is judged at its frozen hour.
// The bool reports whether anything was cleared.
func (s AreaState) SettlePhase(hour float64, cfg Config) (AreaState, bool) {
	if !s.HasAdjustments() || s.Phase == "" {
		return s, false
	}
	if s.Phase == PhaseOf(s.effectiveHour(hour), cfg) {
		return s, false
	}
	return s.Reset(), true
}

// HasAdjustments reports whether any stepped value is stored
func (s AreaState) HasAdjustments() bool {
	return s.BrightnessMid != nil || s.ColorMid != nil || s.ColorOverride != nil
}

// IsFrozen reports whether the area is pinned to a fixed time of day
func (s AreaState) IsFrozen() bool {
	return s.FrozenAt != nil
}

// effectiveHour substitutes the frozen hour when set
func (s AreaState) effectiveHour(hour float64) float64 {
	if s.FrozenAt != nil {
		return wrap24(*s.FrozenAt)
	}
	return wrap24(hour)
}

func (s AreaState) colorOverride() float64 {
	if s.ColorOverride == nil {
		return 0
	}
	return *s.ColorOverride
}

func floatPtr(v float64) *float64 { return &v }
