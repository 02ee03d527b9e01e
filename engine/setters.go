package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/media"
	"github.com/samber/lo"
)

func modifiersConflict() *Error {
	return newError(CodeModifiersConflict, media.ErrModifiersConflict, "invalid modifiers")
}

// SetMute mutes or unmutes the main output.
func (e *Engine) SetMute(ctx context.Context, mute bool) error {
	return e.locked(ctx, "set-mute", func(ctx context.Context) error {
		return e.setMuteLocked(ctx, mute)
	})
}

func (e *Engine) setMuteLocked(ctx context.Context, mute bool) error {
	if err := e.exec(ctx, execOpts{only: constant.MainPlayer}, "set_property", "mute", mute); err != nil {
		return err
	}
	e.update(func(st *PlayerState) { st.Mute = mute })
	return nil
}

// SetVolume sets the main output volume, clamped to [0, 100].
func (e *Engine) SetVolume(ctx context.Context, volume int) error {
	volume = lo.Clamp(volume, 0, 100)
	return e.locked(ctx, "set-volume", func(ctx context.Context) error {
		if err := e.exec(ctx, execOpts{only: constant.MainPlayer}, "set_property", "volume", volume); err != nil {
			return err
		}
		e.update(func(st *PlayerState) { st.Volume = volume })
		return nil
	})
}

// SetAudioDevice switches the audio output device of the main output.
func (e *Engine) SetAudioDevice(ctx context.Context, device string) error {
	if device == "" {
		device = "auto"
	}
	return e.locked(ctx, "set-audio-device", func(ctx context.Context) error {
		if err := e.exec(ctx, execOpts{only: constant.MainPlayer}, "set_property", "audio-device", device); err != nil {
			return err
		}
		e.update(func(st *PlayerState) { st.AudioDevice = device })
		return nil
	})
}

// SetBlurPercentage blurs the main output, 0 disables the blur.
func (e *Engine) SetBlurPercentage(ctx context.Context, percent int) error {
	percent = lo.Clamp(percent, 0, 100)
	return e.locked(ctx, "set-blur", func(ctx context.Context) error {
		return e.videoFiltersLocked(ctx, e.State().Blind, percent)
	})
}

// SetBlind hides the main output picture: "" shows it, "blur" blurs it, "black" blacks it out.
func (e *Engine) SetBlind(ctx context.Context, blind string) error {
	if !validBlind(blind) {
		return newError(CodeInvalidArgument, nil, "unknown blind mode %q", blind)
	}
	return e.locked(ctx, "set-blind", func(ctx context.Context) error {
		return e.videoFiltersLocked(ctx, blind, e.State().BlurPercentage)
	})
}

func validBlind(blind string) bool {
	return lo.Contains([]string{BlindNone, BlindBlur, BlindBlack}, blind)
}

func (e *Engine) videoFiltersLocked(ctx context.Context, blind string, blur int) error {
	if err := e.exec(ctx, execOpts{only: constant.MainPlayer}, "set_property", "vf", videoFilters(blind, blur)); err != nil {
		return err
	}
	e.update(func(st *PlayerState) {
		st.Blind = blind
		st.BlurPercentage = blur
	})
	return nil
}

// videoFilters renders the mpv vf chain hiding the picture.
func videoFilters(blind string, blur int) string {
	var filters []string
	if blur > 0 {
		filters = append(filters, fmt.Sprintf("@blur:lavfi=[gblur=sigma=%d]", max(blur/2, 1)))
	}

	switch blind {
	case BlindBlur:
		filters = append(filters, "@blind:lavfi=[gblur=sigma=80]")
	case BlindBlack:
		filters = append(filters, "@blind:lavfi=[drawbox=color=black:t=fill]")
	}
	return strings.Join(filters, ",")
}

// SetModifiers applies pitch, speed, mute and blind modifiers.
// Pitch and speed together are rejected before any command is sent.
func (e *Engine) SetModifiers(ctx context.Context, mods Modifiers) error {
	if mods.Conflict() {
		return modifiersConflict()
	}
	if !validBlind(mods.Blind) {
		return newError(CodeInvalidArgument, nil, "unknown blind mode %q", mods.Blind)
	}

	return e.locked(ctx, "set-modifiers", func(ctx context.Context) error {
		return e.applyModifiersLocked(ctx, mods)
	})
}

func (e *Engine) applyModifiersLocked(ctx context.Context, mods Modifiers) error {
	st := e.State()
	speed := lo.Ternary(mods.Speed == 0, 100, mods.Speed)

	if st.CurrentSong != nil && (mods.Pitch != st.Pitch || speed != st.Speed) {
		graph := e.filterGraph(ctx, st.CurrentSong, mods, st.TimePosition)
		if err := e.exec(ctx, execOpts{}, "set_property", "lavfi-complex", graph); err != nil {
			return err
		}
	}
	e.update(func(st *PlayerState) {
		st.Pitch = mods.Pitch
		st.Speed = speed
	})

	if mods.Mute != st.Mute {
		if err := e.setMuteLocked(ctx, mods.Mute); err != nil {
			return err
		}
	}
	if mods.Blind != st.Blind {
		return e.videoFiltersLocked(ctx, mods.Blind, st.BlurPercentage)
	}
	return nil
}

// SetSubs shows or hides subtitles.
func (e *Engine) SetSubs(ctx context.Context, show bool) error {
	return e.locked(ctx, "set-subs", func(ctx context.Context) error {
		if err := e.exec(ctx, execOpts{}, "set_property", "sub-visibility", show); err != nil {
			return err
		}
		e.update(func(st *PlayerState) { st.ShowSubs = show })
		return nil
	})
}

// ToggleFullscreen flips fullscreen on the main output.
func (e *Engine) ToggleFullscreen(ctx context.Context) error {
	return e.toggle(ctx, "fullscreen", func(st *PlayerState) *bool { return &st.Fullscreen })
}

// ToggleBorders flips window borders on every output.
func (e *Engine) ToggleBorders(ctx context.Context) error {
	return e.toggle(ctx, "border", func(st *PlayerState) *bool { return &st.Border })
}

// ToggleOnTop flips the always-on-top flag on every output.
func (e *Engine) ToggleOnTop(ctx context.Context) error {
	return e.toggle(ctx, "ontop", func(st *PlayerState) *bool { return &st.OnTop })
}

func (e *Engine) toggle(ctx context.Context, property string, field func(st *PlayerState) *bool) error {
	return e.locked(ctx, "toggle-"+property, func(ctx context.Context) error {
		st := e.State()
		value := !*field(&st)

		only := ""
		if property == "fullscreen" {
			only = constant.MainPlayer
		}
		if err := e.exec(ctx, execOpts{only: only}, "set_property", property, value); err != nil {
			return err
		}
		e.update(func(st *PlayerState) { *field(st) = value })
		return nil
	})
}

// SetHwDec changes the hardware decoding mode of every output.
func (e *Engine) SetHwDec(ctx context.Context, mode string) error {
	return e.locked(ctx, "set-hwdec", func(ctx context.Context) error {
		if err := e.exec(ctx, execOpts{}, "set_property", "hwdec", mode); err != nil {
			return err
		}
		e.update(func(st *PlayerState) { st.HwDec = mode })
		return nil
	})
}
