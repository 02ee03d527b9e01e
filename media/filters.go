package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/song"
)

// ErrModifiersConflict is returned when pitch and speed are both requested.
var ErrModifiersConflict = errors.New("pitch and speed modifiers cannot be combined")

// GraphOptions drives BuildFilterGraph.
type GraphOptions struct {
	Loudnorm bool
	// Avatar is an image overlaid in the corner for AvatarDuration seconds from Start.
	Avatar         string
	AvatarDuration float64
	Start          float64
	// Pitch in semitones, 0 keeps the original.
	Pitch int
	// Speed in percent, 0 or 100 keeps the original.
	Speed int
}

// BuildFilterGraph renders the lavfi-complex graph of a song, or "" when no filter is needed.
// An avatar that cannot be used degrades to the audio chain only.
func BuildFilterGraph(ctx context.Context, s *song.Song, opts GraphOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	speed := opts.Speed
	if speed == 100 {
		speed = 0
	}
	if opts.Pitch != 0 && speed != 0 {
		return "", ErrModifiersConflict
	}

	var audio []string
	if opts.Loudnorm {
		audio = append(audio, loudnorm(s.Loudnorm))
	}
	if opts.Pitch != 0 {
		audio = append(audio, fmt.Sprintf("rubberband=pitch=%s", formatFloat(math.Pow(2, float64(opts.Pitch)/12))))
	}
	if speed != 0 {
		audio = append(audio, atempo(float64(speed)/100)...)
	}

	var video string
	if opts.Avatar != "" {
		overlay, err := avatarOverlay(opts)
		if err != nil {
			log.Warnf("avatar overlay skipped for %s: %s", s.KID, err)
		} else {
			video = overlay
		}
	}
	if speed != 0 {
		setpts := fmt.Sprintf("setpts=PTS/%s", formatFloat(float64(speed)/100))
		if video == "" {
			video = "[vid1]" + setpts + "[vo]"
		} else {
			video = strings.TrimSuffix(video, "[vo]") + "," + setpts + "[vo]"
		}
	}

	var chains []string
	if len(audio) > 0 {
		chains = append(chains, "[aid1]"+strings.Join(audio, ",")+"[ao]")
	}
	if video != "" {
		chains = append(chains, video)
	}
	return strings.Join(chains, ";"), nil
}

// loudnorm uses the measured values "I,TP,LRA,thresh,offset" for a linear pass when available.
func loudnorm(measured string) string {
	parts := strings.Split(measured, ",")
	if len(parts) != 5 {
		return "loudnorm"
	}
	for _, p := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return "loudnorm"
		}
	}

	return fmt.Sprintf(
		"loudnorm=measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true",
		strings.TrimSpace(parts[0]),
		strings.TrimSpace(parts[1]),
		strings.TrimSpace(parts[2]),
		strings.TrimSpace(parts[3]),
		strings.TrimSpace(parts[4]),
	)
}

// atempo splits a tempo factor into atempo stages, each limited to [0.5, 2].
func atempo(factor float64) []string {
	var stages []string
	for factor > 2 {
		stages = append(stages, "atempo=2")
		factor /= 2
	}
	for factor < 0.5 {
		stages = append(stages, "atempo=0.5")
		factor /= 0.5
	}
	return append(stages, "atempo="+formatFloat(factor))
}

func avatarOverlay(opts GraphOptions) (string, error) {
	if !filesystem.IsFile(opts.Avatar) {
		return "", fmt.Errorf("avatar %s is not a file", opts.Avatar)
	}

	duration := opts.AvatarDuration
	if duration <= 0 {
		duration = 8
	}

	return fmt.Sprintf(
		"movie=%s,scale=-1:150[avatar];[vid1][avatar]overlay=x=W-w-30:y=H-h-30:enable='between(t,%s,%s)'[vo]",
		escapeFilterPath(opts.Avatar),
		formatFloat(opts.Start),
		formatFloat(opts.Start+duration),
	), nil
}

// escapeFilterPath quotes a path for use as a lavfi option value.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.ReplaceAll(p, `:`, `\\:`)
	p = strings.ReplaceAll(p, `'`, `\\\'`)
	return p
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
