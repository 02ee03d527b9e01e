package mpv

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kara-engine/kara/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Options configures how an instance process is spawned.
type Options struct {
	Name       string
	Binary     string
	SocketDir  string
	Screen     int
	Fullscreen bool
	Borders    bool
	OnTop      bool
	HwDec      string
	Volume     int
	AudioDev   string
	Extra      []string
}

// OptionsFromConfig builds the spawn options of the named output from the configuration.
func OptionsFromConfig(name, socketDir string, screen int) Options {
	return Options{
		Name:       name,
		Binary:     viper.GetString(key.PlayerBinary),
		SocketDir:  socketDir,
		Screen:     screen,
		Fullscreen: viper.GetBool(key.PlayerFullscreen),
		Borders:    viper.GetBool(key.PlayerBorders),
		OnTop:      viper.GetBool(key.PlayerOnTop),
		HwDec:      viper.GetString(key.PlayerHwDec),
		Volume:     viper.GetInt(key.PlayerVolume),
		AudioDev:   viper.GetString(key.PlayerAudioDevice),
		Extra:      viper.GetStringSlice(key.PlayerExtraArgs),
	}
}

// args renders the mpv command line, socket included.
func (o Options) args(socketPath string) []string {
	args := []string{
		"--no-terminal",
		"--msg-level=all=warn",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=no",
		"--no-osc",
		"--osd-level=0",
		fmt.Sprintf("--title=%s (%s)", "kara", o.Name),
		fmt.Sprintf("--screen=%d", o.Screen),
		fmt.Sprintf("--fs-screen=%d", o.Screen),
		fmt.Sprintf("--fullscreen=%s", yesNo(o.Fullscreen)),
		fmt.Sprintf("--border=%s", yesNo(o.Borders)),
		fmt.Sprintf("--ontop=%s", yesNo(o.OnTop)),
		fmt.Sprintf("--volume=%d", lo.Clamp(o.Volume, 0, 100)),
	}

	if o.HwDec != "" {
		args = append(args, "--hwdec="+o.HwDec)
	}
	if o.AudioDev != "" {
		args = append(args, "--audio-device="+o.AudioDev)
	}

	return append(args, o.Extra...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// LoadOptions are the per-file options attached to a loadfile command.
type LoadOptions struct {
	Title         string
	LavfiComplex  string
	SubFile       string
	StartOffset   float64
	ExternalImage string
	Extra         map[string]string
}

// Map renders the options as mpv per-file option names.
func (o LoadOptions) Map() map[string]string {
	m := make(map[string]string, len(o.Extra)+6)
	for k, v := range o.Extra {
		m[k] = v
	}

	if o.Title != "" {
		m["force-media-title"] = sanitizeTitle(o.Title)
	}
	if o.LavfiComplex != "" {
		m["lavfi-complex"] = o.LavfiComplex
	}
	if o.SubFile != "" {
		m["sub-files"] = o.SubFile
		m["sid"] = "1"
	} else {
		m["sid"] = "no"
	}
	if o.StartOffset > 0 {
		m["start"] = "+" + strconv.FormatFloat(o.StartOffset, 'f', 3, 64)
	}
	if o.ExternalImage != "" {
		m["external-files"] = o.ExternalImage
		m["image-display-duration"] = "inf"
		m["vid"] = "1"
	}

	return m
}

// sanitizeMediaTarget validates that a target is safe to pass to mpv.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty target")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in target")
	}

	// targets must never be mistaken for flags
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("target must not start with '-'")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
