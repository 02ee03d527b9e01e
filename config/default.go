// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/kara-engine/kara/color"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Kara + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.PlayerBinary, "mpv", "Path or name of the mpv binary")
	register(key.PlayerMonitor, false, "Open a second (monitor) output mirroring the main screen")
	register(key.PlayerFullscreen, false, "Start the main output in fullscreen")
	register(key.PlayerBorders, true, "Show window borders")
	register(key.PlayerOnTop, false, "Keep the player windows on top")
	register(key.PlayerHwDec, "auto-safe", "Hardware decoding mode passed to mpv (--hwdec)")
	register(key.PlayerVolume, 100, "Initial volume, from 0 to 100")
	register(key.PlayerAudioDevice, "auto", "Audio output device passed to mpv")
	register(key.PlayerExtraArgs, []string{}, "Additional arguments appended to every mpv command line")
	register(key.PlayerScreen, 0, "Screen index of the main output")
	register(key.PlayerMonitorScreen, 1, "Screen index of the monitor output")
	register(key.MediaDirs, []string{"medias"}, "Directories searched for song media files")
	register(key.MediaSubsDirs, []string{"lyrics"}, "Directories searched for subtitle files")
	register(key.MediaRemoteHosts, []string{"kara.moe"}, "Fallback hosts probed when a media file is missing locally.\nThe song repository host is always probed first")
	register(key.MediaJinglesDir, "jingles", "Directory of jingle fillers")
	register(key.MediaSponsorsDir, "sponsors", "Directory of sponsor fillers")
	register(key.MediaIntrosDir, "intros", "Directory of intro fillers")
	register(key.MediaOutrosDir, "outros", "Directory of outro fillers")
	register(key.MediaEncoresDir, "encores", "Directory of encore fillers")
	register(key.MediaBackground, "", "Background image displayed when nothing plays.\nEmpty uses the idle screen")
	register(key.MediaAvatar, true, "Overlay the requester avatar at song start")
	register(key.MediaLoudnorm, true, "Normalize loudness with the loudnorm filter")
	register(key.PlaybackPauseDuration, 0, "Seconds of pause between two songs (0 to disable)")
	register(key.PlaybackSongInfo, true, "Display song information when a song starts")
	register(key.PlaybackInfoDuration, 8, "Seconds the song information stays on screen")
	register(key.OverlayWrap, 60, "Column width used to wrap on-screen messages")
	register(key.QuizSimilarity, 65, "Minimum similarity percentage for an answer to be accepted")
	register(key.QuizGuessTime, 30, "Default guessing time in seconds")
	register(key.QuizQuickGuessTime, 10, "Default quick guess time in seconds")
	register(key.QuizAnswerTime, 15, "Default reveal time in seconds")
	register(key.QuizStartPercent, 33, "Default position (percentage of the song) where rounds start")
	register(key.StoreBackend, "file", "Score store backend.\nAvailable options are: file, redis")
	register(key.StoreRedisAddr, "localhost:6379", "Redis address used by the redis store")
	register(key.StoreRedisPassword, "", "Redis password used by the redis store")
	register(key.StoreRedisDB, 0, "Redis database used by the redis store")
	register(key.ServerHost, "127.0.0.1", "Address the control surface listens on")
	register(key.ServerPort, 1337, "Port the control surface listens on")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.LogsStderr, false, "Mirror logs to stderr")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
