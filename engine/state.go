package engine

import (
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/song"
)

// Status is the playback status of the main output.
type Status string

const (
	StatusPlay  Status = "play"
	StatusPause Status = "pause"
	StatusStop  Status = "stop"
)

// MediaSong is the media type of a playing song; other types are media kinds.
const MediaSong media.Kind = "song"

// Media describes the non-song file currently playing.
type Media struct {
	Kind media.Kind `json:"kind"`
	File string     `json:"file"`
}

// Blind modes.
const (
	BlindNone  = ""
	BlindBlur  = "blur"
	BlindBlack = "black"
)

// PlayerState is the unified state observers render.
type PlayerState struct {
	PlayerRunning     bool       `json:"playerRunning"`
	MonitorRunning    bool       `json:"monitorRunning"`
	Fullscreen        bool       `json:"fullscreen"`
	OnTop             bool       `json:"onTop"`
	Border            bool       `json:"border"`
	Volume            int        `json:"volume"`
	Mute              bool       `json:"mute"`
	ShowSubs          bool       `json:"showSubs"`
	CurrentVideoTrack int        `json:"currentVideoTrack"`
	Pitch             int        `json:"pitch"`
	Speed             int        `json:"speed"`
	BlurPercentage    int        `json:"blurPercentage"`
	Blind             string     `json:"blind"`
	AudioDevice       string     `json:"audioDevice"`
	HwDec             string     `json:"hwDec"`
	MediaType         media.Kind `json:"mediaType"`
	PlayerStatus      Status     `json:"playerStatus"`
	CurrentSong       *song.Song `json:"currentSong"`
	CurrentMedia      *Media     `json:"currentMedia"`
	TimePosition      float64    `json:"timeposition"`
	IsOperating       bool       `json:"isOperating"`
	StreamerPause     bool       `json:"streamerPause"`
	GuessTime         int        `json:"guessTime"`
	QuickGuess        int        `json:"quickGuess"`
	RevealTime        int        `json:"revealTime"`
}

// Modifiers alter how a song is rendered.
type Modifiers struct {
	Mute  bool   `json:"mute"`
	Blind string `json:"blind" validate:"omitempty,oneof=blur black"`
	// Pitch in semitones.
	Pitch int `json:"pitch" validate:"min=-12,max=12"`
	// Speed in percent, 0 or 100 for the original speed.
	Speed int `json:"speed" validate:"min=0,max=400"`
}

// Conflict reports whether both pitch and speed are modified.
func (m Modifiers) Conflict() bool {
	return m.Pitch != 0 && m.Speed != 0 && m.Speed != 100
}
