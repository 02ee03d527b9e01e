// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Player Outputs - these keys configure the external mpv instances driven by the engine.
const (
	PlayerBinary        = "player.binary"
	PlayerMonitor       = "player.monitor"
	PlayerFullscreen    = "player.fullscreen"
	PlayerBorders       = "player.borders"
	PlayerOnTop         = "player.ontop"
	PlayerHwDec         = "player.hwdec"
	PlayerVolume        = "player.volume"
	PlayerAudioDevice   = "player.audio_device"
	PlayerExtraArgs     = "player.extra_args"
	PlayerScreen        = "player.screen"
	PlayerMonitorScreen = "player.monitor_screen"
)

// Media Resolution - these keys locate song media, subtitles, fillers and backgrounds.
const (
	MediaDirs        = "media.dirs"
	MediaSubsDirs    = "media.subs_dirs"
	MediaRemoteHosts = "media.remote_hosts"
	MediaJinglesDir  = "media.jingles_dir"
	MediaSponsorsDir = "media.sponsors_dir"
	MediaIntrosDir   = "media.intros_dir"
	MediaOutrosDir   = "media.outros_dir"
	MediaEncoresDir  = "media.encores_dir"
	MediaBackground  = "media.background"
	MediaAvatar      = "media.avatar"
	MediaLoudnorm    = "media.loudnorm"
)

// Playback Flow - these keys govern transitions between songs.
const (
	PlaybackPauseDuration = "playback.pause_duration"
	PlaybackSongInfo      = "playback.song_info"
	PlaybackInfoDuration  = "playback.info_duration"
)

// On-screen Overlay.
const (
	OverlayWrap = "overlay.wrap"
)

// Quiz Defaults - these keys seed the settings of newly created games.
const (
	QuizSimilarity     = "quiz.similarity"
	QuizGuessTime      = "quiz.guess_time"
	QuizQuickGuessTime = "quiz.quick_guess_time"
	QuizAnswerTime     = "quiz.answer_time"
	QuizStartPercent   = "quiz.start_percent"
)

// Persistence - these keys select and configure the score/game store.
const (
	StoreBackend       = "store.backend"
	StoreRedisAddr     = "store.redis_addr"
	StoreRedisPassword = "store.redis_password"
	StoreRedisDB       = "store.redis_db"
)

// Control Surface.
const (
	ServerHost = "server.host"
	ServerPort = "server.port"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite  = "logs.write"
	LogsLevel  = "logs.level"
	LogsJson   = "logs.json"
	LogsStderr = "logs.stderr"
)

// CLI Execution Environment.
const (
	CliColored = "cli.colored"
)
