package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kara-engine/kara/broadcast"
	"github.com/kara-engine/kara/engine"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/media"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/store"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Library lists the songs of a playlist.
type Library interface {
	Songs(ctx context.Context, playlist string) ([]*song.Song, error)
}

// Playback is the part of the player the quiz drives.
type Playback interface {
	Next(ctx context.Context) error
	Stop(ctx context.Context, background media.Kind) error
	Reveal(ctx context.Context) error
	Message(category, text string, d time.Duration)
	RemoveMessage(categories ...string)
}

// Options of a Scheduler.
type Options struct {
	Store    store.Store
	Library  Library
	Emitter  engine.Emitter
	Playback Playback
	// Rand picks the songs, a random source by default.
	Rand *rand.Rand
}

// GameOptions start a game.
type GameOptions struct {
	Name string `json:"name" validate:"required"`
	// Settings override the persisted or default ones.
	Settings *Settings `json:"settings,omitempty"`
	// Reset discards the progress of a persisted game with the same name.
	Reset bool `json:"reset"`
}

type game struct {
	state    GameState
	settings Settings
	songs    []*song.Song
	// songs that could not be played
	skipped []string
}

// Scheduler runs the rounds of a game. It is the engine's RoundHook: the hook
// methods never call the playback back, and playback is never called with mu held.
type Scheduler struct {
	mu       sync.Mutex
	store    store.Store
	library  Library
	emitter  engine.Emitter
	playback Playback
	rand     *rand.Rand

	game  *game
	round *GameSong
}

// New creates a scheduler with no game.
func New(opts Options) *Scheduler {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		store:    opts.Store,
		library:  opts.Library,
		emitter:  opts.Emitter,
		playback: opts.Playback,
		rand:     r,
	}
}

// StartGame starts or resumes the named game and plays its first round.
func (s *Scheduler) StartGame(ctx context.Context, opts GameOptions) error {
	if err := s.setup(ctx, opts); err != nil {
		return err
	}
	if err := s.playback.Next(ctx); err != nil {
		s.stopIfStalled(ctx, nil, err)
		return err
	}
	return nil
}

func (s *Scheduler) setup(ctx context.Context, opts GameOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game != nil && s.game.state.Running {
		return newError(CodeGameAlreadyRunning, nil, "game %q is already running", s.game.state.Name)
	}
	if strings.TrimSpace(opts.Name) == "" {
		return newError(CodeInvalidSettings, nil, "a game needs a name")
	}

	persisted, err := s.store.GetGame(ctx, opts.Name)
	if err != nil {
		return fmt.Errorf("load game %s: %w", opts.Name, err)
	}

	var (
		state    = GameState{Name: opts.Name}
		settings = DefaultSettings()
		resume   bool
	)
	if g, ok := persisted.Get(); ok {
		if err := json.Unmarshal(g.Settings, &settings); err != nil {
			log.Warnf("game %s: discarding unreadable settings: %s", opts.Name, err)
			settings = DefaultSettings()
		}
		if !opts.Reset {
			resume = json.Unmarshal(g.State, &state) == nil
		}
	}
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.Playlist == "" {
		return newError(CodeNoPlaylist, nil, "no playlist to draw songs from")
	}

	songs, err := s.library.Songs(ctx, settings.Playlist)
	if err != nil {
		return newError(CodeNoPlaylist, err, "playlist %q", settings.Playlist)
	}
	if len(songs) == 0 {
		return newError(CodeNoPlaylist, nil, "playlist %q is empty", settings.Playlist)
	}

	if !resume {
		if err := s.store.TruncateScores(ctx, opts.Name); err != nil {
			return fmt.Errorf("truncate scores of %s: %w", opts.Name, err)
		}
		state = GameState{Name: opts.Name}
	}
	state.Running = true
	state.Playlist = settings.Playlist

	s.game = &game{state: state, settings: settings, songs: songs}
	s.round = nil

	log.Infof("game %s started (resumed: %t, %d songs)", opts.Name, resume, len(songs))
	s.persistLocked(ctx)
	s.emitter.Emit(broadcast.QuizStateUpdate, s.viewLocked())
	return nil
}

// StopGame ends the running game and stops the playback.
func (s *Scheduler) StopGame(ctx context.Context) error {
	s.mu.Lock()
	if s.game == nil || !s.game.state.Running {
		s.mu.Unlock()
		return ErrGameNotRunning
	}

	if s.round != nil {
		s.round.cancel()
		s.round = nil
	}
	s.game.state.Running = false
	name := s.game.state.Name
	s.persistLocked(ctx)
	s.mu.Unlock()

	totals, err := s.store.TotalScores(ctx, name)
	if err != nil {
		log.Errorf("totals of %s: %s", name, err)
	}
	log.Infof("game %s stopped", name)
	s.emitter.Emit(broadcast.QuizEnd, EndEvent{Name: name, Totals: totals})

	s.playback.RemoveMessage(engine.CategoryQuiz)
	return s.playback.Stop(ctx, media.Stop)
}

// SetAnswer records the answer of login for the current round and reports
// whether it counts as quick. A player has one answer per round; the last one wins.
func (s *Scheduler) SetAnswer(login, answer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guessingLocked()
	if err != nil {
		return false, err
	}

	quick := r.QuickGuessOK && !r.QuickGuessTimer.Finished()
	a := Answer{Login: login, Answer: answer, Quick: quick, At: time.Now()}
	if _, i, ok := lo.FindIndexOf(r.Answers, func(x Answer) bool { return x.Login == login }); ok {
		r.Answers[i] = a
	} else {
		r.Answers = append(r.Answers, a)
	}

	s.emitter.Emit(broadcast.QuizAnswer, AnswerEvent{Login: login, Quick: a.Quick})
	return a.Quick, nil
}

// SetAudienceAnswer records the vote of a viewer. Votes are reduced to the most
// frequent one when the round closes and scored as the audience.
func (s *Scheduler) SetAudienceAnswer(viewer, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guessingLocked()
	if err != nil {
		return err
	}
	r.audience[viewer] = Answer{Login: viewer, Answer: answer, At: time.Now()}
	return nil
}

func (s *Scheduler) guessingLocked() (*GameSong, error) {
	if s.game == nil || !s.game.state.Running {
		return nil, ErrGameNotRunning
	}
	if s.round == nil || !s.round.started || s.round.State != PhaseGuess {
		return nil, ErrAnswerRejected
	}
	return s.round, nil
}

// ContinueRound keeps the current round on screen once revealed. The next song
// is then up to the operator.
func (s *Scheduler) ContinueRound() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil || !s.game.state.Running || s.round == nil {
		return ErrGameNotRunning
	}
	s.round.Continue = true
	s.emitter.Emit(broadcast.QuizStateUpdate, s.viewLocked())
	return nil
}

// Game returns a copy of the current game.
func (s *Scheduler) Game() mo.Option[GameView] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return mo.None[GameView]()
	}
	return mo.Some(s.viewLocked())
}

// Running reports whether a game is running.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game != nil && s.game.state.Running
}

// NextSong draws a song not played yet. When none is left the game stops.
func (s *Scheduler) NextSong(context.Context) (mo.Option[*song.Song], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil || !s.game.state.Running {
		return mo.None[*song.Song](), ErrGameNotRunning
	}

	pool := s.poolLocked()
	if len(pool) == 0 {
		// the caller holds the player; stopping has to wait for it
		go func() {
			if err := s.StopGame(context.Background()); err != nil {
				log.Warnf("stop exhausted game: %s", err)
			}
		}()
		return mo.None[*song.Song](), nil
	}
	return mo.Some(pool[s.rand.IntN(len(pool))]), nil
}

func (s *Scheduler) poolLocked() []*song.Song {
	return lo.Filter(s.game.songs, func(x *song.Song, _ int) bool {
		if s.round != nil && s.round.Song.KID == x.KID {
			return false
		}
		return !lo.Contains(s.game.state.KIDsPlayed, x.KID) && !lo.Contains(s.game.skipped, x.KID)
	})
}

// PrepareRound abandons the previous round and sizes a new one for sng.
func (s *Scheduler) PrepareRound(sng *song.Song) engine.RoundPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != nil {
		s.round.cancel()
	}
	if s.game == nil {
		s.round = nil
		return engine.RoundPlan{}
	}

	d := ComputeDurations(sng.Duration, s.game.settings.Time)
	s.round = newGameSong(sng, d)
	return engine.RoundPlan{Start: d.Start, Modifiers: s.game.settings.Modifiers}
}

// StartRound starts the timers of the prepared round and opens answers.
func (s *Scheduler) StartRound(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.round
	if r == nil || r.started || s.game == nil || !s.game.state.Running {
		return
	}
	r.started = true
	r.StartTime = time.Now()
	r.GuessTimer.Start()
	r.QuickGuessTimer.Start()

	s.emitter.Emit(broadcast.QuizStart, StartEvent{
		Number:     s.game.state.CurrentSongNumber + 1,
		GuessTime:  r.Durations.Guess.Seconds(),
		QuickTime:  r.Durations.Quick.Seconds(),
		RevealTime: r.Durations.Reveal.Seconds(),
	})
	go s.runRound(ctx, r)
}

// SkipRound abandons the round prepared for sng and keeps sng out of the rest of the game.
func (s *Scheduler) SkipRound(sng *song.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != nil && s.round.Song.KID == sng.KID {
		s.round.cancel()
		s.round = nil
	}
	if s.game == nil || lo.Contains(s.game.skipped, sng.KID) {
		return
	}
	s.game.skipped = append(s.game.skipped, sng.KID)
	log.Warnf("game %s: %s skipped", s.game.state.Name, sng.KID)
}

// PauseRound freezes the timers of the current round.
func (s *Scheduler) PauseRound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil {
		return
	}
	for _, t := range s.round.timers() {
		t.Pause()
	}
}

// ResumeRound restarts the timers PauseRound froze.
func (s *Scheduler) ResumeRound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil {
		return
	}
	for _, t := range s.round.timers() {
		if t.Paused() {
			t.Start()
		}
	}
}

// Times returns what is left of each phase of the current round.
func (s *Scheduler) Times() engine.RoundTimes {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.round
	if r == nil || !r.started {
		return engine.RoundTimes{}
	}

	rt := engine.RoundTimes{
		Active: true,
		Phase:  string(r.State),
		Guess:  r.GuessTimer.TimeLeft(),
		Reveal: r.RevealTimer.TimeLeft(),
	}
	if r.QuickGuessOK {
		rt.Quick = r.QuickGuessTimer.TimeLeft()
	}
	return rt
}

func (s *Scheduler) current(r *GameSong) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round == r
}

func (s *Scheduler) runRound(ctx context.Context, r *GameSong) {
	quick := r.QuickGuessTimer.Done()
wait:
	for {
		select {
		case <-quick:
			quick = nil
			s.mu.Lock()
			if s.round == r {
				r.QuickGuessOK = false
			}
			s.mu.Unlock()
		case <-r.GuessTimer.Done():
			break wait
		}
	}
	if r.GuessTimer.Cancelled() || !s.current(r) {
		return
	}

	result, ok := s.stopAcceptingAnswers(ctx, r)
	if !ok {
		return
	}

	if r.Durations.Reveal > 0 {
		if err := s.playback.Reveal(ctx); err != nil {
			log.Warnf("reveal: %s", err)
		}
	}
	s.playback.Message(engine.CategoryQuiz, revealText(result), max(r.Durations.Reveal, revealMessageMin))

	<-r.RevealTimer.Done()
	if r.RevealTimer.Cancelled() || !s.current(r) {
		return
	}

	s.mu.Lock()
	hold := r.Continue
	s.mu.Unlock()
	if hold {
		return
	}

	if reason, over := s.gameOver(ctx); over {
		log.Infof("game over: %s", reason)
		if err := s.StopGame(ctx); err != nil {
			log.Warnf("stop game: %s", err)
		}
		return
	}
	if err := s.playback.Next(ctx); err != nil {
		log.Errorf("next round: %s", err)
		s.stopIfStalled(ctx, r, err)
	}
}

// stopIfStalled ends the game when playback failed to start a round after prev,
// as nothing would move it forward anymore.
func (s *Scheduler) stopIfStalled(ctx context.Context, prev *GameSong, cause error) {
	s.mu.Lock()
	stalled := s.game != nil && s.game.state.Running &&
		(s.round == nil || s.round == prev || !s.round.started)
	s.mu.Unlock()
	if !stalled {
		return
	}

	log.Errorf("no round could be started, stopping the game: %s", cause)
	if err := s.StopGame(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrGameNotRunning) {
		log.Warnf("stop stalled game: %s", err)
	}
}

const revealMessageMin = 5 * time.Second

// stopAcceptingAnswers closes the round, scores a frozen copy of its answers and
// moves to the reveal.
func (s *Scheduler) stopAcceptingAnswers(ctx context.Context, r *GameSong) (ResultEvent, bool) {
	s.mu.Lock()
	if s.round != r || s.game == nil || !s.game.state.Running {
		s.mu.Unlock()
		return ResultEvent{}, false
	}

	r.State = PhaseAnswer
	r.QuickGuessOK = false
	snap := roundSnapshot{
		game:    s.game.state.Name,
		song:    r.Song,
		answers: slices.Clone(r.Answers),
	}
	if a, ok := audienceAnswer(r.audience); ok {
		snap.answers = append(snap.answers, a)
	}

	winners, rows := score(s.game.settings, snap, time.Now())
	r.Winners = winners

	st := &s.game.state
	st.CurrentSongNumber++
	st.KIDsPlayed = append(st.KIDsPlayed, r.Song.KID)
	st.CurrentTotalDuration += float64(s.game.settings.Time.GuessingTime + s.game.settings.Time.AnswerTime)
	r.RevealTimer.Start()

	result := ResultEvent{Number: st.CurrentSongNumber, Song: r.Song, Winners: winners}
	s.persistLocked(ctx)
	s.mu.Unlock()

	if err := s.store.InsertScores(ctx, rows...); err != nil {
		log.Errorf("insert %d scores: %s", len(rows), err)
	}
	s.emitter.Emit(broadcast.QuizResult, result)
	return result, true
}

// gameOver checks the end game conditions.
func (s *Scheduler) gameOver(ctx context.Context) (string, bool) {
	s.mu.Lock()
	if s.game == nil || !s.game.state.Running {
		s.mu.Unlock()
		return "game stopped", false
	}
	end := s.game.settings.EndGame
	st := s.game.state
	left := len(s.poolLocked())
	s.mu.Unlock()

	switch {
	case end.MaxSongs.Enabled && st.CurrentSongNumber >= end.MaxSongs.Songs:
		return fmt.Sprintf("%d songs played", st.CurrentSongNumber), true
	case end.Duration.Enabled && st.CurrentTotalDuration >= float64(end.Duration.Minutes*60):
		return fmt.Sprintf("%d minutes played", end.Duration.Minutes), true
	case left == 0:
		return "playlist exhausted", true
	}

	if end.MaxScore.Enabled {
		totals, err := s.store.TotalScores(ctx, st.Name)
		if err != nil {
			log.Errorf("totals of %s: %s", st.Name, err)
			return "", false
		}
		if len(totals) > 0 && totals[0].Points >= end.MaxScore.Score {
			return fmt.Sprintf("%s reached %d points", totals[0].Login, totals[0].Points), true
		}
	}
	return "", false
}

func (s *Scheduler) persistLocked(ctx context.Context) {
	settings, err := json.Marshal(s.game.settings)
	if err != nil {
		log.Errorf("encode settings: %s", err)
		return
	}
	state, err := json.Marshal(s.game.state)
	if err != nil {
		log.Errorf("encode game state: %s", err)
		return
	}

	g := store.Game{Name: s.game.state.Name, Settings: settings, State: state, UpdatedAt: time.Now()}
	if err := s.store.UpsertGame(ctx, g); err != nil {
		log.Errorf("save game %s: %s", g.Name, err)
	}
}

func (s *Scheduler) viewLocked() GameView {
	v := GameView{
		GameState: s.game.state,
		Settings:  s.game.settings,
		Remaining: len(s.poolLocked()),
	}
	v.KIDsPlayed = slices.Clone(v.KIDsPlayed)

	if r := s.round; r != nil && r.started {
		rv := &RoundView{
			Number:       s.game.state.CurrentSongNumber,
			State:        r.State,
			StartTime:    r.StartTime,
			QuickGuessOK: r.QuickGuessOK,
			Answers:      len(r.Answers),
			Winners:      slices.Clone(r.Winners),
			Continue:     r.Continue,
			GuessTime:    r.Durations.Guess.Seconds(),
			QuickTime:    r.Durations.Quick.Seconds(),
			RevealTime:   r.Durations.Reveal.Seconds(),
		}
		if r.State == PhaseGuess {
			rv.Number++
		} else {
			rv.Song = r.Song
		}
		v.Round = rv
	}
	return v
}

func revealText(result ResultEvent) string {
	var b strings.Builder
	b.WriteString(result.Song.InfoText(""))
	if len(result.Winners) == 0 {
		b.WriteString("\nNobody found it")
		return b.String()
	}

	names := lo.Map(result.Winners, func(w Winner, _ int) string {
		if w.QuickPoints > 0 {
			return fmt.Sprintf("%s (+%d, +%d quick)", w.Login, w.Points, w.QuickPoints)
		}
		return fmt.Sprintf("%s (+%d)", w.Login, w.Points)
	})
	b.WriteString("\n")
	b.WriteString(strings.Join(names, ", "))
	return b.String()
}
