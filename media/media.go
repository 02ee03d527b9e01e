// Package media locates the files the player loads: song media, subtitles,
// fillers and backgrounds. It also builds the per-song filter graph.
package media

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kara-engine/kara/filesystem"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/network"
	"github.com/kara-engine/kara/song"
	"github.com/kara-engine/kara/util"
	"github.com/kara-engine/kara/where"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// Kind is a filler or background category.
type Kind string

// Filler kinds.
const (
	Jingles  Kind = "jingles"
	Sponsors Kind = "sponsors"
	Intros   Kind = "intros"
	Outros   Kind = "outros"
	Encores  Kind = "encores"
)

// Background kinds.
const (
	Stop  Kind = "stop"
	Pause Kind = "pause"
	Poll  Kind = "poll"
)

// Fillers lists every filler kind.
var Fillers = []Kind{Jingles, Sponsors, Intros, Outros, Encores}

// IsFiller reports whether k names a filler kind.
func IsFiller(k Kind) bool {
	return lo.Contains(Fillers, k)
}

// ErrMediaNotFound is returned when neither a local file nor a remote host provides the media.
var ErrMediaNotFound = errors.New("media not found")

// Options configures a Resolver.
type Options struct {
	MediaDirs   []string
	SubsDirs    []string
	FillerDirs  map[Kind]string
	Backgrounds string
	Background  string
	RemoteHosts []string
	// Scheme used for remote media URLs, https unless overridden.
	Scheme string
	Client *http.Client
	Rand   *rand.Rand
}

// Resolver turns songs and kinds into loadable paths or URLs.
type Resolver struct {
	opts   Options
	randMu sync.Mutex
}

// New creates a resolver.
func New(opts Options) *Resolver {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	if opts.Client == nil {
		opts.Client = network.Client
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d65646961))
	}
	return &Resolver{opts: opts}
}

// OptionsFromConfig reads resolver options from the configuration.
// Relative directories are resolved against the data directory.
func OptionsFromConfig() Options {
	data := where.Data()
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(data, p)
	}

	return Options{
		MediaDirs: lo.Map(viper.GetStringSlice(key.MediaDirs), func(d string, _ int) string { return abs(d) }),
		SubsDirs:  lo.Map(viper.GetStringSlice(key.MediaSubsDirs), func(d string, _ int) string { return abs(d) }),
		FillerDirs: map[Kind]string{
			Jingles:  abs(viper.GetString(key.MediaJinglesDir)),
			Sponsors: abs(viper.GetString(key.MediaSponsorsDir)),
			Intros:   abs(viper.GetString(key.MediaIntrosDir)),
			Outros:   abs(viper.GetString(key.MediaOutrosDir)),
			Encores:  abs(viper.GetString(key.MediaEncoresDir)),
		},
		Backgrounds: abs("backgrounds"),
		Background:  abs(viper.GetString(key.MediaBackground)),
		RemoteHosts: viper.GetStringSlice(key.MediaRemoteHosts),
	}
}

// Media resolves the song media: local file, folded filename match, then remote hosts.
func (r *Resolver) Media(ctx context.Context, s *song.Song) (string, error) {
	if s.MediaFile == "" {
		return "", fmt.Errorf("%w: song %s has no media file", ErrMediaNotFound, s.KID)
	}

	for _, dir := range r.opts.MediaDirs {
		p := filepath.Join(dir, s.MediaFile)
		if filesystem.IsFile(p) {
			return p, nil
		}
	}

	if p, ok := r.foldedMatch(s.MediaFile).Get(); ok {
		log.Debugf("media %s matched by folded name %s", s.MediaFile, p)
		return p, nil
	}

	log.Infof("media %s not found locally, trying remote hosts", s.MediaFile)

	for _, host := range r.hosts(s) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		u := r.remoteURL(host, s.MediaFile)
		if err := network.Probe(ctx, r.opts.Client, u); err != nil {
			log.Debugf("remote media probe failed: %s", err)
			continue
		}
		return u, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMediaNotFound, s.MediaFile)
}

// Subtitle resolves the song subtitle file. A missing subtitle is not an error.
func (r *Resolver) Subtitle(_ context.Context, s *song.Song) mo.Option[string] {
	if s.SubFile == "" {
		return mo.None[string]()
	}

	for _, dir := range r.opts.SubsDirs {
		p := filepath.Join(dir, s.SubFile)
		if filesystem.IsFile(p) {
			return mo.Some(p)
		}
	}

	log.Warnf("subtitle %s not found for %s", s.SubFile, s.KID)
	return mo.None[string]()
}

// Filler picks a random file of the given filler kind.
func (r *Resolver) Filler(kind Kind) mo.Option[string] {
	dir, ok := r.opts.FillerDirs[kind]
	if !ok || dir == "" {
		return mo.None[string]()
	}

	files := filesystem.Files(dir)
	if len(files) == 0 {
		return mo.None[string]()
	}

	r.randMu.Lock()
	defer r.randMu.Unlock()
	return mo.Some(files[r.opts.Rand.IntN(len(files))])
}

// Background returns the image shown for a background kind, or "" to keep the idle screen.
// A file named after the kind in the backgrounds directory wins over the configured default.
func (r *Resolver) Background(kind Kind) string {
	if r.opts.Backgrounds != "" {
		match, ok := lo.Find(filesystem.Files(r.opts.Backgrounds), func(p string) bool {
			return strings.EqualFold(util.FileStem(p), string(kind))
		})
		if ok {
			return match
		}
	}

	if r.opts.Background != "" && filesystem.IsFile(r.opts.Background) {
		return r.opts.Background
	}
	return ""
}

// foldedMatch finds a file whose name equals target once case and diacritics are folded.
func (r *Resolver) foldedMatch(target string) mo.Option[string] {
	name := filepath.Base(target)
	for _, dir := range r.opts.MediaDirs {
		for _, p := range filesystem.Files(dir) {
			base := filepath.Base(p)
			// mutual folded subsequences are equal strings
			if fuzzy.MatchNormalizedFold(name, base) && fuzzy.MatchNormalizedFold(base, name) {
				return mo.Some(p)
			}
		}
	}
	return mo.None[string]()
}

// hosts lists the remote candidates: the song repository first, then configured fallbacks.
func (r *Resolver) hosts(s *song.Song) []string {
	hosts := append([]string{s.Repository}, r.opts.RemoteHosts...)
	return lo.Uniq(lo.Compact(hosts))
}

func (r *Resolver) remoteURL(host, file string) string {
	u := url.URL{
		Scheme: r.opts.Scheme,
		Host:   host,
		Path:   "/downloads/medias/" + file,
	}
	return u.String()
}
