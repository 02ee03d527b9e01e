package overlay

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// CommentOptions shapes the band comments scroll through, in ASS script coordinates.
type CommentOptions struct {
	Interval time.Duration
	Width    float64
	MinY     float64
	MaxY     float64
	MinSpeed float64
	MaxSpeed float64
	FontSize float64
	Rand     *rand.Rand
}

// DefaultCommentOptions scrolls comments right to left over the upper two thirds of a 1080p canvas.
func DefaultCommentOptions() CommentOptions {
	return CommentOptions{
		Interval: 25 * time.Millisecond,
		Width:    1920,
		MinY:     60,
		MaxY:     720,
		MinSpeed: 4,
		MaxSpeed: 9,
		FontSize: 40,
	}
}

type comment struct {
	x, y  float64
	speed float64
	text  string
}

// Comments animates floating comments from the right edge to the left edge.
type Comments struct {
	mu       sync.Mutex
	opts     CommentOptions
	comments []*comment
	running  bool
	stop     chan struct{}
	tick     func(text string)
}

// NewComments creates a comment manager; tick receives the rendered ASS events.
func NewComments(tick func(text string), opts CommentOptions) *Comments {
	if tick == nil {
		tick = func(string) {}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b617261))
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultCommentOptions().Interval
	}
	return &Comments{opts: opts, tick: tick}
}

// Add spawns a comment at a random height and speed.
func (c *Comments) Add(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.opts.Rand
	c.comments = append(c.comments, &comment{
		x:     c.opts.Width,
		y:     c.opts.MinY + r.Float64()*(c.opts.MaxY-c.opts.MinY),
		speed: c.opts.MinSpeed + r.Float64()*(c.opts.MaxSpeed-c.opts.MinSpeed),
		text:  text,
	})

	if !c.running {
		c.running = true
		c.stop = make(chan struct{})
		go c.loop(c.stop)
	}
}

// Len returns the number of comments on screen.
func (c *Comments) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.comments)
}

// Close stops the ticking loop and drops every comment.
func (c *Comments) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.comments = nil
	if c.running {
		close(c.stop)
		c.running = false
	}
}

func (c *Comments) loop(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		text, empty := c.advance()
		c.tick(text)
		if empty {
			return
		}
	}
}

// advance moves every comment one step and drops the ones that left the screen.
func (c *Comments) advance() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cm := range c.comments {
		cm.x -= cm.speed
	}
	c.comments = lo.Filter(c.comments, func(cm *comment, _ int) bool {
		return cm.x+c.textWidth(cm.text) > 0
	})

	if len(c.comments) == 0 {
		if c.running {
			c.running = false
			close(c.stop)
		}
		return "", true
	}
	return c.renderLocked(), false
}

func (c *Comments) textWidth(text string) float64 {
	return float64(len([]rune(text))) * c.opts.FontSize * 0.6
}

func (c *Comments) renderLocked() string {
	events := lo.Map(c.comments, func(cm *comment, _ int) string {
		return fmt.Sprintf(`{\an4\fs%.0f\bord2\pos(%.0f,%.0f)}%s`, c.opts.FontSize, cm.x, cm.y, cm.text)
	})
	return strings.Join(events, "\n")
}
