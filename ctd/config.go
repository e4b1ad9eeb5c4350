package ctd

import (
	"log/slog"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// Config holds the settings of a Driver. Build one with NewConfigBuilder.
type Config struct {
	dialer    Dialer
	sampler   Sampler
	logger    *slog.Logger
	keepalive func()
	lexer     *sbe.Lexer

	commandTimeout time.Duration
	modeDeadline   time.Duration
	wakePulse      time.Duration
	settleDelay    time.Duration
	exitSettle     time.Duration
	pausePeriod    time.Duration
	ioGuard        time.Duration
	statusAttempts int
	ptsTimeout     time.Duration
	ptsoTimeout    time.Duration
	maxLineLen     int
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.keepalive == nil {
		c.keepalive = func() {}
	}
	if c.lexer == nil {
		c.lexer = sbe.Default
	}
	if c.commandTimeout == 0 {
		c.commandTimeout = 2 * time.Second
	}
	if c.modeDeadline == 0 {
		c.modeDeadline = 30 * time.Second
	}
	if c.wakePulse == 0 {
		c.wakePulse = time.Second
	}
	if c.settleDelay == 0 {
		c.settleDelay = 2 * time.Second
	}
	if c.pausePeriod == 0 {
		c.pausePeriod = time.Second
	}
	// unset derived delays follow their parent, even down to zero
	if c.exitSettle == 0 {
		c.exitSettle = c.settleDelay / 2
	}
	if c.ioGuard == 0 {
		c.ioGuard = c.pausePeriod / 20
	}
	if c.statusAttempts == 0 {
		c.statusAttempts = 3
	}
	if c.ptsTimeout == 0 {
		c.ptsTimeout = 5 * time.Second
	}
	if c.ptsoTimeout == 0 {
		c.ptsoTimeout = 65 * time.Second
	}
	if c.maxLineLen == 0 {
		c.maxLineLen = 80
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithSampler replaces the HardwareSampler built over the dialed port.
func (b *ConfigBuilder) WithSampler(s Sampler) *ConfigBuilder {
	b.config.sampler = s
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// WithKeepalive sets the liveness signal invoked on every iteration of a
// blocking loop, typically the float controller's watchdog.
func (b *ConfigBuilder) WithKeepalive(f func()) *ConfigBuilder {
	b.config.keepalive = f
	return b
}

func (b *ConfigBuilder) WithLexer(l *sbe.Lexer) *ConfigBuilder {
	b.config.lexer = l
	return b
}

// WithCommandTimeout sets how long each prompt exchange waits for "S>".
func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.commandTimeout = d
	return b
}

// WithModeDeadline bounds the retry loops that enter and leave command
// mode.
func (b *ConfigBuilder) WithModeDeadline(d time.Duration) *ConfigBuilder {
	b.config.modeDeadline = d
	return b
}

func (b *ConfigBuilder) WithWakePulse(d time.Duration) *ConfigBuilder {
	b.config.wakePulse = d
	return b
}

// WithSettleDelay sets the pause after configuration cleanup. Unless set
// with WithExitSettle, the pause after leaving command mode is half of it.
func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.settleDelay = d
	return b
}

func (b *ConfigBuilder) WithExitSettle(d time.Duration) *ConfigBuilder {
	b.config.exitSettle = d
	return b
}

// WithPausePeriod sets the wait taken for each pause marker in a command.
// Unless set with WithIOGuard, the guard between enabling I/O and sending
// is a twentieth of it.
func (b *ConfigBuilder) WithPausePeriod(d time.Duration) *ConfigBuilder {
	b.config.pausePeriod = d
	return b
}

func (b *ConfigBuilder) WithIOGuard(d time.Duration) *ConfigBuilder {
	b.config.ioGuard = d
	return b
}

func (b *ConfigBuilder) WithStatusAttempts(n int) *ConfigBuilder {
	b.config.statusAttempts = n
	return b
}

// WithSampleTimeouts sets the reply timeouts of PTS and PTSO samples.
func (b *ConfigBuilder) WithSampleTimeouts(pts, ptso time.Duration) *ConfigBuilder {
	b.config.ptsTimeout = pts
	b.config.ptsoTimeout = ptso
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
