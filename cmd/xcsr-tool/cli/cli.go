// Package cli provides commands for xcsr-tool
package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcsr/cryptoprov"
	"github.com/effective-security/xcsr/x/ctl"
	"github.com/effective-security/xlog"
	"golang.org/x/net/context"

	// register providers
	_ "github.com/effective-security/xcsr/cryptoprov/awskmscrypto"
	_ "github.com/effective-security/xcsr/cryptoprov/gcpkmscrypto"
	_ "github.com/effective-security/xcsr/cryptoprov/inmemcrypto"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcsr", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version  ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Cfg      string          `help:"Location of the crypto provider config file, in-memory provider is used if not set" type:"path"`
	Crypto   []string        `help:"Location of additional crypto provider config files" type:"path"`
	Debug    bool            `short:"D" help:"Enable debug mode"`
	LogLevel string          `short:"l" help:"Set the logging level (debug|info|warn|error)" default:"error"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer

	ctx    context.Context
	crypto *cryptoprov.Crypto
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		val := strings.TrimLeft(c.LogLevel, "=")
		l, err := xlog.ParseLevel(strings.ToUpper(val))
		if err != nil {
			return errors.WithStack(err)
		}
		xlog.SetGlobalLogLevel(l)
	}

	return nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) error {
	return ctl.WriteJSON(c.Writer(), value)
}

// CryptoProv loads Crypto provider
func (c *Cli) CryptoProv() (*cryptoprov.Crypto, error) {
	if c.crypto != nil {
		return c.crypto, nil
	}

	var err error
	c.crypto, err = cryptoprov.Load(c.Cfg, c.Crypto)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to initialize crypto providers")
	}
	logger.KV(xlog.DEBUG, "cfg", c.Cfg, "default", c.crypto.Default().Manufacturer())

	return c.crypto, nil
}

// Close releases loaded providers
func (c *Cli) Close() error {
	if c.crypto == nil {
		return nil
	}
	err := c.crypto.Close()
	c.crypto = nil
	return err
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		b, err := io.ReadAll(c.Reader())
		return b, errors.WithStack(err)
	}
	b, err := os.ReadFile(filename)
	return b, errors.WithStack(err)
}
