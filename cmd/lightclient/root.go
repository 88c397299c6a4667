package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bomba-atomica/atomica-sub003/config"
	"github.com/bomba-atomica/atomica-sub003/crypto"
	"github.com/bomba-atomica/atomica-sub003/light"
	"github.com/bomba-atomica/atomica-sub003/light/store"
	"github.com/bomba-atomica/atomica-sub003/log"
)

// app carries the resolved configuration shared by every subcommand.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *log.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), stdin: stdin, stdout: stdout, stderr: stderr}
	def := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "lightclient",
		Short:         "Verify ledger summaries and inclusion proofs from a trusted waypoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.String("datadir", def.DataDir, "data directory for the database and config.toml")
	pf.String("db-backend", def.DBBackend, "store backend (leveldb, memory)")
	pf.Int("db-cache", def.DBCache, "leveldb cache size in MiB")
	pf.Int("db-handles", def.DBHandles, "leveldb open file handles")
	pf.String("curve-backend", def.CurveBackend, "BLS12-381 backend (gnark, or blst when built with -tags blst)")
	pf.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	pf.String("log-format", def.LogFormat, "log format (text, json)")
	pf.Duration("max-update-age", def.MaxUpdateAge, "reject updates whose timestamp is older than this (0 disables)")

	cmd.AddCommand(
		a.initCmd(),
		a.updateCmd(),
		a.statusCmd(),
		a.verifyTxCmd(),
		a.verifyStateCmd(),
		a.runCmd(),
		versionCmd(),
	)
	return cmd
}

// load resolves flags, environment and config file into a.cfg and installs
// the configured logger as the process default.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(a.stderr)
	if err != nil {
		return err
	}
	log.SetDefault(logger)
	a.cfg = cfg
	a.log = logger.Module("cli")
	return nil
}

// storeCloser is a light.Store that owns a database handle.
type storeCloser interface {
	light.Store
	Close() error
}

func (a *app) openStore() (storeCloser, error) {
	switch a.cfg.DBBackend {
	case config.DBMemory:
		return store.NewMemory(), nil
	default:
		if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create datadir")
		}
		s, err := store.OpenLevelDB(a.cfg.DBPath(), a.cfg.DBCache, a.cfg.DBHandles)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// openClient returns a client over the configured store. When restore is set
// the persisted trusted state is loaded; a missing state is not an error and
// leaves the client uninitialized.
func (a *app) openClient(restore bool, metrics *light.Metrics) (*light.Client, storeCloser, error) {
	backend, err := crypto.CurveBackendByName(a.cfg.CurveBackend)
	if err != nil {
		return nil, nil, err
	}
	s, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	c := light.NewClient(
		light.WithCurveBackend(backend),
		light.WithKeyCache(light.NewKeyCache(light.DefaultKeyCacheSize)),
		light.WithLogger(log.Default().Module("light")),
		light.WithMetrics(metrics),
		light.WithStore(s),
		light.WithMaxUpdateAge(a.cfg.MaxUpdateAge),
	)
	if restore {
		if err := c.Restore(); err != nil && !errors.Is(err, light.ErrNoTrustedState) {
			s.Close()
			return nil, nil, errors.Wrap(err, "restore trusted state")
		}
	}
	return c, s, nil
}

// requireInitialized opens a restored client and fails if no waypoint was
// ever trusted.
func (a *app) requireInitialized() (*light.Client, storeCloser, error) {
	c, s, err := a.openClient(true, nil)
	if err != nil {
		return nil, nil, err
	}
	if !c.Initialized() {
		s.Close()
		return nil, nil, errors.Wrap(light.ErrNotInitialized, "run init first")
	}
	return c, s, nil
}

// readFile reads path, or stdin when path is "-".
func (a *app) readFile(path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(a.stdin)
		return b, errors.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	return b, errors.Wrapf(err, "read %s", path)
}

func (a *app) readJSON(path string, v any) error {
	b, err := a.readFile(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(b, v), "decode %s", path)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseHash decodes a 0x-prefixed 32-byte hex string.
func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "hash %q", s)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("hash %q: got %d bytes, want %d", s, len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}
