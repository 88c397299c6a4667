package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bomba-atomica/atomica-sub003/accumulator"
	"github.com/bomba-atomica/atomica-sub003/light"
	"github.com/bomba-atomica/atomica-sub003/smt"
)

// errProofRejected is returned by the verify commands so that a failed
// check yields a non-zero exit code.
var errProofRejected = errors.New("proof rejected")

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <waypoint.json>",
		Short: "Trust a waypoint and persist it as the initial state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w light.Waypoint
			if err := a.readJSON(args[0], &w); err != nil {
				return err
			}
			c, s, err := a.openClient(true, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := c.Initialize(&w); err != nil {
				return errors.Wrap(err, "initialize")
			}
			a.log.Info("waypoint trusted", "version", w.Version, "epoch", w.Epoch, "datadir", a.cfg.DataDir)
			return a.printJSON(newStatus(c))
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "update <update>...",
		Short: "Verify signed updates and advance the trusted state",
		Long: `Verify signed updates and advance the trusted state.

Each argument is a file holding one update, JSON by default or canonical RLP
with --rlp. Updates are applied in order; the first rejection stops the run
and leaves the state at the last accepted update.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := a.requireInitialized()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, path := range args {
				u, err := a.readUpdate(path, raw)
				if err != nil {
					return err
				}
				if err := c.UpdateState(u); err != nil {
					return errors.Wrapf(err, "update %s", path)
				}
				st := c.TrustedState()
				fmt.Fprintf(a.stdout, "accepted version=%d epoch=%d stateRoot=%s\n", st.Version, st.Epoch, st.StateRoot.Hex())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "rlp", false, "decode updates as canonical RLP instead of JSON")
	return cmd
}

func (a *app) readUpdate(path string, raw bool) (*light.Update, error) {
	if !raw {
		u := new(light.Update)
		if err := a.readJSON(path, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	b, err := a.readFile(path)
	if err != nil {
		return nil, err
	}
	u, err := light.DecodeUpdate(b)
	return u, errors.Wrapf(err, "decode %s", path)
}

// status is the JSON document printed by init and status.
type status struct {
	Initialized bool                `json:"initialized"`
	State       *light.TrustedState `json:"trustedState,omitempty"`
	Epochs      []uint64            `json:"epochs"`
	Validators  int                 `json:"validators,omitempty"`
}

func newStatus(c *light.Client) *status {
	st := &status{
		Initialized: c.Initialized(),
		State:       c.TrustedState(),
		Epochs:      c.Epochs(),
	}
	if st.State != nil {
		if es, ok := c.Epoch(st.State.Epoch); ok {
			st.Validators = len(es.Validators)
		}
	}
	if st.Epochs == nil {
		st.Epochs = []uint64{}
	}
	return st
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the trusted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := a.openClient(true, nil)
			if err != nil {
				return err
			}
			defer s.Close()
			return a.printJSON(newStatus(c))
		},
	}
}

func (a *app) verifyTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-tx <leaf-hash> <proof.json>",
		Short: "Check an accumulator inclusion proof against the trusted root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			leaf, err := parseHash(args[0])
			if err != nil {
				return err
			}
			proof := new(accumulator.Proof)
			if err := a.readJSON(args[1], proof); err != nil {
				return err
			}
			c, s, err := a.requireInitialized()
			if err != nil {
				return err
			}
			defer s.Close()

			return a.report(c.VerifyAccumulatorInclusion(leaf, proof))
		},
	}
}

func (a *app) verifyStateCmd() *cobra.Command {
	var valueHash string
	cmd := &cobra.Command{
		Use:   "verify-state <key> <proof.json>",
		Short: "Check a sparse Merkle proof against the trusted state root",
		Long: `Check a sparse Merkle proof against the trusted state root.

With --value-hash the proof must show the key bound to that value. Without it
the proof must show the key is absent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseHash(args[0])
			if err != nil {
				return err
			}
			var value *common.Hash
			if valueHash != "" {
				h, err := parseHash(valueHash)
				if err != nil {
					return err
				}
				value = &h
			}
			proof := new(smt.Proof)
			if err := a.readJSON(args[1], proof); err != nil {
				return err
			}
			c, s, err := a.requireInitialized()
			if err != nil {
				return err
			}
			defer s.Close()

			if value != nil {
				return a.report(c.VerifySparseInclusion(key, *value, proof))
			}
			return a.report(c.VerifyNonInclusion(key, proof))
		},
	}
	cmd.Flags().StringVar(&valueHash, "value-hash", "", "expected value hash; omit to check absence")
	return cmd
}

func (a *app) report(ok bool) error {
	if !ok {
		fmt.Fprintln(a.stdout, "invalid")
		return errProofRejected
	}
	fmt.Fprintln(a.stdout, "valid")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lightclient %s (commit %s)\n", version, commit)
		},
	}
}
