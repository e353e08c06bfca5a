package commands

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Capture IR or RF codes from a remote",
	}

	cmd.AddCommand(learnIRCmd())
	cmd.AddCommand(learnRFCmd())

	return cmd
}

func learnIRCmd() *cobra.Command {
	var name string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ir",
		Short: "Capture an infrared code",
		Long: "Arms IR capture on the target RM device and polls until a code " +
			"arrives. Point the remote at the device and press the button.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			learner, dev, err := targetLearner(cmd, timeout)
			if err != nil {
				return err
			}
			defer dev.Close()

			fmt.Println("Point the remote at the device and press a button...")
			data, err := learner.LearnIR(cmd.Context())
			if err != nil {
				return err
			}

			return storeOrPrint(name, "ir", data)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "store the capture under this name")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"capture deadline (default from configuration)")

	return cmd
}

func learnRFCmd() *cobra.Command {
	var name string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rf",
		Short: "Capture an RF code (frequency sweep, then packet capture)",
		Long: "Runs the two-phase RF capture: hold the remote button down " +
			"while the device sweeps frequencies, then press it briefly once " +
			"the carrier is locked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			learner, dev, err := targetLearner(cmd, timeout)
			if err != nil {
				return err
			}
			defer dev.Close()

			fmt.Println("Hold the remote button down...")
			data, err := learner.LearnRF(cmd.Context(), func() {
				fmt.Println("Frequency locked. Release, then press the button briefly...")
			})
			if err != nil {
				return err
			}

			return storeOrPrint(name, "rf", data)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "store the capture under this name")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"capture deadline (default from configuration)")

	return cmd
}

// targetLearner authenticates the target and wraps it in a Learner with
// the configured polling parameters.
func targetLearner(cmd *cobra.Command, timeout time.Duration) (*broadlink.Learner, *broadlink.Device, error) {
	dev, err := authTarget(cmd)
	if err != nil {
		return nil, nil, err
	}

	if timeout <= 0 {
		timeout = cfg.Learn.Timeout
	}
	learner, err := broadlink.NewLearner(dev,
		broadlink.WithLearnTimeout(timeout),
		broadlink.WithPollInterval(cfg.Learn.PollInterval),
	)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return learner, dev, nil
}

// storeOrPrint persists the capture when --name is given, otherwise
// prints the hex bytes for the caller to keep.
func storeOrPrint(name, modality string, data []byte) error {
	if name == "" {
		fmt.Println(hex.EncodeToString(data))
		return nil
	}

	store, err := OpenCodeStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Put(CodeRecord{
		Name:       name,
		Modality:   modality,
		Data:       data,
		CapturedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("store code %q: %w", name, err)
	}

	fmt.Printf("Stored %s code %q (%d bytes)\n", modality, name, len(data))
	return nil
}
