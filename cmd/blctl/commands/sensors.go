package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

func sensorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sensors",
		Short: "Read the environment sensors of an RM or A1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			var out string
			if dev.Family() == broadlink.FamilyA1 {
				reading, err := dev.CheckSensorsA1(cmd.Context())
				if err != nil {
					return err
				}
				out, err = formatA1Reading(reading, outputFormat)
				if err != nil {
					return err
				}
			} else {
				reading, err := dev.CheckSensors(cmd.Context())
				if err != nil {
					return err
				}
				out, err = formatSensorReading(reading, outputFormat)
				if err != nil {
					return err
				}
			}
			fmt.Print(out)

			return nil
		},
	}
}
