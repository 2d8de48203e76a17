// dxbc2spv recompiles a DXBC shader blob into a SPIR-V module.
package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gogpu/vkd3d"
)

func main() {
	var output string
	var stripDebug bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "dxbc2spv [flags] input.dxbc",
		Short: "Recompile a DXBC shader into a SPIR-V module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if verbose {
				log.SetLevel(log.DebugLevel)
			}

			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			result, err := vkd3d.CompileShader(blob, vkd3d.CompileOptions{
				StripDebug: stripDebug,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".dxbc") + ".spv"
			}
			if err := os.WriteFile(output, result.Code, 0o644); err != nil {
				return err
			}

			log.Debugf("wrote %d bytes to %s", len(result.Code), output)
			for _, counter := range result.UAVCounters {
				fmt.Printf("uav counter u%d -> set %d binding %d\n",
					counter.Register, counter.Set, counter.Binding)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .spv suffix)")
	cmd.Flags().BoolVar(&stripDebug, "strip-debug", false, "drop debug names from the module")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
