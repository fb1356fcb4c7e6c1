// swgctl 协议调试与码表工具
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "swgctl",
		Short: "Soundweb frame codec, code table and send utilities",
		Long: `swgctl works with the Soundweb control protocol offline and online.

Examples:
  swgctl encode set-value SW_AMX_LEVEL 5 1000
  swgctl decode 02 84 00 84 03 02 80 05 05 1B 83 E8 6B 03
  swgctl codes convert export.txt codes.yaml
  swgctl codes resolve codes.yaml SW_AMX_LEVEL 5
  swgctl send set-value --host 10.0.0.5 SW_AMX_LEVEL 5 1000`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(encodeCmd(), decodeCmd(), codesCmd(), sendCmd())
	return root
}
