package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"deadticker/internal/extract"
)

type subjectOut struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Chain string `json:"chain,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "extract <text>",
		Short: "Print the subject found in a mention text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := extract.Subject(strings.Join(args, " "))
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(subjectOut{Kind: s.Kind.String(), Value: s.Value, Chain: string(s.ChainHint)})
		},
	}
	RootCmd.AddCommand(cmd)
}
