package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/domain/requirements"
)

type checkOptions struct {
	Grade string
	Size  string
	JSON  bool
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Нужны ли УЗК и ППСД для марки и размера",
		Example: `  qms check --grade 12X18H10T --size "лист 25мм"
  qms check --grade 40X --size ⌀80 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			table, err := cfg.RuleTable()
			if err != nil {
				return err
			}
			rules, err := requirements.New(table)
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), rules, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Grade, "grade", "g", "", "steel grade")
	cmd.Flags().StringVarP(&opts.Size, "size", "s", "", "size, e.g. ⌀80 or \"лист 15мм\"")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("grade")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

type checkJSON struct {
	Grade      string     `json:"grade"`
	Size       string     `json:"size"`
	Ultrasonic resultJSON `json:"ultrasonic"`
	Ppsd       resultJSON `json:"ppsd"`
}

type resultJSON struct {
	Required     bool     `json:"required"`
	Reasons      []string `json:"reasons"`
	Unclassified bool     `json:"unclassified,omitempty"`
}

func toResultJSON(r requirements.Result) resultJSON {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return resultJSON{Required: r.Required, Reasons: reasons, Unclassified: r.Unclassified}
}

func runCheck(w io.Writer, rules *requirements.Rules, opts *checkOptions) error {
	us := rules.EvaluateUltrasonic(opts.Grade, opts.Size)
	pp := rules.EvaluatePpsd(opts.Grade, opts.Size)

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(checkJSON{
			Grade: opts.Grade, Size: opts.Size,
			Ultrasonic: toResultJSON(us), Ppsd: toResultJSON(pp),
		})
	}

	line := func(title string, r requirements.Result) {
		state := "не требуется"
		if r.Required {
			state = "ТРЕБУЕТСЯ"
		}
		fmt.Fprintf(w, "%s: %s\n", title, state)
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
	fmt.Fprintf(w, "%s %s\n", opts.Grade, strings.TrimSpace(opts.Size))
	line("УЗК", us)
	line("ППСД", pp)
	return nil
}
