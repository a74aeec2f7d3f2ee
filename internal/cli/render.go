package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/clock"

	"scale-dashboard/internal/api"
	"scale-dashboard/internal/config"
	"scale-dashboard/internal/jobs"
	"scale-dashboard/internal/nodes"
	"scale-dashboard/internal/timefmt"
	"scale-dashboard/internal/upstream"
)

// Output formats for render.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func newRenderCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render saved Scale payloads",
		Long: `Render job or node payloads saved from the Scale API.

Each subcommand reads a file, or stdin when the argument is "-" or
omitted, and prints the display record.`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", OutputJSON, "output format (json|yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "job [file|-]",
		Short: "Render one job-detail payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, output, renderJob)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "jobs [file|-]",
		Short: "Render an array of job-detail payloads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, output, renderJobs)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "nodes [file|-]",
		Short: "Render the health summary of a node list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, output, renderNodes)
		},
	})

	return cmd
}

type renderFunc func(cfg *config.Config, data []byte) (any, error)

func runRender(cmd *cobra.Command, args []string, output string, render renderFunc) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	v, err := render(cfg, data)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), output, v)
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

func builder(cfg *config.Config) *jobs.DetailBuilder {
	return jobs.NewDetailBuilder(timefmt.NewFormatter(cfg.Display.DateFormat))
}

func renderJob(cfg *config.Config, data []byte) (any, error) {
	p, err := jobs.Decode(data)
	if err != nil {
		return nil, err
	}
	rec := builder(cfg).BuildOne(p)
	return api.NewJobView(rec, jobs.Degraded(p, rec), clock.RealClock{}), nil
}

func renderJobs(cfg *config.Config, data []byte) (any, error) {
	ps, err := jobs.DecodeList(data)
	if err != nil {
		return nil, err
	}
	return builder(cfg).BuildMany(ps), nil
}

func renderNodes(cfg *config.Config, data []byte) (any, error) {
	list, err := upstream.DecodeNodes(data)
	if err != nil {
		return nil, err
	}
	summary := nodes.Summarize(list)
	summary.Options = nodes.Options{
		NodeType:        cfg.Display.NodeType,
		ShowDescription: cfg.Display.ShowDescription,
	}
	return summary, nil
}

// writeOutput prints v in the requested format. YAML keys follow the JSON
// field names.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
