package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"easel/internal/backend"
	"easel/internal/imageproc"
	"easel/internal/job"
	"easel/internal/logging"
	"easel/internal/response"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run <job.json>",
		Short: "Run one job document against the configured backend",
		Long: "Reads a job document (the same {\"input\": {...}} envelope the daemon accepts), " +
			"submits it to the backend, waits for completion, and prints the normalized result. " +
			"Pass - to read the document from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			payload, err := readJobDocument(args[0])
			if err != nil {
				return err
			}

			settings := job.SettingsFromConfig(cfg)
			request, err := job.ParseEnvelope(payload, settings)
			if err != nil {
				return fmt.Errorf("parse job document: %w", err)
			}

			client, err := backend.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("create backend client: %w", err)
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("backend %s unreachable: %w", cfg.Backend.URL, err)
			}

			proc := imageproc.NewProcessor(cfg.Output.Format, cfg.Output.Quality)
			orchestrator := job.New(client, proc, settings, logging.NewNop())

			doc, runErr := orchestrator.Run(cmd.Context(), request)

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(doc); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			} else {
				fmt.Fprintln(out, renderResult(doc))
			}

			if outputPath != "" {
				if err := writeArtifact(doc, outputPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote artifact to %s\n", outputPath)
			}

			if runErr != nil {
				return fmt.Errorf("job did not succeed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result document as JSON")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the returned artifact bytes to a file")
	return cmd
}

func readJobDocument(source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read job document from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read job document: %w", err)
	}
	return data, nil
}

func renderResult(doc response.Document) string {
	switch v := doc.(type) {
	case response.Success:
		rows := [][]string{
			{"Status", v.Status},
			{"Prompt ID", v.PromptID},
			{"Node", v.NodeID},
			{"Filename", v.Filename},
		}
		if v.ContentType != "" {
			rows = append(rows, []string{"Content type", v.ContentType})
		}
		if v.FileSize > 0 {
			rows = append(rows, []string{"Size", strconv.Itoa(v.FileSize) + " bytes"})
		}
		if v.AudioURL != "" {
			rows = append(rows, []string{"Audio URL", v.AudioURL})
		}
		return renderTable([]string{"Field", "Value"}, rows)
	case response.Error:
		rows := [][]string{
			{"Status", "error"},
			{"Error", v.Message},
		}
		if v.PromptID != "" {
			rows = append(rows, []string{"Prompt ID", v.PromptID})
		}
		return renderTable([]string{"Field", "Value"}, rows)
	default:
		return fmt.Sprintf("%+v", doc)
	}
}

func writeArtifact(doc response.Document, path string) error {
	success, ok := doc.(response.Success)
	if !ok {
		return fmt.Errorf("no artifact to write: job failed")
	}
	if success.ImageBase64 == "" {
		return fmt.Errorf("no inline artifact in result (audio jobs return a URL)")
	}
	data, err := base64.StdEncoding.DecodeString(success.ImageBase64)
	if err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
