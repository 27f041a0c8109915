package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/642studio/bachejoa/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI document",
		Long:  "Print the OpenAPI 3.1 document describing every route, its access level and its rate limit.",
		Example: `  bachejoa openapi
  bachejoa openapi --base-url https://api.bachejoa.mx -o openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(openapi.Generate(baseURL), "", "  ")
			if err != nil {
				return fmt.Errorf("render openapi: %w", err)
			}
			if outputFile == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outputFile, err)
			}
			fmt.Printf("Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL advertised in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write document to file instead of stdout")

	return cmd
}
