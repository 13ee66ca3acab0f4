package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonathan/proposal-customizer/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a JSON Schema",
	Long: fmt.Sprintf(`Validates a JSON file against a JSON Schema. --schema is either a schema file
path or the name of an embedded schema: %v`, schemas.EmbeddedNames()),
	RunE: runValidate,
}

var (
	schemaPath string
	jsonPath   string
)

func init() {
	validateCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "Path or embedded name of the JSON Schema (required)")
	validateCmd.Flags().StringVarP(&jsonPath, "json", "j", "", "Path to the JSON file to validate (required)")

	if err := validateCmd.MarkFlagRequired("schema"); err != nil {
		panic(fmt.Sprintf("failed to mark schema flag as required: %v", err))
	}
	if err := validateCmd.MarkFlagRequired("json"); err != nil {
		panic(fmt.Sprintf("failed to mark json flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	var err error
	if slices.Contains(schemas.EmbeddedNames(), schemaPath) {
		var data []byte
		data, err = os.ReadFile(jsonPath)
		if err != nil {
			return fmt.Errorf("failed to read JSON file: %w", err)
		}
		err = schemas.ValidateEmbedded(schemaPath, data)
	} else {
		err = schemas.ValidateJSON(schemaPath, jsonPath)
	}

	if err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Validation failed:") //nolint:errcheck
			for _, fieldErr := range validationErr.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s: %s\n", fieldErr.Field, fieldErr.Message) //nolint:errcheck
			}
			return fmt.Errorf("validation failed")
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Validation passed") //nolint:errcheck
	return nil
}
