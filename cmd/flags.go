package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats shared by the reporting commands.
var (
	reportFormats = []string{"table", "json", "yaml"}
	textFormats   = []string{"text", "json", "yaml"}
)

// addOutputFlag adds -o/--output restricted to formats.
func addOutputFlag(cmd *cobra.Command, target *string, formats []string) {
	cmd.Flags().StringVarP(target, "output", "o", formats[0], "Output format ("+strings.Join(formats, "|")+")")
	AddFlagValidation(cmd, "output", ValidateChoice(formats))
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateChoice returns a validator accepting only one of choices.
func ValidateChoice(choices []string) func(string) error {
	return func(val string) error {
		if slices.Contains(choices, val) {
			return nil
		}
		return fmt.Errorf("invalid value %q, must be one of: %s", val, strings.Join(choices, ", "))
	}
}

// ValidatePort checks a port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateFileExists checks an optional file flag value.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}

// ParseProps reads props from a YAML or JSON file. JSON is accepted because
// it is valid YAML.
func ParseProps(filename string) (map[string]any, error) {
	props := make(map[string]any)
	if filename == "" {
		return props, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("invalid data file %s: %w", filename, err)
	}
	if props == nil {
		props = make(map[string]any)
	}
	return props, nil
}

// resetFlags restores every flag of cmd and its subcommands to its default.
// Commands are package globals, so repeated in-process runs need it.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
