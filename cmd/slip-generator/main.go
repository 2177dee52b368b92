package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/routingslipflow/internal/config"
	"github.com/Lllllllleong/routingslipflow/internal/register"
	"github.com/Lllllllleong/routingslipflow/internal/services"
)

var (
	configFile   string
	debugMode    bool
	outputDir    string
	templatePath string
	sheetName    string
	rowSpec      string
)

var rootCmd = &cobra.Command{
	Use:   "slip-generator",
	Short: "Generate routing slips from an incoming-document register",
	Long: `Reads an .xlsx incoming-document register and writes one filled .docx
routing slip per selected row.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate REGISTER",
	Short: "Write routing slips for register rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, reg, err := openRegister(args[0])
		if err != nil {
			return err
		}
		defer reg.Close()

		if outputDir != "" {
			settings.Output.Directory = outputDir
		}
		if templatePath != "" {
			settings.Template.Path = templatePath
		}

		generator, err := services.NewSlipGenerator(settings)
		if err != nil {
			return err
		}
		last, err := reg.LastRow()
		if err != nil {
			return err
		}
		requested, err := parseRowIDs(rowSpec, last)
		if err != nil {
			return err
		}
		rows, err := services.SelectRows(reg, generator.Extractor(), settings, requested)
		if err != nil {
			return err
		}
		tpl, err := services.LoadTemplate(settings)
		if err != nil {
			return err
		}

		summary, err := generator.GenerateToDir(cmd.Context(), rows, reg, tpl, settings.Output.Directory)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated %d routing slip(s) in %s\n", summary.Generated, summary.OutputLocation)
		if len(summary.Skipped) > 0 {
			fmt.Fprintf(out, "Skipped rows without a sender: %v\n", summary.Skipped)
		}
		for _, f := range summary.Failures {
			fmt.Fprintf(out, "Row %d failed: %s\n", f.Row, f.Error)
		}
		if len(summary.Failures) > 0 {
			return fmt.Errorf("%d row(s) failed", len(summary.Failures))
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list REGISTER",
	Short: "List the admissible rows of a register with their labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, reg, err := openRegister(args[0])
		if err != nil {
			return err
		}
		defer reg.Close()

		generator, err := services.NewSlipGenerator(settings)
		if err != nil {
			return err
		}
		rows, err := services.SelectRows(reg, generator.Extractor(), settings, nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, row := range rows {
			rec, err := generator.Extractor().Extract(reg, row)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d\t%s\n", row, generator.Namer().Label(rec))
		}
		return nil
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [PATH]",
	Short: "Write the default settings file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "settings.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		created, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", path)
		}
		return nil
	},
}

func openRegister(path string) (*config.Settings, *register.Register, error) {
	settings, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if sheetName != "" {
		settings.Register.Sheet = sheetName
	}
	reg, err := register.Open(path, register.Options{Sheet: settings.Register.Sheet})
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Register opened.", "register", path, "sheet", reg.Sheet())
	return settings, reg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a settings YAML file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&sheetName, "sheet", "", "Register worksheet (default: the active sheet)")

	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from settings)")
	generateCmd.Flags().StringVar(&templatePath, "template", "", "Path to a .docx template (default: built-in slip)")
	generateCmd.Flags().StringVar(&rowSpec, "rows", "", `Rows to generate, e.g. "5,6,9-12" (default: every admissible row)`)

	rootCmd.AddCommand(generateCmd, listCmd, initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
