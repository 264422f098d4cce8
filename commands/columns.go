package commands

import (
	"github.com/penwyp/go-solis-viewer/internal/application/viewer"
	"github.com/penwyp/go-solis-viewer/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var columnsOutput string

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the columns of one day of the log",
	Long: `Filter the log to one day and list every column with how many of its
values are numeric, the numeric range and the last logged value.

Use this to find the column names for a figure configuration.`,
	RunE:          runColumns,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	columnsCmd.Flags().StringVarP(&columnsOutput, "output", "o", "table",
		"Output format (table, json)")
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(settings); err != nil {
		return err
	}
	if err := requireInput(settings); err != nil {
		return err
	}

	f, err := formatter.New(settings.GetString("output"))
	if err != nil {
		return err
	}

	config := &viewer.Config{
		Source:        expandPath(settings.GetString("csv")),
		Day:           settings.GetString("day"),
		DateMarker:    settings.GetString("date-marker"),
		ExcludeMarker: settings.GetString("exclude"),
		Timezone:      settings.GetString("timezone"),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	pipeline, err := viewer.NewPipeline(config, nil)
	if err != nil {
		return err
	}
	table, _, _, err := pipeline.Load()
	if err != nil {
		return err
	}

	return f.Format(cmd.OutOrStdout(), formatter.Report{
		Source:  config.Source,
		Day:     config.Day,
		Rows:    table.Len(),
		Columns: formatter.Summarize(table),
	})
}
