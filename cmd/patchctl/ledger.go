package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/patch"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ledger <run-id>",
		Short: "Print the recorded outcomes of an apply run",
		Args:  cobra.ExactArgs(1),
		Run:   runLedger,
	}
	rootCmd.AddCommand(cmd)
}

func runLedger(cmd *cobra.Command, args []string) {
	runID := args[0]
	ledger, err := patch.OpenLedger(config.GetLedger(), runID)
	checkErrorOrQuit(err, "open ledger")
	if ledger == nil {
		showMsgAndQuit("no ledger configured in [ledger]")
	}
	defer ledger.Close()

	records, err := ledger.Records(runID)
	checkErrorOrQuit(err, "read ledger")

	type row struct {
		Seq     int    `yaml:"seq"`
		Target  string `yaml:"target"`
		Path    string `yaml:"path"`
		Op      string `yaml:"op"`
		Applied bool   `yaml:"applied"`
		Error   string `yaml:"error,omitempty"`
		Time    string `yaml:"time"`
	}
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{
			Seq:     rec.Seq,
			Target:  rec.Target,
			Path:    rec.Path,
			Op:      rec.Operation,
			Applied: rec.Applied,
			Error:   rec.Error,
			Time:    time.Unix(0, rec.Time).Format(time.RFC3339Nano),
		}
	}
	printYAML(rows)
	showMsg("%d records in run %s", len(rows), runID)
}
