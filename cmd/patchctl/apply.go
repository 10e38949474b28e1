package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/patch"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

var applyArgs struct {
	mode string
	dump []string
}

func init() {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Build all prototypes with patches applied and print the report",
		Args:  cobra.NoArgs,
		Run:   runApply,
	}
	cmd.Flags().StringVar(&applyArgs.mode, "mode", "", "inline or deferred, overrides [patch].apply_mode")
	cmd.Flags().StringSliceVar(&applyArgs.dump, "dump", nil, "prototype names to print after patching")
	rootCmd.AddCommand(cmd)
}

func runApply(cmd *cobra.Command, _ []string) {
	patchCfg := config.GetPatch()
	mode := patchCfg.ApplyMode
	if applyArgs.mode != "" {
		mode = strings.ToLower(applyArgs.mode)
	}
	if mode != config.ApplyModeInline && mode != config.ApplyModeDeferred {
		showMsgAndQuit("invalid mode: %s", mode)
	}

	runID := patch.NewRunID()
	ledger, err := patch.OpenLedger(config.GetLedger(), runID)
	checkErrorOrQuit(err, "open ledger")
	if ledger != nil {
		defer ledger.Close()
	}

	pl := newPipeline(patch.Options{
		FilePrefix: patchCfg.FilePrefix,
		Deferred:   mode == config.ApplyModeDeferred,
		Ledger:     ledger,
	})
	if err := pl.mgr.Initialize(patchCfg.Enabled); err != nil {
		gwlog.Errorf("Patches are not applied: %v", err)
	}

	if mode == config.ApplyModeDeferred {
		pl.mgr.ApplyWhenInitialized(pl.dir.Initialized())
	}
	checkErrorOrQuit(pl.loader.Build(), "build prototypes")
	pl.loader.Finish()
	if mode == config.ApplyModeDeferred {
		pl.mgr.Wait()
	}
	if ledger != nil {
		ledger.Flush()
	}

	report := pl.mgr.Report()
	printYAML(map[string]interface{}{
		"run":    runID,
		"mode":   mode,
		"built":  pl.loader.Built(),
		"failed": pl.loader.Failed(),
		"report": report,
	})

	for _, name := range applyArgs.dump {
		p := pl.prototype(name)
		if p == nil {
			showMsg("prototype %s not found", name)
			continue
		}
		printYAML(map[string]interface{}{name: prototype.Dump(pl.dir, p)})
	}

	if report.Failed > 0 {
		showMsgAndQuit("%d patches failed, see %s", report.Failed, config.GetLog().File)
	}
}
