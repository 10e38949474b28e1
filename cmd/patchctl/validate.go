package main

import (
	"github.com/spf13/cobra"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/patch"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load every patch file and report bad or unresolved entries",
		Args:  cobra.NoArgs,
		Run:   runValidate,
	}
	rootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, _ []string) {
	patchCfg := config.GetPatch()
	pl := newPipeline(patch.Options{FilePrefix: patchCfg.FilePrefix})

	_, stats, err := patch.LoadDirectory(patchCfg.Directory, patchCfg.FilePrefix, pl.dir)
	checkErrorOrQuit(err, "load patches")
	printYAML(stats)

	if stats.FailedFiles > 0 || stats.Invalid > 0 || stats.Unresolved > 0 {
		showMsgAndQuit("%d failed files, %d invalid entries, %d unresolved entries", stats.FailedFiles, stats.Invalid, stats.Unresolved)
	}
	showMsg("%d entries in %d files are valid", stats.Entries, stats.Files)
}
