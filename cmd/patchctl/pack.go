package main

import (
	"encoding/json"
	"io/ioutil"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/protopatch/engine/patch"
)

func init() {
	cmd := &cobra.Command{
		Use:   "pack <in.json> <out.json[.zst|.sz|.deflate]>",
		Short: "Rewrite a patch file, compressed by the extension of the output",
		Args:  cobra.ExactArgs(2),
		Run:   runPack,
	}
	rootCmd.AddCommand(cmd)
}

func runPack(cmd *cobra.Command, args []string) {
	data, err := ioutil.ReadFile(args[0])
	checkErrorOrQuit(err, "read "+args[0])

	var entries []map[string]interface{}
	checkErrorOrQuit(json.Unmarshal(data, &entries), "parse "+args[0])
	checkErrorOrQuit(patch.WriteFile(args[1], entries), "write "+args[1])
	showMsg("%d entries written to %s", len(entries), args[1])
}
