package main

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var stdout io.Writer = os.Stdout

func printYAML(v interface{}) {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	checkErrorOrQuit(enc.Encode(v), "encode output")
	checkErrorOrQuit(enc.Close(), "encode output")
}
