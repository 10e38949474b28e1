package main

import (
	"fmt"
	"os"

	"github.com/xiaonanln/protopatch/engine/gwlog"
)

// exit is replaced in tests
var exit = os.Exit

func showMsgAndQuit(format string, a ...interface{}) {
	gwlog.Sync()
	fmt.Fprintf(os.Stderr, "! "+format+"\n", a...)
	exit(2)
}

func showMsg(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "> "+format+"\n", a...)
}

func checkErrorOrQuit(err error, msg string) {
	if err != nil {
		gwlog.Sync()
		fmt.Fprintf(os.Stderr, "! %s: %v\n", msg, err)
		exit(2)
	}
}
