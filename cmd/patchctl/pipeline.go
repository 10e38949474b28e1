package main

import (
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/patch"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

// pipeline is a prototype directory with the patch manager hooked into its loader
type pipeline struct {
	dir    *prototype.Directory
	loader *prototype.Loader
	mgr    *patch.Manager
}

// newPipeline reads the prototype definitions and declares every prototype name,
// nothing is constructed yet
func newPipeline(opts patch.Options) *pipeline {
	patchCfg := config.GetPatch()
	protoCfg := config.GetPrototype()

	dir := prototype.NewDirectory()
	mgr := patch.NewManager(dir, patchCfg.Directory, opts)
	loader := prototype.NewLoader(dir, mgr.Coercer(), mgr)
	checkErrorOrQuit(loader.LoadDirectory(protoCfg.Directory), "load prototype definitions")
	checkErrorOrQuit(loader.Prepare(), "prepare prototypes")
	return &pipeline{dir: dir, loader: loader, mgr: mgr}
}

func (pl *pipeline) prototype(name string) *prototype.Prototype {
	return pl.dir.Prototype(pl.dir.PrototypeRefByName(name))
}
