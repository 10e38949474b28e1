package consts

import "time"

// Tunable Options
const (
	// For Patch Files
	// PATCH_FILE_PREFIX is the default file name prefix of patch definition files
	PATCH_FILE_PREFIX = "PatchData"
	// PATCH_FILE_EXT is the extension of plain patch definition files
	PATCH_FILE_EXT = ".json"
	// PATCH_FILE_MAX_SIZE is the largest patch file (after decompression) the loader accepts
	PATCH_FILE_MAX_SIZE = 64 * 1024 * 1024

	// For Patch Application
	// PATCH_APPLY_WARN_THRESHOLD is the duration above which a single patch application is reported by opmon
	PATCH_APPLY_WARN_THRESHOLD = time.Millisecond * 10
	// PATCH_RUN_WARN_THRESHOLD is the duration above which a full scheduling run is reported by opmon
	PATCH_RUN_WARN_THRESHOLD = time.Second

	// For Ledger
	// LEDGER_KEY_PREFIX is the key prefix of patch ledger records
	LEDGER_KEY_PREFIX = "patch/"
	// LEDGER_WARN_THRESHOLD is the duration above which a ledger write is reported by opmon
	LEDGER_WARN_THRESHOLD = time.Millisecond * 100
	// KVDB_RECONNECT_RETRIES is how many times KVDB tries to reopen a lost engine before failing queued operations
	KVDB_RECONNECT_RETRIES = 3
	// KVDB_RECONNECT_INTERVAL is the pause between two reopen attempts
	KVDB_RECONNECT_INTERVAL = time.Second

	// For Operation Monitor
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_PATCH_APPLY prints every successful patch application
	DEBUG_PATCH_APPLY = true
	// DEBUG_PATCH_COERCE prints value coercion steps
	DEBUG_PATCH_COERCE = false
	// DEBUG_PROTOTYPE_LOAD prints prototype construction steps of the reference loader
	DEBUG_PROTOTYPE_LOAD = false
)
