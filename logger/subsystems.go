package logger

// SubsystemTags enumerates the canonical tag used by Get for each
// subsystem's logger, so a debug-level specifier like "PEER=debug" in
// config always names a real, spelled-consistently subsystem.
var SubsystemTags = struct {
	NYXD string
	PEER string
	SYNC string
	ADXR string
	CONN string
	CONF string
	CHCF string
	BCHN string
	MEMP string
	LOCK string
}{
	NYXD: "NYXD",
	PEER: "PEER",
	SYNC: "SYNC",
	ADXR: "ADXR",
	CONN: "CONN",
	CONF: "CONF",
	CHCF: "CHCF",
	BCHN: "BCHN",
	MEMP: "MEMP",
	LOCK: "LOCK",
}
