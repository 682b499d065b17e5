package apt

const (
	// SyncLength is the number of samples in a sync marker at 4160 samples/s.
	SyncLength = 40
	// SyncThreshold is the number of agreeing bits needed to accept a marker.
	SyncThreshold = 36
)

type Marker int

const (
	MarkerA Marker = iota
	MarkerB
)

// Markers names each sync marker after the image channel that follows it.
var Markers = map[Marker]string{
	MarkerA: "Sync A (visible)",
	MarkerB: "Sync B (infrared)",
}

// SyncA precedes channel A: seven 1040 Hz pulses.
var SyncA = [SyncLength]bool{
	false, false, false, false, // start
	true, true, false, false,
	true, true, false, false,
	true, true, false, false,
	true, true, false, false,
	true, true, false, false,
	true, true, false, false,
	true, true, false, false,
	false, false, false, false, // tail
	false, false, false, false,
}

// SyncB precedes channel B: seven 832 Hz pulses.
var SyncB = [SyncLength]bool{
	false, false, false, false, // start
	true, true, true, false, false,
	true, true, true, false, false,
	true, true, true, false, false,
	true, true, true, false, false,
	true, true, true, false, false,
	true, true, true, false, false,
	true, true, true, false, false,
	false, // tail
}

// Correlate counts how many samples of window, oldest first, agree with pattern once sliced at
// half of twice the average level. A sample that normalizes to NaN agrees with nothing.
func Correlate(window *[SyncLength]float32, avgLevel float32, pattern *[SyncLength]bool) int {
	ref := avgLevel * 2
	count := 0
	for i, v := range window {
		level := v / ref
		if (level > 0.5 && pattern[i]) || (level <= 0.5 && !pattern[i]) {
			count++
		}
	}
	return count
}
