package naming

import "time"

// CanonicalName builds "<prefix>_<YYYYMMDD_HHMMSS><ext>". ext keeps the
// source's spelling (".wav" or ".WAV").
//
//	CanonicalName("OLY_30020-1", 2019-05-01 06:00:00, ".wav") = "OLY_30020-1_20190501_060000.wav"
func CanonicalName(prefix string, ts time.Time, ext string) string {
	stamp := ts.Format(TimestampLayout)
	if prefix == "" {
		return stamp + ext
	}
	return prefix + "_" + stamp + ext
}
