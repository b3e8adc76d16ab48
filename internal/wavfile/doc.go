// Package wavfile finds WAV recordings in a directory tree and reads the
// little metadata the tools need from them: header validity, duration, and
// the recorder serial number stored by Wildlife Acoustics units in a "wamd"
// chunk or by GUANO-aware software in a "guan" chunk.
//
// Audio samples are never decoded.
package wavfile
