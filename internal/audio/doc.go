// Package audio plays the overlay reveal cue. It uses the beep library to
// decode WAV, OGG, and MP3 files and plays them with volume control.
package audio
