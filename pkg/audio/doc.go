// Package audio is an umbrella for the audio-path sub-packages:
//
//   - pcm: PCM sample format handling and conversion
//   - input: block capture from live, network and synthetic sources
//   - analyzer: real-time pitch, onset and tempo analysis
package audio
