// Package buffer provides the fixed-capacity buffers used on and
// around the real-time audio path.
//
// Two types live here:
//
//   - Window: a sliding window over the most recent audio samples,
//     written and read by the same goroutine (the analyzer). It never
//     allocates after construction.
//
//   - SPSC: a single-producer/single-consumer bounded queue with
//     atomic indices. It is the only structure shared between the
//     real-time domain and the decision domain: the producer side
//     never blocks, never locks, and never allocates.
package buffer
