// Package lifecycle owns one job from pickup to terminal state. The
// controller marks the job processing, runs the matching agent crew,
// normalizes the output, persists results and usage, and settles the job as
// completed or failed. Empty crew output is a failure with a fixed reason,
// and a notification fires exactly once per terminal state.
package lifecycle
