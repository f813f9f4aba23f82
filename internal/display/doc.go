// Package display provides the gateway's display hooks: a log notifier
// and a Bubble Tea terminal monitor modelled on the gateway's front panel
// (client count and address in the top bar, the newest two frames below,
// each as a header row and a data row).
package display
