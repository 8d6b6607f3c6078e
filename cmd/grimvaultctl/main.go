// Command grimvaultctl inspects a GrimVault installation without starting the
// overlay: it validates settings, probes the window state the tracker would
// see and runs one-off price checks.
package main

func main() {
	Execute()
}
