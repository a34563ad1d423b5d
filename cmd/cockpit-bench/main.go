// Command cockpit-bench runs the cockpit controller on the host against
// scripted or recorded telemetry.
package main

func main() {
	Execute()
}
