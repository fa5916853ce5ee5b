// Command test-button is a manual test for the emulated tare button.
// Run it, then press Ctrl+Shift+T to see level changes and press edges.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-button [--mode hold|toggle]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/progressor-emu/internal/button"
	"github.com/chaz8081/progressor-emu/internal/hotkey"
)

func main() {
	mode := flag.String("mode", "hold", "hotkey mode: hold or toggle")
	flag.Parse()

	keys := []string{"ctrl", "shift", "t"}
	fmt.Printf("Listening for Ctrl+Shift+T in %q mode...\n", *mode)
	fmt.Println("Press Ctrl+C to exit.")

	line := button.NewLine()
	listener := hotkey.NewListener(keys, *mode, line)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Report each press and how long it was held.
	go func() {
		for range line.Edges() {
			start := time.Now()
			fmt.Println(">>> PRESSED")
			for line.Pressed() {
				time.Sleep(10 * time.Millisecond)
			}
			fmt.Printf("<<< RELEASED after %s\n", time.Since(start).Round(time.Millisecond))
		}
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
