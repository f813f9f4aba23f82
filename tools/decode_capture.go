//go:build ignore

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/muurk/hapcangw/internal/hapcan"
)

// Statistics tracks decoding results
type Statistics struct {
	Lines       int
	Bytes       int
	Frames      map[int]int
	BadChecksum int
	Queries     map[byte]int
	FrameTypes  map[uint16]int
}

// Decodes a captured HAPCAN byte stream (hex, any whitespace, '#'
// comments) with the gateway's framing rules and prints every frame.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: decode_capture <file|->")
		fmt.Println("Example: decode_capture tcpdump-1001.hex")
		fmt.Println("         echo 'aa 10 40 00 a5' | decode_capture -")
		os.Exit(1)
	}

	in := os.Stdin
	if os.Args[1] != "-" {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Printf("Error opening capture: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	stats := Statistics{
		Frames:     make(map[int]int),
		Queries:    make(map[byte]int),
		FrameTypes: make(map[uint16]int),
	}

	parser := hapcan.NewParser()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		stats.Lines++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}

		data, err := hex.DecodeString(line)
		if err != nil {
			fmt.Printf("line %d: %v\n", stats.Lines, err)
			continue
		}
		stats.Bytes += len(data)

		parser.Feed(data, func(frame []byte) {
			printFrame(&stats, frame)
		})
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading capture: %v\n", err)
		os.Exit(1)
	}

	printSummary(stats)
}

func printFrame(stats *Statistics, frame []byte) {
	stats.Frames[len(frame)]++

	checksum := "ok"
	if len(frame) != hapcan.QueryFrameLen && !hapcan.ValidChecksum(frame) {
		checksum = "BAD"
		stats.BadChecksum++
	}

	switch len(frame) {
	case hapcan.QueryFrameLen:
		label := "query"
		if hapcan.IsSystemQuery(frame) {
			stats.Queries[frame[2]]++
			label = "system query: " + hapcan.CommandName(frame[2])
		}
		fmt.Printf("% X  %s\n", frame, label)
	case hapcan.SystemFrameLen:
		fmt.Printf("% X  system reply 0x%02X checksum %s\n", frame, frame[2], checksum)
	case hapcan.FrameLen:
		h, _ := hapcan.FrameHeader(frame)
		stats.FrameTypes[h.Type]++
		fmt.Printf("% X  %s checksum %s\n", frame, h, checksum)
	}
}

func printSummary(stats Statistics) {
	fmt.Println()
	fmt.Println("Summary")
	fmt.Println("=======")
	fmt.Printf("Lines:        %d\n", stats.Lines)
	fmt.Printf("Bytes:        %d\n", stats.Bytes)
	fmt.Printf("Queries:      %d\n", stats.Frames[hapcan.QueryFrameLen])
	fmt.Printf("System:       %d\n", stats.Frames[hapcan.SystemFrameLen])
	fmt.Printf("CAN frames:   %d\n", stats.Frames[hapcan.FrameLen])
	fmt.Printf("Bad checksum: %d\n", stats.BadChecksum)

	if len(stats.FrameTypes) > 0 {
		fmt.Println("\nFrame types:")
		types := make([]int, 0, len(stats.FrameTypes))
		for t := range stats.FrameTypes {
			types = append(types, int(t))
		}
		sort.Ints(types)
		for _, t := range types {
			fmt.Printf("  %03X: %d\n", t, stats.FrameTypes[uint16(t)])
		}
	}

	if len(stats.Queries) > 0 {
		fmt.Println("\nSystem queries:")
		for cmd, n := range stats.Queries {
			fmt.Printf("  %s: %d\n", hapcan.CommandName(cmd), n)
		}
	}
}
