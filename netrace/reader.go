// Package netrace is the narrow collaborator boundary for trace-driven
// packet replay. The real netrace
// C library reads application-derived NoC traces with inter-packet
// dependency constraints; rewriting or cgo-binding it is explicitly out
// of scope. This package defines the same narrow interface
// the evaluator needs and one concrete, pure-Go implementation of an equivalent
// on-disk trace format, so the evaluator can be built and tested without
// linking against the original C library.
package netrace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Packet is one trace-derived packet: a source ingress, a destination
// egress, the cycle it issues, and an opaque dependency handle the
// Reader uses to track clearance.
type Packet struct {
	Cycle int64
	Src   int
	Dst   int
	id    int64 // dependency-tracking handle, opaque to callers
}

// Header describes the trace's region layout: num_cycles per region,
// used to compute the cycle_offset for a given starting region.
type Header struct {
	Regions [5]RegionInfo `yaml:"regions"`
}

// RegionInfo is one trace region's cycle span.
type RegionInfo struct {
	NumCycles int64 `yaml:"num_cycles"`
}

// Reader is the collaborator interface a netrace strategy depends on.
// Implementations must yield packets in nondecreasing Cycle order.
type Reader interface {
	// Header returns the trace's region layout.
	Header() Header
	// SeekRegion positions the read cursor at the start of region.
	SeekRegion(region int) error
	// DisableDependencies makes DependenciesCleared always return true.
	DisableDependencies()
	// Next returns the next packet in the trace, or ok=false at EOF.
	Next() (pkt Packet, ok bool)
	// DependenciesCleared reports whether pkt's predecessors have all
	// been freed via ClearAndFree.
	DependenciesCleared(pkt Packet) bool
	// ClearAndFree marks pkt complete, clearing it from any dependent
	// packet's predecessor list.
	ClearAndFree(pkt Packet)
	// Close releases any resources held by the reader.
	Close() error
}

// fileReader reads the on-disk shape of a Go-native trace file: a YAML
// header (region layout, exactly 5 regions) followed by a blank line and then one packet
// per remaining line, "<cycle> <src> <dst> <dep1>,<dep2>,...".
// Dependencies reference earlier packets by their 0-based index in the
// file.
type fileReader struct {
	header             Header
	packets            []filePacket
	cursor             int
	ignoreDependencies bool
	cleared            map[int64]bool
}

type filePacket struct {
	Packet
	deps []int64 // indices of predecessor packets, by id
}

// Open reads and parses a trace file from r in the Go-native format
// described on fileReader. It does not seek or prefetch; callers must
// call SeekRegion before Next.
func Open(r io.Reader) (Reader, error) {
	scanner := bufio.NewScanner(r)
	var headerLines []string
	sawBlank := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			sawBlank = true
			break
		}
		headerLines = append(headerLines, line)
	}
	if !sawBlank {
		return nil, fmt.Errorf("netrace: trace file missing blank separator after header")
	}

	var hdr Header
	if err := yaml.Unmarshal([]byte(strings.Join(headerLines, "\n")), &hdr); err != nil {
		return nil, fmt.Errorf("netrace: invalid header: %w", err)
	}

	var packets []filePacket
	var id int64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("netrace: malformed packet line %q", line)
		}
		cycle, err1 := strconv.ParseInt(fields[0], 10, 64)
		src, err2 := strconv.Atoi(fields[1])
		dst, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("netrace: malformed packet line %q", line)
		}
		var deps []int64
		if len(fields) >= 4 && fields[3] != "-" {
			for _, d := range strings.Split(fields[3], ",") {
				dv, err := strconv.ParseInt(d, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("netrace: malformed dependency list %q", fields[3])
				}
				deps = append(deps, dv)
			}
		}
		packets = append(packets, filePacket{
			Packet: Packet{Cycle: cycle, Src: src, Dst: dst, id: id},
			deps:   deps,
		})
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &fileReader{
		header:  hdr,
		packets: packets,
		cleared: make(map[int64]bool),
	}, nil
}

func (f *fileReader) Header() Header {
	return f.header
}

func (f *fileReader) SeekRegion(region int) error {
	if region < 0 || region > 4 {
		return fmt.Errorf("netrace: region must be 0..4, got %d", region)
	}
	var offset int64
	for i := 0; i < region; i++ {
		offset += f.header.Regions[i].NumCycles
	}
	for i, p := range f.packets {
		if p.Cycle >= offset {
			f.cursor = i
			return nil
		}
	}
	f.cursor = len(f.packets)
	return nil
}

func (f *fileReader) DisableDependencies() {
	f.ignoreDependencies = true
}

func (f *fileReader) Next() (Packet, bool) {
	if f.cursor >= len(f.packets) {
		return Packet{}, false
	}
	p := f.packets[f.cursor]
	f.cursor++
	return p.Packet, true
}

func (f *fileReader) DependenciesCleared(pkt Packet) bool {
	if f.ignoreDependencies {
		return true
	}
	fp := f.findByID(pkt.id)
	if fp == nil {
		return true
	}
	for _, dep := range fp.deps {
		if !f.cleared[dep] {
			return false
		}
	}
	return true
}

func (f *fileReader) ClearAndFree(pkt Packet) {
	f.cleared[pkt.id] = true
}

func (f *fileReader) Close() error {
	return nil
}

func (f *fileReader) findByID(id int64) *filePacket {
	for i := range f.packets {
		if f.packets[i].id == id {
			return &f.packets[i]
		}
	}
	return nil
}
