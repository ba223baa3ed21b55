// Command pcap-extract recovers GRIP telemetry from a packet capture and
// appends it to cache files the monitor can poll. UDP payloads on the EPM
// port are classified by their telemetry identifier; anything that is not a
// well-formed realtime science or housekeeping packet is counted and
// skipped.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/grip"
)

var (
	pcapFile = flag.String("pcap", "", "input PCAP file")
	outRoot  = flag.String("o", "", "output cache file root")
	udpPort  = flag.Int("port", epm.DefaultPort, "UDP port carrying EPM traffic")
	verbose  = flag.Bool("v", false, "log every skipped payload")
)

func main() {
	flag.Parse()
	if *pcapFile == "" || *outRoot == "" {
		flag.Usage()
		os.Exit(2)
	}

	stats, err := extract(*pcapFile, *outRoot, uint16(*udpPort))
	if err != nil {
		log.Fatalf("extract failed: %v", err)
	}
	log.Printf("done: %d realtime, %d housekeeping, %d skipped of %d UDP payloads",
		stats.realtime, stats.housekeeping, stats.skipped, stats.payloads)
}

type extractStats struct {
	payloads     int
	realtime     int
	housekeeping int
	skipped      int
}

func extract(pcapPath, outRoot string, port uint16) (extractStats, error) {
	var stats extractStats

	f, err := os.Open(pcapPath)
	if err != nil {
		return stats, fmt.Errorf("open PCAP file: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return stats, fmt.Errorf("read PCAP header: %w", err)
	}

	rtOut, err := os.OpenFile(grip.RealtimeCachePath(outRoot), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return stats, err
	}
	defer rtOut.Close()
	hkOut, err := os.OpenFile(grip.HousekeepingCachePath(outRoot), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return stats, err
	}
	defer hkOut.Close()

	source := gopacket.NewPacketSource(r, r.LinkType())
	for packet := range source.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || (uint16(udp.DstPort) != port && uint16(udp.SrcPort) != port) {
			continue
		}
		payload := udp.Payload
		if len(payload) == 0 {
			continue
		}
		stats.payloads++

		switch classify(payload) {
		case epm.TMRealtimeScience:
			if _, err := rtOut.Write(payload[:epm.RTPacketBytes]); err != nil {
				return stats, err
			}
			stats.realtime++
		case epm.TMHousekeeping:
			if _, err := hkOut.Write(payload[:epm.HKPacketBytes]); err != nil {
				return stats, err
			}
			stats.housekeeping++
		default:
			stats.skipped++
			if *verbose {
				log.Printf("skipping %d byte payload", len(payload))
			}
		}
	}
	return stats, nil
}

// classify decides which cache file a UDP payload belongs to. The zero
// TMIdentifier means neither: connect and alive frames carry no telemetry
// header and decode fails for anything damaged or truncated.
func classify(payload []byte) epm.TMIdentifier {
	h, err := epm.DecodeTelemetryHeader(payload)
	if err != nil {
		return 0
	}
	switch {
	case h.TMIdentifier == epm.TMRealtimeScience && len(payload) >= epm.RTPacketBytes:
		if _, err := epm.DecodeRealtimeData(payload); err != nil {
			return 0
		}
		return epm.TMRealtimeScience
	case h.TMIdentifier == epm.TMHousekeeping && len(payload) >= epm.HKPacketBytes:
		if _, err := epm.DecodeHousekeeping(payload); err != nil {
			return 0
		}
		return epm.TMHousekeeping
	}
	return 0
}
