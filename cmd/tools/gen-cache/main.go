// Command gen-cache generates synthetic packet cache files for testing the
// monitor without a live telemetry relay. It writes <root>.rt.gpk and
// <root>.hk.gpk containing encoded realtime science and housekeeping
// packets with sinusoidal motion and forces.
package main

import (
	"flag"
	"log"
	"math"
	"os"

	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

var (
	root    = flag.String("o", "sample", "cache file root (writes <root>.rt.gpk and <root>.hk.gpk)")
	packets = flag.Int("n", 120, "number of realtime packets (10 samples each)")
	start   = flag.Float64("t0", 1000.0, "timestamp of the first packet in seconds")
	gapAt   = flag.Int("gap", 0, "insert a 2 second stream gap before packet N (0 disables)")
)

func main() {
	flag.Parse()

	if err := writeRealtime(); err != nil {
		log.Fatalf("realtime cache: %v", err)
	}
	if err := writeHousekeeping(); err != nil {
		log.Fatalf("housekeeping cache: %v", err)
	}
	log.Printf("wrote %s and %s", grip.RealtimeCachePath(*root), grip.HousekeepingCachePath(*root))
}

func writeRealtime() error {
	f, err := os.Create(grip.RealtimeCachePath(*root))
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, epm.RTPacketBytes)
	t := *start
	tick := uint32(1)
	for p := 0; p < *packets; p++ {
		if *gapAt > 0 && p == *gapAt {
			t += 2.0
			tick += 2000
		}
		t += epm.RTSlicesPerPacket * epm.RTDefaultSecondsPerSlice
		tick += epm.RTSlicesPerPacket * uint32(epm.RTDefaultSecondsPerSlice/epm.RTSecondsPerTick)

		rt := &epm.RealtimeData{
			AcquisitionID: 1,
			RTPacketCount: uint32(p + 1),
		}
		for i := range rt.Slices {
			fillSlice(&rt.Slices[i], t, tick, i)
		}

		coarse := uint32(t)
		fine := uint16((t - float64(coarse)) * 10000.0)
		h := epm.RealtimeHeader(uint16(p+1), coarse, fine)
		if err := epm.EncodeRealtimePacket(buf, h, rt); err != nil {
			return err
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// fillSlice writes a plausible subject movement into one slice: a slow
// circular sweep of the manipulandum with a grip squeeze on top.
func fillSlice(s *epm.RealtimeSlice, packetTime float64, packetTick uint32, i int) {
	back := float64(epm.RTSlicesPerPacket-1-i) * epm.RTDefaultSecondsPerSlice
	t := packetTime - back
	phase := 2 * math.Pi * t / 10.0

	s.PoseTick = packetTick - uint32(back/epm.RTSecondsPerTick)
	s.AnalogTick = s.PoseTick
	s.Position = vecmath.Vector3{
		100 * math.Cos(phase) * epm.PositionUnitsPerMM,
		250 * epm.PositionUnitsPerMM,
		100 * math.Sin(phase) * epm.PositionUnitsPerMM,
	}
	s.Orientation = vecmath.QuaternionFromAxisAngleDegrees(10*math.Sin(phase), vecmath.IVector)
	s.MarkerVisibility = [2]uint32{0x000FFFFF, 0x000FFFFF}
	s.Visibility = 0x01

	squeeze := 2.0 + math.Abs(math.Sin(phase))
	s.FT[0].Force = vecmath.Vector3{-squeeze, 0.5, 2.0}
	s.FT[1].Force = vecmath.Vector3{squeeze, 0.5, 2.0}
	s.FT[0].Torque = vecmath.Vector3{0, 0.02, -0.01}
	s.FT[1].Torque = vecmath.Vector3{0, -0.02, 0.01}
	s.Acceleration = vecmath.Vector3{0, -1.0, 0.1 * math.Sin(phase)}
}

func writeHousekeeping() error {
	f, err := os.Create(grip.HousekeepingCachePath(*root))
	if err != nil {
		return err
	}
	defer f.Close()

	end := *start + float64(*packets)*epm.RTSlicesPerPacket*epm.RTDefaultSecondsPerSlice
	hk := &epm.HousekeepingRecord{
		HorizontalTargetFeedback: 0x0012,
		VerticalTargetFeedback:   0x0820,
		CradleDetectors:          0x39, // 4, 6 and 8 kg cradles occupied
		User:                     1,
		Protocol:                 21,
		Task:                     11,
		Step:                     3,
		ScriptEngineStatus:       0x0001,
		MotionTrackerStatus:      2,
		CrewCameraStatus:         2,
		CrewCameraRate:           25,
		RunningBits:              0x0002,
		CPUUsage:                 34,
		MemoryUsage:              51,
		FreeDiskSpaceC:           8 << 20,
		FreeDiskSpaceD:           120 << 20,
		FreeDiskSpaceE:           64 << 20,
	}

	buf := make([]byte, epm.HKPacketBytes)
	for c := 1; c <= 3; c++ {
		coarse := uint32(end) + uint32(c)
		h := epm.HousekeepingHeader(uint16(c), coarse, 0)
		if err := epm.EncodeHousekeepingPacket(buf, h, hk); err != nil {
			return err
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
