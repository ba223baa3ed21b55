package grip

import (
	"fmt"
	"io"

	"github.com/psyphy-data/gripmmi/internal/epm"
)

// Cache file naming. The packet relay appends raw packets back to back into
// one file per telemetry type, named from a shared root.
const (
	RealtimeCacheSuffix     = ".rt.gpk"
	HousekeepingCacheSuffix = ".hk.gpk"
)

// RealtimeCachePath returns the realtime science cache filename for root.
func RealtimeCachePath(root string) string { return root + RealtimeCacheSuffix }

// HousekeepingCachePath returns the housekeeping cache filename for root.
func HousekeepingCachePath(root string) string { return root + HousekeepingCacheSuffix }

// ReadRealtimeCache reads fixed-size realtime packet records from r,
// skipping the first skip records, and returns the decoded packets in file
// order. A partial record at the tail is left unread without error: the
// relay appends continuously and the tail will be complete on the next
// poll. Decode failures abort the read, since a corrupt record means the
// rest of the file is misaligned.
func ReadRealtimeCache(r io.Reader, skip int) ([]*epm.RealtimeData, error) {
	var packets []*epm.RealtimeData
	buf := make([]byte, epm.RTPacketBytes)
	for record := 0; ; record++ {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return packets, nil
		}
		if err != nil {
			return packets, fmt.Errorf("read realtime cache record %d: %w", record, err)
		}
		if record < skip {
			continue
		}
		rt, err := epm.DecodeRealtimeData(buf)
		if err != nil {
			return packets, fmt.Errorf("decode realtime cache record %d: %w", record, err)
		}
		packets = append(packets, rt)
	}
}

// ReadLatestHousekeeping reads housekeeping records from r and returns the
// last complete one along with the total record count. Only the newest
// record matters: housekeeping carries current status, not a time series.
func ReadLatestHousekeeping(r io.Reader) (*epm.HousekeepingRecord, int, error) {
	var latest *epm.HousekeepingRecord
	count := 0
	buf := make([]byte, epm.HKPacketBytes)
	for {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return latest, count, nil
		}
		if err != nil {
			return latest, count, fmt.Errorf("read housekeeping cache record %d: %w", count, err)
		}
		hk, err := epm.DecodeHousekeeping(buf)
		if err != nil {
			return latest, count, fmt.Errorf("decode housekeeping cache record %d: %w", count, err)
		}
		latest = hk
		count++
	}
}
