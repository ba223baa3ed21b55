package gripdb

import (
	"math"
	"testing"

	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// setupTestStore opens an in-memory database with the full schema applied.
func setupTestStore(t *testing.T) *SampleStore {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewSampleStore(db)
}

func insertTestSession(t *testing.T, store *SampleStore) *Session {
	t.Helper()
	session := &Session{CacheRoot: "GripDataFile.000"}
	if err := store.InsertSession(session); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return session
}

func testSample(tm float64) grip.Sample {
	return grip.Sample{
		Time:               tm,
		Position:           vecmath.Vector3{100, 200, -50},
		Rotations:          vecmath.Vector3{0.1, 0.2, 0.3},
		GripForce:          2.5,
		LoadForce:          vecmath.Vector3{0, 3, 4},
		LoadForceMagnitude: 5.0,
		NormalForce:        [2]float64{2.0, 3.0},
		CoP: [2]vecmath.Vector3{
			{0, 0.01, -0.02},
			{0, -0.01, 0.02},
		},
		Acceleration:           vecmath.Vector3{0, 0, 1},
		ManipulandumVisibility: grip.ManipulandumVisibleCode,
		FrameVisibility:        grip.FrameVisibleCode,
		WristVisibility:        grip.WristVisibleCode,
		PacketReceived:         grip.PacketReceivedCode,
	}
}

func TestInsertSessionGeneratesID(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)
	if session.SessionID == "" {
		t.Fatal("session ID not generated")
	}
	if session.CreatedAtNs == 0 {
		t.Fatal("created_at_ns not set")
	}

	got, err := store.GetSession(session.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.CacheRoot != "GripDataFile.000" {
		t.Errorf("cache root = %q", got.CacheRoot)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.GetSession("no-such-session"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestInsertAndQuerySamples(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	samples := []grip.Sample{testSample(100.0), testSample(100.05), testSample(100.10)}
	if err := store.InsertSamples(session.SessionID, 0, samples); err != nil {
		t.Fatalf("insert samples: %v", err)
	}

	count, err := store.SampleCount(session.SessionID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	got, err := store.SamplesInRange(session.SessionID, 100.0, 100.08, 0)
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("range returned %d samples, want 2", len(got))
	}

	want := testSample(100.0)
	if got[0] != want {
		t.Errorf("sample round trip mismatch:\n got %+v\nwant %+v", got[0], want)
	}
}

func TestSamplesInRangeLimit(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	var samples []grip.Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, testSample(100.0+0.05*float64(i)))
	}
	if err := store.InsertSamples(session.SessionID, 0, samples); err != nil {
		t.Fatalf("insert samples: %v", err)
	}

	got, err := store.SamplesInRange(session.SessionID, 0, 1e9, 4)
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("limit ignored: got %d samples", len(got))
	}
}

func TestLatestSampleSkipsGapMarkers(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	gap := grip.Sample{Time: grip.MissingDouble}
	samples := []grip.Sample{testSample(100.0), testSample(100.05), gap}
	if err := store.InsertSamples(session.SessionID, 0, samples); err != nil {
		t.Fatalf("insert samples: %v", err)
	}

	latest, err := store.LatestSample(session.SessionID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil {
		t.Fatal("latest sample missing")
	}
	if math.Abs(latest.Time-100.05) > 1e-9 {
		t.Errorf("latest time = %f, want 100.05", latest.Time)
	}
}

func TestLatestSampleEmptySession(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	latest, err := store.LatestSample(session.SessionID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Errorf("latest = %+v, want nil", latest)
	}
}

func TestDuplicateSequenceRejected(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	if err := store.InsertSamples(session.SessionID, 0, []grip.Sample{testSample(100.0)}); err != nil {
		t.Fatalf("insert samples: %v", err)
	}
	if err := store.InsertSamples(session.SessionID, 0, []grip.Sample{testSample(200.0)}); err == nil {
		t.Error("duplicate sequence number accepted")
	}
}

func TestHousekeepingUpsert(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	hk := &epm.HousekeepingRecord{
		Header:              epm.HousekeepingHeader(5, 715000000, 2500),
		User:                2,
		Protocol:            210,
		Task:                305,
		Step:                12,
		MotionTrackerStatus: 2,
		CPUUsage:            40,
		FreeDiskSpaceC:      1 << 30,
		CradleDetectors:     0b01,
	}
	if err := store.UpsertHousekeeping(session.SessionID, hk); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second upsert overwrites in place.
	hk.Header.TMCounter = 6
	hk.Step = 13
	if err := store.UpsertHousekeeping(session.SessionID, hk); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.LatestHousekeeping(session.SessionID)
	if err != nil {
		t.Fatalf("latest housekeeping: %v", err)
	}
	if got == nil {
		t.Fatal("housekeeping missing")
	}
	if got.Header.TMCounter != 6 || got.Step != 13 {
		t.Errorf("stale housekeeping: counter=%d step=%d", got.Header.TMCounter, got.Step)
	}
	if got.Task != 305 || got.FreeDiskSpaceC != 1<<30 {
		t.Errorf("fields lost: %+v", got)
	}
	if math.Abs(got.Header.Seconds()-hk.Header.Seconds()) > 1e-3 {
		t.Errorf("time = %f, want %f", got.Header.Seconds(), hk.Header.Seconds())
	}
}

func TestLatestHousekeepingEmpty(t *testing.T) {
	store := setupTestStore(t)
	session := insertTestSession(t, store)

	got, err := store.LatestHousekeeping(session.SessionID)
	if err != nil {
		t.Fatalf("latest housekeeping: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestMigrateVersion(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	if err != nil || version != 0 || dirty {
		t.Fatalf("fresh db: version=%d dirty=%v err=%v", version, dirty, err)
	}

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	version, dirty, err = db.MigrateVersion()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("after up: version=%d dirty=%v", version, dirty)
	}

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
}
