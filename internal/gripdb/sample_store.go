package gripdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// Session identifies one monitored acquisition, tied to the cache files it
// was reconstructed from.
type Session struct {
	SessionID   string `json:"session_id"`
	CacheRoot   string `json:"cache_root"`
	CreatedAtNs int64  `json:"created_at_ns"`
}

// SampleStore provides persistence for sessions, reconstructed samples and
// the current housekeeping status.
type SampleStore struct {
	db *DB
}

// NewSampleStore creates a new SampleStore.
func NewSampleStore(db *DB) *SampleStore {
	return &SampleStore{db: db}
}

// InsertSession creates a new session row. If session.SessionID is empty, a
// new UUID is generated.
func (s *SampleStore) InsertSession(session *Session) error {
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}
	if session.CreatedAtNs == 0 {
		session.CreatedAtNs = time.Now().UnixNano()
	}

	_, err := s.db.Exec(
		`INSERT INTO grip_sessions (session_id, cache_root, created_at_ns) VALUES (?, ?, ?)`,
		session.SessionID, session.CacheRoot, session.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SampleStore) GetSession(sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		`SELECT session_id, cache_root, created_at_ns FROM grip_sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&session.SessionID, &session.CacheRoot, &session.CreatedAtNs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

const sampleColumns = `seq, time,
	pos_x, pos_y, pos_z, rot_x, rot_y, rot_z,
	grip_force, load_x, load_y, load_z, load_magnitude,
	normal_force_0, normal_force_1,
	cop0_y, cop0_z, cop1_y, cop1_z,
	acc_x, acc_y, acc_z,
	manipulandum_visibility, frame_visibility, wrist_visibility, packet_received`

// InsertSamples appends a batch of samples for a session in one
// transaction, numbering them from firstSeq. Sample sequence numbers are
// the assembler's output indices, so re-running a poll with the same range
// conflicts instead of duplicating rows.
func (s *SampleStore) InsertSamples(sessionID string, firstSeq int, samples []grip.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert samples: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO grip_samples (session_id, ` + sampleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert samples: %w", err)
	}
	defer stmt.Close()

	for i := range samples {
		sm := &samples[i]
		_, err := stmt.Exec(
			sessionID, firstSeq+i, sm.Time,
			sm.Position[vecmath.X], sm.Position[vecmath.Y], sm.Position[vecmath.Z],
			sm.Rotations[vecmath.X], sm.Rotations[vecmath.Y], sm.Rotations[vecmath.Z],
			sm.GripForce,
			sm.LoadForce[vecmath.X], sm.LoadForce[vecmath.Y], sm.LoadForce[vecmath.Z],
			sm.LoadForceMagnitude,
			sm.NormalForce[0], sm.NormalForce[1],
			sm.CoP[0][vecmath.Y], sm.CoP[0][vecmath.Z],
			sm.CoP[1][vecmath.Y], sm.CoP[1][vecmath.Z],
			sm.Acceleration[vecmath.X], sm.Acceleration[vecmath.Y], sm.Acceleration[vecmath.Z],
			sm.ManipulandumVisibility, sm.FrameVisibility, sm.WristVisibility,
			sm.PacketReceived,
		)
		if err != nil {
			return fmt.Errorf("insert sample %d: %w", firstSeq+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert samples: %w", err)
	}
	return nil
}

// SamplesInRange returns the session's samples with from <= time < to, in
// sequence order, up to limit rows (limit <= 0 means no limit). Gap
// markers carry the missing-value timestamp and are not matched by a time
// range.
func (s *SampleStore) SamplesInRange(sessionID string, from, to float64, limit int) ([]grip.Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM grip_samples
		WHERE session_id = ? AND time >= ? AND time < ? ORDER BY seq`
	args := []interface{}{sessionID, from, to}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []grip.Sample
	for rows.Next() {
		sm, _, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// LatestSample returns the newest sample with a real timestamp, or nil
// when the session has no samples yet.
func (s *SampleStore) LatestSample(sessionID string) (*grip.Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM grip_samples
		WHERE session_id = ? AND time < ? ORDER BY seq DESC LIMIT 1`
	rows, err := s.db.Query(query, sessionID, grip.MissingDouble)
	if err != nil {
		return nil, fmt.Errorf("query latest sample: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	sm, _, err := scanSample(rows)
	if err != nil {
		return nil, err
	}
	return &sm, nil
}

// SampleCount returns the number of persisted samples for a session.
func (s *SampleStore) SampleCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM grip_samples WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

func scanSample(rows *sql.Rows) (grip.Sample, int, error) {
	var sm grip.Sample
	var seq int
	err := rows.Scan(
		&seq, &sm.Time,
		&sm.Position[vecmath.X], &sm.Position[vecmath.Y], &sm.Position[vecmath.Z],
		&sm.Rotations[vecmath.X], &sm.Rotations[vecmath.Y], &sm.Rotations[vecmath.Z],
		&sm.GripForce,
		&sm.LoadForce[vecmath.X], &sm.LoadForce[vecmath.Y], &sm.LoadForce[vecmath.Z],
		&sm.LoadForceMagnitude,
		&sm.NormalForce[0], &sm.NormalForce[1],
		&sm.CoP[0][vecmath.Y], &sm.CoP[0][vecmath.Z],
		&sm.CoP[1][vecmath.Y], &sm.CoP[1][vecmath.Z],
		&sm.Acceleration[vecmath.X], &sm.Acceleration[vecmath.Y], &sm.Acceleration[vecmath.Z],
		&sm.ManipulandumVisibility, &sm.FrameVisibility, &sm.WristVisibility,
		&sm.PacketReceived,
	)
	if err != nil {
		return sm, 0, fmt.Errorf("scan sample: %w", err)
	}
	return sm, seq, nil
}

// UpsertHousekeeping overwrites the session's current housekeeping status.
func (s *SampleStore) UpsertHousekeeping(sessionID string, hk *epm.HousekeepingRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO grip_housekeeping (
			session_id, time, tm_counter,
			user, protocol, task, step,
			script_engine, io_channel, motion_tracker, crew_camera,
			camera_rate, running_bits, cpu_usage, memory_usage,
			free_disk_c, free_disk_d, free_disk_e,
			horizontal_targets, vertical_targets, tone_feedback, cradle_detectors,
			updated_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			time = excluded.time,
			tm_counter = excluded.tm_counter,
			user = excluded.user,
			protocol = excluded.protocol,
			task = excluded.task,
			step = excluded.step,
			script_engine = excluded.script_engine,
			io_channel = excluded.io_channel,
			motion_tracker = excluded.motion_tracker,
			crew_camera = excluded.crew_camera,
			camera_rate = excluded.camera_rate,
			running_bits = excluded.running_bits,
			cpu_usage = excluded.cpu_usage,
			memory_usage = excluded.memory_usage,
			free_disk_c = excluded.free_disk_c,
			free_disk_d = excluded.free_disk_d,
			free_disk_e = excluded.free_disk_e,
			horizontal_targets = excluded.horizontal_targets,
			vertical_targets = excluded.vertical_targets,
			tone_feedback = excluded.tone_feedback,
			cradle_detectors = excluded.cradle_detectors,
			updated_at_ns = excluded.updated_at_ns`,
		sessionID, hk.Header.Seconds(), hk.Header.TMCounter,
		hk.User, hk.Protocol, hk.Task, hk.Step,
		hk.ScriptEngineStatus, hk.IOChannelStatus, hk.MotionTrackerStatus, hk.CrewCameraStatus,
		hk.CrewCameraRate, hk.RunningBits, hk.CPUUsage, hk.MemoryUsage,
		hk.FreeDiskSpaceC, hk.FreeDiskSpaceD, hk.FreeDiskSpaceE,
		hk.HorizontalTargetFeedback, hk.VerticalTargetFeedback,
		hk.ToneFeedback, hk.CradleDetectors,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert housekeeping: %w", err)
	}
	return nil
}

// LatestHousekeeping returns the session's current housekeeping status, or
// nil when none has been stored yet. Only the decoded status fields are
// reconstructed; the packet headers are not persisted.
func (s *SampleStore) LatestHousekeeping(sessionID string) (*epm.HousekeepingRecord, error) {
	var hk epm.HousekeepingRecord
	var seconds float64
	err := s.db.QueryRow(`
		SELECT time, tm_counter,
			user, protocol, task, step,
			script_engine, io_channel, motion_tracker, crew_camera,
			camera_rate, running_bits, cpu_usage, memory_usage,
			free_disk_c, free_disk_d, free_disk_e,
			horizontal_targets, vertical_targets, tone_feedback, cradle_detectors
		FROM grip_housekeeping WHERE session_id = ?`, sessionID,
	).Scan(
		&seconds, &hk.Header.TMCounter,
		&hk.User, &hk.Protocol, &hk.Task, &hk.Step,
		&hk.ScriptEngineStatus, &hk.IOChannelStatus, &hk.MotionTrackerStatus, &hk.CrewCameraStatus,
		&hk.CrewCameraRate, &hk.RunningBits, &hk.CPUUsage, &hk.MemoryUsage,
		&hk.FreeDiskSpaceC, &hk.FreeDiskSpaceD, &hk.FreeDiskSpaceE,
		&hk.HorizontalTargetFeedback, &hk.VerticalTargetFeedback,
		&hk.ToneFeedback, &hk.CradleDetectors,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get housekeeping: %w", err)
	}
	hk.Header.CoarseTime = uint32(seconds)
	hk.Header.FineTime = uint16((seconds - float64(uint32(seconds))) * 10000.0)
	return &hk, nil
}
