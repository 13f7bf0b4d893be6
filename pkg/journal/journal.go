// Package journal records link traffic into a sqlite database.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// pure Go sqlite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/robotalks/evlink/pkg/link"
)

// Directions of a Frame.
const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

// DefaultQueueSize is the default number of frames queued for writing.
const DefaultQueueSize = 256

// Frame is a journaled packet. Payloads are not stored.
type Frame struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Direction string    `gorm:"size:2;index;not null" json:"direction"`
	Command   uint8     `gorm:"index;not null" json:"command"`
	Sequence  uint8     `gorm:"not null" json:"sequence"`
	Length    int       `gorm:"not null" json:"length"`
	Time      time.Time `gorm:"index;not null" json:"time"`
}

// TableName specifies the table name for Frame.
func (Frame) TableName() string {
	return "frames"
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%s %s CMD=0x%02X LEN=%d SEQ=%d",
		f.Time.Format("15:04:05.000"), f.Direction, f.Command, f.Length, f.Sequence)
}

// Config holds journal configuration.
type Config struct {
	Path      string
	QueueSize int
}

// Journal implements link.Observer. Frames are queued without blocking and
// written by Run.
type Journal struct {
	db      *gorm.DB
	queue   chan Frame
	dropped uint64
	now     func() time.Time
}

// Open opens or creates the journal database.
func Open(conf Config) (*Journal, error) {
	if conf.Path == "" {
		conf.Path = "evlink-journal.db"
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = DefaultQueueSize
	}
	if dir := filepath.Dir(conf.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	gormLog := gormlogger.New(glogWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: conf.Path}, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", conf.Path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.AutoMigrate(&Frame{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	glog.Infof("journal opened at %s", conf.Path)
	return &Journal{db: db, queue: make(chan Frame, conf.QueueSize), now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PacketReceived implements link.Observer.
func (j *Journal) PacketReceived(pkt *link.Packet) {
	j.enqueue(DirectionRx, pkt)
}

// PacketSent implements link.Observer.
func (j *Journal) PacketSent(pkt *link.Packet) {
	j.enqueue(DirectionTx, pkt)
}

func (j *Journal) enqueue(dir string, pkt *link.Packet) {
	frame := Frame{
		Direction: dir,
		Command:   pkt.Command,
		Sequence:  pkt.Sequence,
		Length:    len(pkt.Payload),
		Time:      j.now(),
	}
	select {
	case j.queue <- frame:
	default:
		atomic.AddUint64(&j.dropped, 1)
	}
}

// Dropped returns the number of frames dropped because the queue was full.
func (j *Journal) Dropped() uint64 {
	return atomic.LoadUint64(&j.dropped)
}

// Run implements framework.Runnable. It writes queued frames in batches
// until ctx is done, then flushes what is left.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case frame := <-j.queue:
			j.write(j.collect(frame))
		case <-ctx.Done():
			select {
			case frame := <-j.queue:
				j.write(j.collect(frame))
			default:
			}
			return ctx.Err()
		}
	}
}

func (j *Journal) collect(first Frame) []Frame {
	frames := []Frame{first}
	for {
		select {
		case frame := <-j.queue:
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func (j *Journal) write(frames []Frame) {
	if err := j.db.CreateInBatches(frames, 100).Error; err != nil {
		glog.Errorf("journal write %d frames: %v", len(frames), err)
	}
}

// Recent returns the last n frames, newest first.
func (j *Journal) Recent(n int) ([]Frame, error) {
	var frames []Frame
	err := j.db.Order("id desc").Limit(n).Find(&frames).Error
	return frames, err
}

// Count returns the number of journaled frames.
func (j *Journal) Count() (int64, error) {
	var count int64
	err := j.db.Model(&Frame{}).Count(&count).Error
	return count, err
}

// Prune deletes frames older than before and returns how many were deleted.
func (j *Journal) Prune(before time.Time) (int64, error) {
	res := j.db.Where("time < ?", before).Delete(&Frame{})
	return res.RowsAffected, res.Error
}

type glogWriter struct{}

func (glogWriter) Printf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}
