package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/john/tmichat/internal/message"
)

// FileTimeLayout is the timestamp embedded in log file names
const FileTimeLayout = "20060102_150405"

// channelLog is the open JSONL file for one channel
type channelLog struct {
	file     *os.File
	writer   *bufio.Writer
	openedAt time.Time
	size     int64
	pending  []message.Message
	channel  string
	filename string
}

// Recorder buffers chat messages and appends them to a JSONL file per
// channel, rotating files by age and size.
type Recorder struct {
	outputDir  string
	bufferSize int
	maxAge     time.Duration
	maxBytes   int64
	now        func() time.Time

	mu   sync.Mutex
	logs map[string]*channelLog
}

// New creates a new recorder
func New(outputDir string, bufferSize, rotateMinutes, rotateMegabytes int) *Recorder {
	return &Recorder{
		outputDir:  outputDir,
		bufferSize: bufferSize,
		maxAge:     time.Duration(rotateMinutes) * time.Minute,
		maxBytes:   int64(rotateMegabytes) * 1024 * 1024,
		now:        time.Now,
		logs:       make(map[string]*channelLog),
	}
}

// Start records messages until ctx is done. Closed files are sent on
// files for upload.
func (r *Recorder) Start(ctx context.Context, messages <-chan message.Message, files chan<- string) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case msg := <-messages:
			if err := r.Record(msg); err != nil {
				log.Printf("Error recording message: %v", err)
			}

		case <-ticker.C:
			r.Rotate(files)

		case <-ctx.Done():
			log.Println("Recorder shutting down, flushing buffers...")
			r.CloseAll(files)
			return ctx.Err()
		}
	}
}

// Record buffers one message, flushing when the buffer fills
func (r *Recorder) Record(msg message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := msg.Channel
	if channel == "" {
		channel = "unknown"
	}

	cl := r.logs[channel]
	if cl == nil {
		var err error
		cl, err = r.open(channel)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		r.logs[channel] = cl
	}

	cl.pending = append(cl.pending, msg)
	if len(cl.pending) >= r.bufferSize {
		if err := cl.flush(); err != nil {
			return fmt.Errorf("flush buffer: %w", err)
		}
	}

	return nil
}

func (r *Recorder) open(channel string) (*channelLog, error) {
	openedAt := r.now()
	filename := fmt.Sprintf("%s_%s.jsonl", channel, openedAt.UTC().Format(FileTimeLayout))

	file, err := os.OpenFile(filepath.Join(r.outputDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	log.Printf("Created new log file: %s", filename)

	return &channelLog{
		file:     file,
		writer:   bufio.NewWriter(file),
		openedAt: openedAt,
		pending:  make([]message.Message, 0, r.bufferSize),
		channel:  channel,
		filename: filename,
	}, nil
}

// flush writes buffered messages as JSON lines
func (cl *channelLog) flush() error {
	for _, msg := range cl.pending {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Error marshaling message: %v", err)
			continue
		}
		data = append(data, '\n')

		n, err := cl.writer.Write(data)
		cl.size += int64(n)
		if err != nil {
			return fmt.Errorf("write message: %w", err)
		}
	}

	cl.pending = cl.pending[:0]
	return cl.writer.Flush()
}

func (cl *channelLog) close() error {
	flushErr := cl.flush()
	if err := cl.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return flushErr
}

// Rotate closes files that are too old or too large and opens fresh ones
func (r *Recorder) Rotate(files chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, cl := range r.logs {
		if err := cl.flush(); err != nil {
			log.Printf("Error flushing %s: %v", cl.filename, err)
		}

		switch {
		case r.now().Sub(cl.openedAt) >= r.maxAge:
			log.Printf("Rotating file %s (time limit)", cl.filename)
		case cl.size >= r.maxBytes:
			log.Printf("Rotating file %s (size limit)", cl.filename)
		default:
			continue
		}

		r.finish(cl, files)

		next, err := r.open(channel)
		if err != nil {
			log.Printf("Error creating new log file for %s: %v", channel, err)
			delete(r.logs, channel)
			continue
		}
		r.logs[channel] = next
	}
}

// CloseAll flushes and closes every file
func (r *Recorder) CloseAll(files chan<- string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, cl := range r.logs {
		r.finish(cl, files)
		delete(r.logs, channel)
	}

	log.Println("All files flushed and closed")
}

// finish closes cl and hands its path to the uploader without blocking
func (r *Recorder) finish(cl *channelLog, files chan<- string) {
	if err := cl.close(); err != nil {
		log.Printf("Error closing %s: %v", cl.filename, err)
	}

	if files == nil {
		return
	}
	path := filepath.Join(r.outputDir, cl.filename)
	select {
	case files <- path:
		log.Printf("Queued file for upload: %s", cl.filename)
	default:
		log.Printf("Warning: upload queue full, file will be uploaded later: %s", cl.filename)
	}
}
