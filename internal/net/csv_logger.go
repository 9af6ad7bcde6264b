package net

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// CSVLogger logs training progress to a CSV file. Every row carries the
// run id so several runs can be appended to the same file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool
	RunID    string
	// Out receives write failures and defaults to the standard logger.
	Out *log.Logger

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

var csvHeader = []string{"run_id", "epoch", "cost", "accuracy", "improvement", "time_seconds"}

// NewCSVLogger creates a new CSVLogger with a fresh random run id.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
		RunID:    uuid.NewString(),
	}
}

func (c *CSVLogger) OnTrainBegin(n *Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.logf("CSVLogger: failed to open file %s: %v", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		if err := c.write(csvHeader); err != nil {
			c.logf("CSVLogger: failed to write header: %v", err)
		}
	}
}

func (c *CSVLogger) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	if c.writer == nil {
		return
	}

	record := []string{
		c.RunID,
		strconv.Itoa(epoch),
		strconv.FormatFloat(stats.Cost, 'f', 6, 64),
		strconv.FormatFloat(stats.Accuracy, 'f', 4, 64),
		strconv.FormatFloat(stats.Improvement, 'f', 4, 64),
		strconv.FormatFloat(time.Since(c.start).Seconds(), 'f', 2, 64),
	}

	if err := c.write(record); err != nil {
		c.logf("CSVLogger: failed to write record: %v", err)
	}
}

func (c *CSVLogger) OnTrainEnd(n *Network) {
	if c.file != nil {
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			c.logf("CSVLogger: failed to flush %s: %v", c.Filename, err)
		}
		if err := c.file.Close(); err != nil {
			c.logf("CSVLogger: failed to close %s: %v", c.Filename, err)
		}
		c.file = nil
		c.writer = nil
	}
}

// write writes one record and flushes it to the file.
func (c *CSVLogger) write(record []string) error {
	if err := c.writer.Write(record); err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSVLogger) logf(format string, args ...any) {
	out := c.Out
	if out == nil {
		out = log.Default()
	}
	out.Printf(format, args...)
}
