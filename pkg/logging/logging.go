package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var (
	// Async logging channel and worker
	logChan   chan string
	logWorker sync.Once
	logWg     sync.WaitGroup
	logMu     sync.Mutex

	out = log.New(os.Stdout, "", 0)
)

// initLogWorker starts the async log worker goroutine
func initLogWorker() {
	logMu.Lock()
	defer logMu.Unlock()

	logWorker.Do(func() {
		// Create buffered channel to avoid blocking
		// Buffer size: 1000 messages
		logChan = make(chan string, 1000)

		logWg.Add(1)
		go func() {
			defer logWg.Done()
			for msg := range logChan {
				out.Print(msg)
			}
		}()
	})
}

func emit(msg string) {
	initLogWorker()

	// Non-blocking send: if channel is full, log directly to avoid blocking
	select {
	case logChan <- msg:
	default:
		out.Print(msg)
	}
}

// Logf logs a formatted message with a wall-clock HH:MM:SS prefix (async, non-blocking)
func Logf(format string, v ...interface{}) {
	emit(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, v...)))
}

// Log logs a message with a wall-clock HH:MM:SS prefix (async, non-blocking)
func Log(v ...interface{}) {
	emit(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprint(v...)))
}

// Errorf logs a formatted error message (async, non-blocking)
func Errorf(format string, v ...interface{}) {
	emit("[ERROR] " + fmt.Sprintf(format, v...))
}

// Fatalf logs a fatal error and exits (synchronous for fatal errors)
func Fatalf(format string, v ...interface{}) {
	Flush()
	log.New(os.Stderr, "", 0).Fatalf("[ERROR] "+format, v...)
}

// Flush waits for all pending log messages to be written
func Flush() {
	logMu.Lock()
	defer logMu.Unlock()

	if logChan != nil {
		close(logChan)
		logWg.Wait()
		logChan = nil
		logWorker = sync.Once{}
	}
}
